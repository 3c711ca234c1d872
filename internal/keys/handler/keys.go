package handler

import (
	"net/http"

	"staymate/internal/keys/service"
	apperrors "staymate/pkg/errors"
	httputil "staymate/pkg/http"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type KeyHandler struct {
	service service.KeyService
	log     *logger.Logger
}

func NewKeyHandler(service service.KeyService, log *logger.Logger) *KeyHandler {
	return &KeyHandler{
		service: service,
		log:     log,
	}
}

type grantResponse struct {
	Key     *model.DigitalKey `json:"key"`
	Granted bool              `json:"granted"`
}

type cancelResponse struct {
	BookingReference string `json:"booking_reference"`
	Cancelled        bool   `json:"cancelled"`
}

func (h *KeyHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	user, err := h.service.Profile(ctx, middleware.UserIDFromContext(ctx), middleware.UserNameFromContext(ctx))
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "Me", "operation", "WriteSuccess", "error", err)
	}
}

func (h *KeyHandler) ListKeys(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	keys, err := h.service.ListKeys(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, "ListKeys", err)
		return
	}

	if err := httputil.WriteSuccess(w, keys); err != nil {
		h.log.Error("failed to write success response", "handler", "ListKeys", "operation", "WriteSuccess", "error", err)
	}
}

// Grant answers 201 for a new key and 200 when the confirmation was
// already applied.
func (h *KeyHandler) Grant(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var conf model.BookingConfirmation
	if err := httputil.DecodeJSON(r, &conf); err != nil {
		h.writeError(w, "Grant", err)
		return
	}

	key, granted, err := h.service.Grant(r.Context(), middleware.UserIDFromContext(r.Context()), &conf)
	if err != nil {
		h.writeError(w, "Grant", err)
		return
	}

	resp := grantResponse{Key: key, Granted: granted}
	var writeErr error
	if granted {
		writeErr = httputil.WriteCreated(w, resp)
	} else {
		writeErr = httputil.WriteSuccess(w, resp)
	}
	if writeErr != nil {
		h.log.Error("failed to write response", "handler", "Grant", "error", writeErr)
	}
}

func (h *KeyHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ref := ps.ByName("ref")
	if ref == "" {
		h.writeError(w, "Cancel", apperrors.InvalidInput("Booking reference cannot be empty"))
		return
	}

	cancelled, err := h.service.Cancel(r.Context(), middleware.UserIDFromContext(r.Context()), ref)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, cancelResponse{BookingReference: ref, Cancelled: cancelled}); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *KeyHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *KeyHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/me", h.Me)
	router.GET("/api/v1/me/keys", h.ListKeys)
	router.POST("/api/v1/me/keys", h.Grant)
	router.DELETE("/api/v1/me/keys/:ref", h.Cancel)
}
