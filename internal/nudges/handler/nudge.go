package handler

import (
	"net/http"

	"staymate/internal/nudges/service"
	apperrors "staymate/pkg/errors"
	httputil "staymate/pkg/http"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type NudgeHandler struct {
	service service.NudgeService
	log     *logger.Logger
}

func NewNudgeHandler(service service.NudgeService, log *logger.Logger) *NudgeHandler {
	return &NudgeHandler{
		service: service,
		log:     log,
	}
}

type sendRequest struct {
	ToUserID string `json:"to_user_id"`
}

type respondRequest struct {
	Accept *bool `json:"accept"`
}

type nudgeResponse struct {
	Nudge   *model.Nudge     `json:"nudge"`
	State   model.NudgeState `json:"state"`
	Changed bool             `json:"changed"`
}

// Send answers 201 for a new nudge and 200 with the existing record
// otherwise.
func (h *NudgeHandler) Send(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req sendRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Send", err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	nudge, created, err := h.service.Send(r.Context(), userID, req.ToUserID)
	if err != nil {
		h.writeError(w, "Send", err)
		return
	}

	resp := nudgeResponse{Nudge: nudge, State: model.StateFor(nudge, userID), Changed: created}
	var writeErr error
	if created {
		writeErr = httputil.WriteCreated(w, resp)
	} else {
		writeErr = httputil.WriteSuccess(w, resp)
	}
	if writeErr != nil {
		h.log.Error("failed to write response", "handler", "Send", "error", writeErr)
	}
}

func (h *NudgeHandler) Respond(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req respondRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Respond", err)
		return
	}
	if req.Accept == nil {
		h.writeError(w, "Respond", apperrors.InvalidInput("accept is required"))
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	nudge, changed, err := h.service.Respond(r.Context(), ps.ByName("id"), userID, *req.Accept)
	if err != nil {
		h.writeError(w, "Respond", err)
		return
	}

	resp := nudgeResponse{Nudge: nudge, State: model.StateFor(nudge, userID), Changed: changed}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Respond", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NudgeHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	nudges, err := h.service.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, nudges); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NudgeHandler) State(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.State(r.Context(), middleware.UserIDFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "State", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "State", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NudgeHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NudgeHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/nudges", h.List)
	router.POST("/api/v1/nudges", h.Send)
	router.POST("/api/v1/nudges/:id/respond", h.Respond)
	router.GET("/api/v1/users/:id/nudge", h.State)
}
