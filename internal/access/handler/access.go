package handler

import (
	"net/http"

	"staymate/internal/access/gate"
	"staymate/internal/access/service"
	apperrors "staymate/pkg/errors"
	httputil "staymate/pkg/http"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AccessHandler struct {
	service service.AccessService
	log     *logger.Logger
}

func NewAccessHandler(service service.AccessService, log *logger.Logger) *AccessHandler {
	return &AccessHandler{
		service: service,
		log:     log,
	}
}

type locationRequest struct {
	gate.ReportedLocation
	VenueID string `json:"venue_id,omitempty"`
}

type documentRequest struct {
	ReceiptKey string `json:"receipt_key"`
	VenueID    string `json:"venue_id,omitempty"`
}

func (h *AccessHandler) Open(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	channel, ok := h.channel(w, ps, "Open")
	if !ok {
		return
	}

	st, err := h.service.Open(r.Context(), middleware.UserIDFromContext(r.Context()), channel)
	h.respond(w, "Open", st, err)
}

func (h *AccessHandler) VerifyLocation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	channel, ok := h.channel(w, ps, "VerifyLocation")
	if !ok {
		return
	}

	var req locationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "VerifyLocation", err)
		return
	}

	st, err := h.service.VerifyLocation(r.Context(), middleware.UserIDFromContext(r.Context()), channel, req.ReportedLocation, req.VenueID)
	h.respond(w, "VerifyLocation", st, err)
}

func (h *AccessHandler) VerifyDocument(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	channel, ok := h.channel(w, ps, "VerifyDocument")
	if !ok {
		return
	}

	var req documentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "VerifyDocument", err)
		return
	}
	if req.ReceiptKey == "" {
		h.writeError(w, "VerifyDocument", apperrors.InvalidInput("receipt_key is required"))
		return
	}

	st, err := h.service.VerifyDocument(r.Context(), middleware.UserIDFromContext(r.Context()), channel, req.ReceiptKey, req.VenueID)
	h.respond(w, "VerifyDocument", st, err)
}

func (h *AccessHandler) Status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	channel, ok := h.channel(w, ps, "Status")
	if !ok {
		return
	}

	st := h.service.Status(middleware.UserIDFromContext(r.Context()), channel)
	if err := httputil.WriteSuccess(w, st); err != nil {
		h.log.Error("failed to write success response", "handler", "Status", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AccessHandler) Close(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	channel, ok := h.channel(w, ps, "Close")
	if !ok {
		return
	}

	h.service.Close(middleware.UserIDFromContext(r.Context()), channel)
	httputil.WriteNoContent(w)
}

// respond writes denials as VERIFICATION_FAILED so clients can offer the
// other verification method.
func (h *AccessHandler) respond(w http.ResponseWriter, handler string, st gate.Status, err error) {
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	if st.State == gate.Denied {
		details := map[string]any{"state": st.State, "channel_id": st.ChannelID}
		if st.DistanceKm != nil {
			details["distance_km"] = *st.DistanceKm
		}
		h.writeError(w, handler, apperrors.VerificationFailed(st.Reason).WithDetails(details))
		return
	}

	if err := httputil.WriteSuccess(w, st); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *AccessHandler) channel(w http.ResponseWriter, ps httprouter.Params, handler string) (model.ChannelID, bool) {
	channel, err := model.ParseChannelID(ps.ByName("channel"))
	if err != nil {
		h.writeError(w, handler, apperrors.InvalidInput(err.Error()))
		return "", false
	}
	return channel, true
}

func (h *AccessHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AccessHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/channels/:channel/access", h.Status)
	router.DELETE("/api/v1/channels/:channel/access", h.Close)
	router.POST("/api/v1/channels/:channel/access/open", h.Open)
	router.POST("/api/v1/channels/:channel/access/location", h.VerifyLocation)
	router.POST("/api/v1/channels/:channel/access/document", h.VerifyDocument)
}
