package handler

import (
	"net/http"

	"staymate/internal/messages/service"
	"staymate/pkg/config"
	apperrors "staymate/pkg/errors"
	httputil "staymate/pkg/http"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type MessageHandler struct {
	service  service.MessageService
	maxLimit int
	log      *logger.Logger
}

func NewMessageHandler(service service.MessageService, cfg *config.Config, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service:  service,
		maxLimit: cfg.HistoryMaxLimit,
		log:      log,
	}
}

type sendBody struct {
	Text        string `json:"text,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body sendBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, "Send", err)
		return
	}

	ctx := r.Context()
	sender := service.Sender{
		ID:   middleware.UserIDFromContext(ctx),
		Name: middleware.UserNameFromContext(ctx),
	}
	msg, err := h.service.Send(ctx, sender, service.SendRequest{
		ChannelID:   ps.ByName("channel"),
		Text:        body.Text,
		ImageRef:    body.ImageRef,
		RecipientID: body.RecipientID,
	})
	if err != nil {
		h.writeError(w, "Send", err)
		return
	}

	if err := httputil.WriteCreated(w, msg); err != nil {
		h.log.Error("failed to write created response", "handler", "Send", "operation", "WriteCreated", "error", err)
	}
}

func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, before, err := httputil.ExtractHistoryWindow(r, h.maxLimit)
	if err != nil {
		h.writeError(w, "History", err)
		return
	}

	channel, err := model.ParseChannelID(ps.ByName("channel"))
	if err != nil {
		h.writeError(w, "History", apperrors.InvalidInput("Invalid channel ID"))
		return
	}

	page, err := h.service.History(r.Context(), channel, middleware.UserIDFromContext(r.Context()), limit, before)
	if err != nil {
		h.writeError(w, "History", err)
		return
	}

	if err := httputil.WritePaginated(w, page.Messages, page.Total, page.Limit); err != nil {
		h.log.Error("failed to write paginated response", "handler", "History", "operation", "WritePaginated", "error", err)
	}
}

func (h *MessageHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *MessageHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/channels/:channel/messages", h.History)
	router.POST("/api/v1/channels/:channel/messages", h.Send)
}
