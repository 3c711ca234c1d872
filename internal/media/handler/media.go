package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "staymate/pkg/errors"
	httputil "staymate/pkg/http"
	"staymate/pkg/logger"
	"staymate/pkg/media"
	"staymate/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Presigner is satisfied by *media.Store.
type Presigner interface {
	PresignUpload(ctx context.Context, ownerID string, kind media.Kind, contentType string) (media.UploadTicket, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

type MediaHandler struct {
	store Presigner
	log   *logger.Logger
}

func NewMediaHandler(store Presigner, log *logger.Logger) *MediaHandler {
	return &MediaHandler{
		store: store,
		log:   log,
	}
}

type uploadRequest struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req uploadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Upload", err)
		return
	}

	kind, ok := media.ParseKind(req.Kind)
	if !ok {
		h.writeError(w, "Upload", apperrors.InvalidInput("kind must be chat or receipts"))
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	ticket, err := h.store.PresignUpload(r.Context(), userID, kind, strings.ToLower(strings.TrimSpace(req.ContentType)))
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedContentType) {
			h.writeError(w, "Upload", apperrors.InvalidInput("Unsupported content type"))
			return
		}
		h.log.Error("Failed to presign upload", "user_id", userID, "kind", kind, "error", err)
		h.writeError(w, "Upload", apperrors.Internal("failed to presign upload", err))
		return
	}

	h.log.Debug("Upload ticket issued", "user_id", userID, "key", ticket.Key)
	if err := httputil.WriteCreated(w, ticket); err != nil {
		h.log.Error("failed to write created response", "handler", "Upload", "operation", "WriteCreated", "error", err)
	}
}

// Download redirects to a short-lived URL. Chat images are visible to any
// signed-in user, receipts only to their owner.
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := strings.TrimPrefix(ps.ByName("key"), "/")
	userID := middleware.UserIDFromContext(r.Context())

	kind, ok := media.KindOf(key)
	if !ok || strings.Contains(key, "..") {
		h.writeError(w, "Download", apperrors.NotFound("Media"))
		return
	}
	if kind == media.KindReceipt && !media.OwnedBy(key, media.KindReceipt, userID) {
		h.writeError(w, "Download", apperrors.NotFound("Media"))
		return
	}

	url, err := h.store.PresignDownload(r.Context(), key)
	if err != nil {
		h.log.Error("Failed to presign download", "key", key, "error", err)
		h.writeError(w, "Download", apperrors.Internal("failed to presign download", err))
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *MediaHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/media/uploads", h.Upload)
	router.GET("/api/v1/media/files/*key", h.Download)
}
