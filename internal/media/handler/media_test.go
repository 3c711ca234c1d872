package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staymate/pkg/logger"
	"staymate/pkg/media"
	"staymate/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type mockPresigner struct {
	uploadFunc func(ctx context.Context, ownerID string, kind media.Kind, contentType string) (media.UploadTicket, error)
}

func (m *mockPresigner) PresignUpload(ctx context.Context, ownerID string, kind media.Kind, contentType string) (media.UploadTicket, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, ownerID, kind, contentType)
	}
	return media.UploadTicket{}, nil
}

func (m *mockPresigner) PresignDownload(ctx context.Context, key string) (string, error) {
	return "https://bucket.example.com/" + key + "?sig=1", nil
}

func serve(h *MediaHandler, method, path, body, user string) *httptest.ResponseRecorder {
	router := httprouter.New()
	h.RegisterRoutes(router)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(middleware.WithUser(req.Context(), user, user))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"chat image", `{"kind":"chat","content_type":"image/png"}`, http.StatusCreated},
		{"receipt", `{"kind":"receipts","content_type":"IMAGE/JPEG"}`, http.StatusCreated},
		{"unknown kind", `{"kind":"avatars","content_type":"image/png"}`, http.StatusBadRequest},
		{"unsupported type", `{"kind":"chat","content_type":"application/pdf"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockPresigner{
				uploadFunc: func(ctx context.Context, ownerID string, kind media.Kind, contentType string) (media.UploadTicket, error) {
					if contentType != "image/png" && contentType != "image/jpeg" {
						return media.UploadTicket{}, fmt.Errorf("%w %q", media.ErrUnsupportedContentType, contentType)
					}
					return media.UploadTicket{Key: media.ObjectKey(kind, ownerID, time.Now(), "png"), Method: http.MethodPut}, nil
				},
			}
			w := serve(NewMediaHandler(store, logger.Discard()), http.MethodPost, "/api/v1/media/uploads", tt.body, "alice")

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDownload_ReceiptsOwnerOnly(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		user       string
		wantStatus int
	}{
		{"own receipt", "receipts/alice/2026/05/04/r.jpg", "alice", http.StatusFound},
		{"someone else's receipt", "receipts/alice/2026/05/04/r.jpg", "bob", http.StatusNotFound},
		{"chat image from anyone", "chat/alice/2026/05/04/c.jpg", "bob", http.StatusFound},
		{"unknown prefix", "private/alice/x.jpg", "alice", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(NewMediaHandler(&mockPresigner{}, logger.Discard()), http.MethodGet, "/api/v1/media/files/"+tt.key, "", tt.user)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusFound && !strings.Contains(w.Header().Get("Location"), tt.key) {
				t.Errorf("unexpected redirect %q", w.Header().Get("Location"))
			}
		})
	}
}
