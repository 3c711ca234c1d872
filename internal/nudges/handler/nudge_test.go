package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"staymate/internal/nudges/service"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockNudgeService struct {
	sendFunc    func(ctx context.Context, from, to string) (*model.Nudge, bool, error)
	respondFunc func(ctx context.Context, id, responder string, accept bool) (*model.Nudge, bool, error)
}

func (m *mockNudgeService) Send(ctx context.Context, from, to string) (*model.Nudge, bool, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, from, to)
	}
	return nil, false, nil
}

func (m *mockNudgeService) Respond(ctx context.Context, id, responder string, accept bool) (*model.Nudge, bool, error) {
	if m.respondFunc != nil {
		return m.respondFunc(ctx, id, responder, accept)
	}
	return nil, false, nil
}

func (m *mockNudgeService) State(ctx context.Context, viewer, other string) (*service.NudgeView, error) {
	return &service.NudgeView{OtherUserID: other, State: model.NudgeStateNone}, nil
}

func (m *mockNudgeService) CanMessage(ctx context.Context, a, b string) (bool, error) {
	return false, nil
}

func (m *mockNudgeService) ListForUser(ctx context.Context, userID string) ([]*model.Nudge, error) {
	return []*model.Nudge{}, nil
}

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), userID, userID))
}

func TestSend_StatusReflectsCreation(t *testing.T) {
	tests := []struct {
		name       string
		created    bool
		wantStatus int
	}{
		{"new nudge", true, http.StatusCreated},
		{"existing pair", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockNudgeService{
				sendFunc: func(ctx context.Context, from, to string) (*model.Nudge, bool, error) {
					if from != "alice" || to != "bob" {
						t.Errorf("unexpected pair %s -> %s", from, to)
					}
					return &model.Nudge{ID: "n1", FromUserID: from, ToUserID: to, Status: model.NudgePending}, tt.created, nil
				},
			}
			h := NewNudgeHandler(svc, logger.Discard())

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/nudges", strings.NewReader(`{"to_user_id":"bob"}`)), "alice")
			w := httptest.NewRecorder()
			h.Send(w, req, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			var body struct {
				Data struct {
					State model.NudgeState `json:"state"`
				} `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Data.State != model.NudgeStateOutgoingPending {
				t.Errorf("expected outgoing_pending, got %s", body.Data.State)
			}
		})
	}
}

func TestRespond_RequiresAccept(t *testing.T) {
	called := false
	svc := &mockNudgeService{
		respondFunc: func(ctx context.Context, id, responder string, accept bool) (*model.Nudge, bool, error) {
			called = true
			return nil, false, nil
		},
	}
	h := NewNudgeHandler(svc, logger.Discard())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/nudges/n1/respond", strings.NewReader(`{}`)), "bob")
	w := httptest.NewRecorder()
	h.Respond(w, req, httprouter.Params{{Key: "id", Value: "n1"}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if called {
		t.Error("service must not be called without accept")
	}
}

func TestRespond_PassesDecision(t *testing.T) {
	var gotID, gotResponder string
	var gotAccept bool
	svc := &mockNudgeService{
		respondFunc: func(ctx context.Context, id, responder string, accept bool) (*model.Nudge, bool, error) {
			gotID, gotResponder, gotAccept = id, responder, accept
			return &model.Nudge{ID: id, FromUserID: "alice", ToUserID: responder, Status: model.NudgeAccepted}, true, nil
		},
	}
	h := NewNudgeHandler(svc, logger.Discard())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/nudges/n1/respond", strings.NewReader(`{"accept":true}`)), "bob")
	w := httptest.NewRecorder()
	h.Respond(w, req, httprouter.Params{{Key: "id", Value: "n1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotID != "n1" || gotResponder != "bob" || !gotAccept {
		t.Errorf("unexpected call id=%s responder=%s accept=%v", gotID, gotResponder, gotAccept)
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := httprouter.New()
	NewNudgeHandler(&mockNudgeService{}, logger.Discard()).RegisterRoutes(router)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/bob/nudge", nil), "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
