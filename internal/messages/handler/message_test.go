package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staymate/internal/messages/service"
	"staymate/pkg/config"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockMessageService struct {
	sendFunc    func(ctx context.Context, sender service.Sender, req service.SendRequest) (*model.Message, error)
	historyFunc func(ctx context.Context, channel model.ChannelID, viewer string, limit int, before *time.Time) (*service.HistoryPage, error)
}

func (m *mockMessageService) Send(ctx context.Context, sender service.Sender, req service.SendRequest) (*model.Message, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, sender, req)
	}
	return nil, nil
}

func (m *mockMessageService) History(ctx context.Context, channel model.ChannelID, viewer string, limit int, before *time.Time) (*service.HistoryPage, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, channel, viewer, limit, before)
	}
	return &service.HistoryPage{Messages: []*model.Message{}}, nil
}

func newTestHandler(svc service.MessageService) *MessageHandler {
	return NewMessageHandler(svc, &config.Config{HistoryMaxLimit: 100}, logger.Discard())
}

func TestSend_UsesPathChannelAndCaller(t *testing.T) {
	var got service.SendRequest
	var gotSender service.Sender
	svc := &mockMessageService{
		sendFunc: func(ctx context.Context, sender service.Sender, req service.SendRequest) (*model.Message, error) {
			got, gotSender = req, sender
			return &model.Message{ID: "m1", ChannelID: model.ChannelID(req.ChannelID), Text: req.Text}, nil
		},
	}
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/lobby:hotel:h1/messages", strings.NewReader(`{"text":"hi"}`))
	req = req.WithContext(middleware.WithUser(req.Context(), "alice", "Alice"))
	w := httptest.NewRecorder()
	h.Send(w, req, httprouter.Params{{Key: "channel", Value: "lobby:hotel:h1"}})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got.ChannelID != "lobby:hotel:h1" || got.Text != "hi" {
		t.Errorf("unexpected request %+v", got)
	}
	if gotSender.ID != "alice" || gotSender.Name != "Alice" {
		t.Errorf("unexpected sender %+v", gotSender)
	}
}

func TestSend_ForbiddenPassesThrough(t *testing.T) {
	svc := &mockMessageService{
		sendFunc: func(ctx context.Context, sender service.Sender, req service.SendRequest) (*model.Message, error) {
			return nil, apperrors.Forbidden("Lobby access has not been granted")
		},
	}
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/lobby:hotel:h1/messages", strings.NewReader(`{"text":"hi"}`))
	w := httptest.NewRecorder()
	h.Send(w, req, httprouter.Params{{Key: "channel", Value: "lobby:hotel:h1"}})

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestHistory_ParsesWindow(t *testing.T) {
	var gotLimit int
	var gotBefore *time.Time
	svc := &mockMessageService{
		historyFunc: func(ctx context.Context, channel model.ChannelID, viewer string, limit int, before *time.Time) (*service.HistoryPage, error) {
			gotLimit, gotBefore = limit, before
			return &service.HistoryPage{Messages: []*model.Message{{ID: "m1"}}, Total: 7, Limit: limit}, nil
		},
	}
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/lobby:hotel:h1/messages?limit=20&before=2026-05-02T10:00:00Z", nil)
	w := httptest.NewRecorder()
	h.History(w, req, httprouter.Params{{Key: "channel", Value: "lobby:hotel:h1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotLimit != 20 || gotBefore == nil {
		t.Errorf("unexpected window limit=%d before=%v", gotLimit, gotBefore)
	}

	var body struct {
		TotalCount int64 `json:"total_count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalCount != 7 {
		t.Errorf("expected total 7, got %d", body.TotalCount)
	}
}

func TestHistory_InvalidChannel(t *testing.T) {
	h := newTestHandler(&mockMessageService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/nope/messages", nil)
	w := httptest.NewRecorder()
	h.History(w, req, httprouter.Params{{Key: "channel", Value: "nope"}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
