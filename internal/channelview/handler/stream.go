package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"staymate/internal/channelview"
	apperrors "staymate/pkg/errors"
	httputil "staymate/pkg/http"
	"staymate/pkg/logger"
	"staymate/pkg/middleware"
	"staymate/pkg/model"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// Access reports whether a user's lobby gate is granted.
type Access interface {
	IsGranted(ctx context.Context, userID string, channel model.ChannelID) (bool, error)
}

// Consent reports whether an accepted nudge unlocks messaging between two
// users.
type Consent interface {
	CanMessage(ctx context.Context, a, b string) (bool, error)
}

type Profiles interface {
	Get(ctx context.Context, userID string) (*model.User, error)
}

type StreamConfig struct {
	HistoryLimit      int
	NudgePollInterval time.Duration
	HeartbeatInterval time.Duration
	NotificationTTL   time.Duration
	KeepAlive         time.Duration
}

// StreamHandler serves a live channel view as server-sent events. Each open
// stream is a channelview session that the same user can post through.
type StreamHandler struct {
	deps     channelview.Deps
	cfg      StreamConfig
	access   Access
	consent  Consent
	profiles Profiles
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*stream
}

type stream struct {
	userID  string
	channel model.ChannelID
	session *channelview.Session
}

func NewStreamHandler(deps channelview.Deps, cfg StreamConfig, access Access, consent Consent, profiles Profiles, log *logger.Logger) *StreamHandler {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 25 * time.Second
	}
	return &StreamHandler{
		deps:     deps,
		cfg:      cfg,
		access:   access,
		consent:  consent,
		profiles: profiles,
		log:      log,
		sessions: make(map[string]*stream),
	}
}

type readyEvent struct {
	SessionID string          `json:"session_id"`
	ChannelID model.ChannelID `json:"channel_id"`
}

type sendBody struct {
	Text     string `json:"text,omitempty"`
	ImageRef string `json:"image_ref,omitempty"`
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	channel, err := h.authorize(ctx, userID, ps.ByName("channel"))
	if err != nil {
		h.writeError(w, "Stream", err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	session := channelview.Open(ctx, channelview.Config{
		Channel:           channel,
		Self:              h.self(ctx, userID),
		HistoryLimit:      h.cfg.HistoryLimit,
		NudgePollInterval: h.cfg.NudgePollInterval,
		HeartbeatInterval: h.cfg.HeartbeatInterval,
		NotificationTTL:   h.cfg.NotificationTTL,
		Authorized: func(ctx context.Context) (bool, error) {
			return h.allowed(ctx, userID, channel)
		},
	}, h.deps)
	id := h.register(userID, channel, session)
	defer func() {
		h.unregister(id)
		session.Close()
	}()

	log := h.log.With("session_id", id, "user_id", userID, "channel_id", channel.String())
	log.Info("Stream opened")

	if err := writeEvent(w, rc, "ready", readyEvent{SessionID: id, ChannelID: channel}); err != nil {
		log.Debug("Stream write failed", "error", err)
		return
	}

	keepAlive := h.deps.Clock.NewTicker(h.cfg.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stream closed by client")
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case u, ok := <-session.Updates():
			if !ok {
				log.Info("Stream ended by session")
				return
			}
			if err := writeEvent(w, rc, string(u.Kind), u); err != nil {
				log.Debug("Stream write failed", "error", err)
				return
			}
		}
	}
}

// Send posts through an open stream so a failed send keeps its draft in the
// session.
func (h *StreamHandler) Send(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body sendBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.writeError(w, "Send", err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	s, ok := h.lookup(ps.ByName("session"))
	if !ok || s.userID != userID || s.channel.String() != ps.ByName("channel") {
		h.writeError(w, "Send", apperrors.NotFoundWithID("Stream", ps.ByName("session")))
		return
	}

	res := s.session.Send(r.Context(), body.Text, body.ImageRef)
	if res.Err != nil {
		appErr := apperrors.AsAppError(res.Err)
		if appErr.Code != apperrors.CodeInternal {
			appErr = apperrors.New(appErr.Code, appErr.Message, appErr.HTTPStatus).
				WithDetails(map[string]any{"draft": res.Draft})
		}
		h.writeError(w, "Send", appErr)
		return
	}

	if err := httputil.WriteCreated(w, res.Message); err != nil {
		h.log.Error("failed to write created response", "handler", "Send", "operation", "WriteCreated", "error", err)
	}
}

func (h *StreamHandler) authorize(ctx context.Context, userID, raw string) (model.ChannelID, error) {
	channel, err := model.ParseChannelID(raw)
	if err != nil {
		return "", apperrors.InvalidInput("Invalid channel ID")
	}

	switch {
	case channel.Kind() == model.ChannelPrivate:
		if !channel.Includes(userID) {
			return "", apperrors.Forbidden("Not a member of this channel")
		}
		ok, err := h.allowed(ctx, userID, channel)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", apperrors.Forbidden("Private messaging has not been accepted")
		}
	case channel.IsLobby():
		ok, err := h.allowed(ctx, userID, channel)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", apperrors.Forbidden("Lobby access has not been granted")
		}
	default:
		return "", apperrors.InvalidInput("Channel cannot be streamed")
	}
	return channel, nil
}

// allowed reports whether userID may still receive channel. It is checked
// when the stream opens and again on every session poll.
func (h *StreamHandler) allowed(ctx context.Context, userID string, channel model.ChannelID) (bool, error) {
	if a, b, ok := channel.Members(); ok {
		return h.consent.CanMessage(ctx, a, b)
	}
	return h.access.IsGranted(ctx, userID, channel)
}

// self builds the presence record from the stored profile, falling back to
// the token's name.
func (h *StreamHandler) self(ctx context.Context, userID string) model.PresenceRecord {
	record := model.PresenceRecord{UserID: userID, Name: middleware.UserNameFromContext(ctx)}
	user, err := h.profiles.Get(ctx, userID)
	if err == nil && user.DisplayName != "" {
		record = model.PresenceFromUser(user)
	}
	if record.Name == "" {
		record.Name = "Traveler"
	}
	return record
}

func (h *StreamHandler) register(userID string, channel model.ChannelID, session *channelview.Session) string {
	id := uuid.NewString()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[id] = &stream{userID: userID, channel: channel, session: session}
	return id
}

func (h *StreamHandler) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func (h *StreamHandler) lookup(id string) (*stream, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Open reports the number of live streams.
func (h *StreamHandler) Open() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return rc.Flush()
}

func (h *StreamHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *StreamHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/channels/:channel/stream", h.Stream)
	router.POST("/api/v1/channels/:channel/stream/:session/messages", h.Send)
}
