package service

import (
	"context"
	"errors"
	"sync"
	"time"

	accesserrors "staymate/internal/access/errors"
	"staymate/internal/access/gate"
	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/media"
	"staymate/pkg/model"

	"github.com/go-playground/validator/v10"
)

type AccessService interface {
	Open(ctx context.Context, userID string, channel model.ChannelID) (gate.Status, error)
	VerifyLocation(ctx context.Context, userID string, channel model.ChannelID, location gate.ReportedLocation, venueID string) (gate.Status, error)
	VerifyDocument(ctx context.Context, userID string, channel model.ChannelID, receiptKey, venueID string) (gate.Status, error)
	Status(userID string, channel model.ChannelID) gate.Status
	Close(userID string, channel model.ChannelID)
	// IsGranted reports whether userID may message in a lobby, trying the
	// digital key fast path when no granted session exists.
	IsGranted(ctx context.Context, userID string, channel model.ChannelID) (bool, error)
	Stop()
}

type session struct {
	gate     *gate.Gate
	lastUsed time.Time
}

// accessService keeps one gate per user and channel. Sessions idle for
// longer than the TTL are closed and forgotten.
type accessService struct {
	mu       sync.Mutex
	sessions map[string]*session

	deps     gate.Deps
	opts     gate.Options
	ttl      time.Duration
	clock    clock.Clock
	validate *validator.Validate
	log      *logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewAccessService(deps gate.Deps, opts gate.Options, ttl time.Duration) AccessService {
	s := newAccessService(deps, opts, ttl)
	go s.cleanup()
	return s
}

func newAccessService(deps gate.Deps, opts gate.Options, ttl time.Duration) *accessService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &accessService{
		sessions: make(map[string]*session),
		deps:     deps,
		opts:     opts,
		ttl:      ttl,
		clock:    opts.Clock,
		validate: validator.New(),
		log:      opts.Log,
		stopCh:   make(chan struct{}),
	}
}

func (s *accessService) Open(ctx context.Context, userID string, channel model.ChannelID) (gate.Status, error) {
	st, err := s.session(userID, channel).Open(ctx)
	return st, s.translate(err)
}

func (s *accessService) VerifyLocation(ctx context.Context, userID string, channel model.ChannelID, location gate.ReportedLocation, venueID string) (gate.Status, error) {
	if err := s.validate.Struct(location); err != nil {
		return gate.Status{}, apperrors.Validation("Invalid location", map[string]any{"error": err.Error()})
	}

	st, err := s.session(userID, channel).VerifyByLocation(ctx, location, venueID)
	return st, s.translate(err)
}

func (s *accessService) VerifyDocument(ctx context.Context, userID string, channel model.ChannelID, receiptKey, venueID string) (gate.Status, error) {
	if !media.OwnedBy(receiptKey, media.KindReceipt, userID) {
		return gate.Status{}, apperrors.Forbidden("Receipt does not belong to the caller")
	}

	st, err := s.session(userID, channel).VerifyByDocument(ctx, receiptKey, venueID)
	return st, s.translate(err)
}

func (s *accessService) Status(userID string, channel model.ChannelID) gate.Status {
	return s.session(userID, channel).Status()
}

func (s *accessService) Close(userID string, channel model.ChannelID) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionKey(userID, channel)]
	delete(s.sessions, sessionKey(userID, channel))
	s.mu.Unlock()

	if ok {
		sess.gate.Close()
		s.log.Debug("Access session closed", "user_id", userID, "channel_id", channel.String())
	}
}

func (s *accessService) IsGranted(ctx context.Context, userID string, channel model.ChannelID) (bool, error) {
	g := s.session(userID, channel)
	if g.AllowsMessaging() {
		return true, nil
	}

	st, err := g.Open(ctx)
	if err != nil {
		return false, s.translate(err)
	}
	return st.State == gate.Granted, nil
}

func (s *accessService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// session returns the live gate for the pair, replacing one that idled out.
func (s *accessService) session(userID string, channel model.ChannelID) *gate.Gate {
	key := sessionKey(userID, channel)
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[key]; ok {
		if now.Sub(sess.lastUsed) <= s.ttl && !sess.gate.Closed() {
			sess.lastUsed = now
			return sess.gate
		}
		sess.gate.Close()
	}

	g := gate.New(userID, channel, s.deps, s.opts)
	s.sessions[key] = &session{gate: g, lastUsed: now}
	return g
}

func (s *accessService) cleanup() {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expire()
		case <-s.stopCh:
			return
		}
	}
}

func (s *accessService) expire() int {
	now := s.clock.Now()
	var stale []*gate.Gate

	s.mu.Lock()
	for key, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			stale = append(stale, sess.gate)
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	for _, g := range stale {
		g.Close()
	}
	if len(stale) > 0 {
		s.log.Debug("Expired access sessions", "count", len(stale))
	}
	return len(stale)
}

func (s *accessService) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, accesserrors.ErrStale):
		return apperrors.Conflict("Access session was closed before verification finished")
	case errors.Is(err, accesserrors.ErrNotLobby):
		return apperrors.InvalidInput("Access verification applies to lobby channels only")
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.Internal("Access check failed", err)
	}
}

func sessionKey(userID string, channel model.ChannelID) string {
	return userID + "|" + channel.String()
}
