// Package channelview keeps one client's view of a channel: history merged
// with live inserts, the presence roster, nudge states and notifications.
//
// All view state is owned by a single event loop goroutine. Other
// goroutines only post closures to it. Results of asynchronous work carry
// the generation they were started in and are dropped once the session has
// been closed.
package channelview

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"staymate/internal/messages/service"
	"staymate/internal/notifications"
	"staymate/internal/nudges/merger"
	"staymate/internal/presence"
	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/model"
)

var ErrClosed = errors.New("channel view closed")

type Messages interface {
	Send(ctx context.Context, sender service.Sender, req service.SendRequest) (*model.Message, error)
	History(ctx context.Context, channel model.ChannelID, viewer string, limit int, before *time.Time) (*service.HistoryPage, error)
}

type Nudges interface {
	ListForUser(ctx context.Context, userID string) ([]*model.Nudge, error)
}

type Config struct {
	Channel           model.ChannelID
	Self              model.PresenceRecord
	Seeds             []model.PresenceRecord
	HistoryLimit      int
	NudgePollInterval time.Duration
	HeartbeatInterval time.Duration
	NotificationTTL   time.Duration
	Buffer            int
	// Authorized is re-checked on every poll tick when set. The session
	// ends once it reports false.
	Authorized func(ctx context.Context) (bool, error)
}

type Deps struct {
	Messages  Messages
	Nudges    Nudges
	Transport presence.Transport
	Clock     clock.Clock
	Log       *logger.Logger
}

type Session struct {
	cfg  Config
	deps Deps
	log  *logger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	actions chan func()
	done    chan struct{}

	updatesMu     sync.Mutex
	updates       chan Update
	updatesClosed bool

	// Owned by the loop.
	generation  uint64
	closed      bool
	messages    []*model.Message
	seen        map[string]struct{}
	merger      *merger.Merger
	nudgesReady bool
	draft       string
	tracker     *presence.Tracker
	dispatcher  *notifications.Dispatcher
	detach      []func()
}

const defaultBuffer = 256

// Open starts the session. It loads history, attaches presence and starts
// the nudge poll in the background.
func Open(ctx context.Context, cfg Config, deps Deps) *Session {
	s := newSession(ctx, cfg, deps)
	go s.run()
	s.post(s.start)
	return s
}

func newSession(ctx context.Context, cfg Config, deps Deps) *Session {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Log.With("channel_id", cfg.Channel.String(), "user_id", cfg.Self.UserID),
		ctx:     ctx,
		cancel:  cancel,
		actions: make(chan func()),
		done:    make(chan struct{}),
		updates: make(chan Update, cfg.Buffer),
		seen:    make(map[string]struct{}),
		merger:  merger.New(),
	}
	s.tracker = presence.NewTracker(cfg.Channel, deps.Clock, cfg.HeartbeatInterval, deps.Log)
	s.tracker.Seed(cfg.Seeds)
	s.dispatcher = notifications.NewDispatcher(cfg.Self.UserID, cfg.NotificationTTL, deps.Clock, notificationOutput{s}, deps.Log)
	return s
}

// Updates is closed when the session ends.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Done is closed once the loop has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// post runs fn on the loop. It reports false when the loop has stopped.
func (s *Session) post(fn func()) bool {
	select {
	case s.actions <- fn:
		return true
	case <-s.done:
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) run() {
	defer close(s.done)

	var polls <-chan time.Time
	if s.cfg.NudgePollInterval > 0 {
		ticker := s.deps.Clock.NewTicker(s.cfg.NudgePollInterval)
		defer ticker.Stop()
		polls = ticker.C
	}

	for {
		select {
		case fn := <-s.actions:
			fn()
		case <-polls:
			s.pollNudges()
			s.checkAccess()
		case <-s.ctx.Done():
			s.shutdown()
			return
		}
	}
}

func (s *Session) start() {
	s.roster(s.tracker.Roster())
	s.loadHistory()
	s.pollNudges()

	// The tracker and the inbox forward from their own goroutines.
	detachPresence := s.tracker.Attach(s.ctx, s.deps.Transport, s.cfg.Self, s.forward, s.lost)
	s.detach = append(s.detach, detachPresence)
	s.subscribeInbox()
}

func (s *Session) shutdown() {
	s.closed = true
	s.generation++
	s.dispatcher.Close()
	for _, d := range s.detach {
		d()
	}

	s.updatesMu.Lock()
	s.updatesClosed = true
	close(s.updates)
	s.updatesMu.Unlock()
	s.log.Debug("Channel view closed")
}

// spawn runs work off the loop and applies its result on the loop, unless
// the session was closed in between.
func (s *Session) spawn(work func(ctx context.Context) func()) {
	gen := s.generation
	go func() {
		apply := work(s.ctx)
		s.post(func() {
			if s.closed || gen != s.generation {
				s.log.Debug("Discarding stale result")
				return
			}
			apply()
		})
	}()
}

func (s *Session) emit(u Update) {
	s.updatesMu.Lock()
	defer s.updatesMu.Unlock()
	if s.updatesClosed {
		return
	}
	select {
	case s.updates <- u:
	default:
		// The client fell behind; it reconnects and reloads history.
		s.log.Warn("Channel view update buffer full, closing", "kind", u.Kind)
		s.cancel()
	}
}

// lost ends the session after the transport dropped one of its
// subscriptions; the client reconnects and reloads history.
func (s *Session) lost() {
	s.log.Warn("Subscription dropped by transport, closing")
	s.cancel()
}

func (s *Session) forward(ev model.ChannelEvent) {
	s.post(func() { s.handleEvent(ev) })
}

func (s *Session) handleEvent(ev model.ChannelEvent) {
	if s.closed {
		return
	}
	switch ev.Type {
	case model.EventMessageInserted:
		if ev.Message == nil {
			return
		}
		switch {
		case ev.ChannelID == model.UserChannel(s.cfg.Self.UserID):
			// A private message from another channel only notifies.
			s.dispatcher.OnMessage(ev.Message)
		case ev.Message.ChannelID == s.cfg.Channel:
			if s.addMessage(ev.Message) {
				s.emit(Update{Kind: UpdateMessage, Message: ev.Message})
				s.dispatcher.OnMessage(ev.Message)
			}
		}
	case model.EventPresenceSnapshot:
		s.roster(ev.Presence)
	case model.EventNudgeChanged:
		if ev.Nudge != nil && ev.Nudge.Involves(s.cfg.Self.UserID) {
			s.applyNudges([]*model.Nudge{ev.Nudge}, true)
		}
	}
}

func (s *Session) roster(records []model.PresenceRecord) {
	s.emit(Update{Kind: UpdateRoster, Roster: records})
}

func (s *Session) subscribeInbox() {
	sub, err := s.deps.Transport.Subscribe(s.ctx, model.UserChannel(s.cfg.Self.UserID))
	if err != nil {
		s.log.Warn("Inbox subscribe failed, relying on polling", "error", err)
		return
	}

	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-sub.Events():
				if !ok {
					select {
					case <-stop:
					default:
						s.lost()
					}
					return
				}
				s.forward(ev)
			}
		}
	}()
	s.detach = append(s.detach, func() {
		close(stop)
		sub.Close()
		<-finished
	})
}

func (s *Session) loadHistory() {
	channel, viewer, limit := s.cfg.Channel, s.cfg.Self.UserID, s.cfg.HistoryLimit
	s.spawn(func(ctx context.Context) func() {
		page, err := s.deps.Messages.History(ctx, channel, viewer, limit, nil)
		return func() {
			if err != nil {
				s.log.Warn("History load failed", "error", err)
				s.emit(Update{Kind: UpdateError, Error: publicError(err)})
				return
			}
			for _, m := range page.Messages {
				s.addMessage(m)
			}
			s.emit(Update{Kind: UpdateHistory, Messages: s.snapshot()})
		}
	})
}

// addMessage keeps messages ordered by creation and drops repeats.
func (s *Session) addMessage(m *model.Message) bool {
	if m == nil || m.ID == "" {
		return false
	}
	if _, dup := s.seen[m.ID]; dup {
		return false
	}
	s.seen[m.ID] = struct{}{}

	i := sort.Search(len(s.messages), func(i int) bool {
		prev := s.messages[i]
		if prev.CreatedAt.Equal(m.CreatedAt) {
			return prev.ID > m.ID
		}
		return prev.CreatedAt.After(m.CreatedAt)
	})
	s.messages = append(s.messages, nil)
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = m
	return true
}

func (s *Session) snapshot() []*model.Message {
	out := make([]*model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) pollNudges() {
	if s.deps.Nudges == nil {
		return
	}
	userID := s.cfg.Self.UserID
	s.spawn(func(ctx context.Context) func() {
		list, err := s.deps.Nudges.ListForUser(ctx, userID)
		return func() {
			if err != nil {
				s.log.Debug("Nudge poll failed", "error", err)
				return
			}
			// The first poll only establishes what is already known.
			s.applyNudges(list, s.nudgesReady)
			s.nudgesReady = true
		}
	})
}

func (s *Session) applyNudges(list []*model.Nudge, notify bool) {
	for _, d := range s.merger.ApplyAll(list) {
		next := d.Next
		s.emit(Update{Kind: UpdateNudge, Nudge: &next, NudgeState: model.StateFor(&next, s.cfg.Self.UserID)})
		if notify {
			s.dispatcher.OnNudgeDelta(d)
		}
	}
}

func (s *Session) checkAccess() {
	if s.cfg.Authorized == nil {
		return
	}
	authorized := s.cfg.Authorized
	s.spawn(func(ctx context.Context) func() {
		ok, err := authorized(ctx)
		return func() {
			if err != nil {
				s.log.Debug("Access re-check failed, keeping session", "error", err)
				return
			}
			if !ok {
				s.log.Info("Channel access ended, closing")
				s.emit(Update{Kind: UpdateRevoked, Error: "Channel access has ended"})
				s.cancel()
			}
		}
	})
}

// SendResult is the outcome of Send. Draft holds the text kept for retry
// when Err is set.
type SendResult struct {
	Message *model.Message
	Draft   string
	Err     error
}

// Send posts a message to the channel. A failed send keeps the text as the
// draft and reports it to the client.
func (s *Session) Send(ctx context.Context, text, imageRef string) SendResult {
	result := make(chan SendResult, 1)
	ok := s.post(func() {
		s.draft = text
		s.sendOnLoop(text, imageRef, result)
	})
	if !ok {
		return SendResult{Draft: text, Err: ErrClosed}
	}

	select {
	case r := <-result:
		return r
	case <-ctx.Done():
		return SendResult{Draft: text, Err: ctx.Err()}
	case <-s.done:
		return SendResult{Draft: text, Err: ErrClosed}
	}
}

func (s *Session) sendOnLoop(text, imageRef string, result chan<- SendResult) {
	req := service.SendRequest{ChannelID: s.cfg.Channel.String(), Text: text, ImageRef: imageRef}
	if a, b, ok := s.cfg.Channel.Members(); ok {
		req.RecipientID = a
		if a == s.cfg.Self.UserID {
			req.RecipientID = b
		}
	}
	sender := service.Sender{ID: s.cfg.Self.UserID, Name: s.cfg.Self.Name}

	s.spawn(func(ctx context.Context) func() {
		msg, err := s.deps.Messages.Send(ctx, sender, req)
		return func() {
			if err != nil {
				s.log.Info("Send failed, draft kept", "error", err)
				s.emit(Update{Kind: UpdateSendFailed, Draft: s.draft, Error: publicError(err)})
				result <- SendResult{Draft: s.draft, Err: err}
				return
			}
			if s.draft == text {
				s.draft = ""
			}
			if s.addMessage(msg) {
				s.emit(Update{Kind: UpdateMessage, Message: msg})
			}
			result <- SendResult{Message: msg}
		}
	})
}

// Draft returns the text kept from the last failed send.
func (s *Session) Draft() string {
	out := make(chan string, 1)
	if !s.post(func() { out <- s.draft }) {
		return ""
	}
	select {
	case d := <-out:
		return d
	case <-s.done:
		return ""
	}
}

// Messages returns the ordered, de-duplicated message list.
func (s *Session) Messages() []*model.Message {
	out := make(chan []*model.Message, 1)
	if !s.post(func() { out <- s.snapshot() }) {
		return nil
	}
	select {
	case m := <-out:
		return m
	case <-s.done:
		return nil
	}
}

func (s *Session) Roster() []model.PresenceRecord {
	return s.tracker.Roster()
}

func (s *Session) Notifications() []model.Notification {
	return s.dispatcher.Active()
}

type notificationOutput struct{ s *Session }

func (o notificationOutput) Show(n model.Notification) {
	o.s.emit(Update{Kind: UpdateNotification, Notification: &n})
}

func (o notificationOutput) Dismiss(id string) {
	o.s.emit(Update{Kind: UpdateDismiss, DismissID: id})
}

func publicError(err error) string {
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInternal {
		return appErr.Message
	}
	return "Internal server error"
}
