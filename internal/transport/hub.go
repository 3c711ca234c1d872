// Package transport fans channel events out to the subscribers connected to
// this instance and keeps their presence alive by heartbeat.
package transport

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"staymate/internal/presence"
	"staymate/pkg/clock"
	"staymate/pkg/logger"
	"staymate/pkg/model"

	"github.com/google/uuid"
)

var ErrSubscriptionClosed = errors.New("subscription closed")

const defaultBuffer = 64

type HubConfig struct {
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
	// Buffer is the per-subscriber event backlog. A subscriber that falls
	// further behind is disconnected.
	Buffer int
	Clock  clock.Clock
	Log    *logger.Logger
}

// Hub is the in-process channel transport. Events published for a channel
// reach its subscribers in publish order.
type Hub struct {
	mu       sync.Mutex
	channels map[model.ChannelID]*channelState
	nextID   uint64

	timeout time.Duration
	sweep   time.Duration
	buffer  int
	clock   clock.Clock
	log     *logger.Logger
}

type channelState struct {
	subs map[uint64]*subscription
}

type subscription struct {
	hub     *Hub
	id      uint64
	channel model.ChannelID
	events  chan model.ChannelEvent

	// guarded by hub.mu
	closed   bool
	record   *model.PresenceRecord
	lastBeat time.Time
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	return &Hub{
		channels: make(map[model.ChannelID]*channelState),
		timeout:  cfg.HeartbeatTimeout,
		sweep:    cfg.SweepInterval,
		buffer:   cfg.Buffer,
		clock:    cfg.Clock,
		log:      cfg.Log,
	}
}

func (h *Hub) Subscribe(ctx context.Context, channel model.ChannelID) (presence.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &subscription{
		hub:     h,
		id:      h.nextID,
		channel: channel,
		events:  make(chan model.ChannelEvent, h.buffer),
	}
	state, ok := h.channels[channel]
	if !ok {
		state = &channelState{subs: make(map[uint64]*subscription)}
		h.channels[channel] = state
	}
	state.subs[sub.id] = sub

	h.log.Debug("Subscribed", "channel_id", channel.String(), "subscription", sub.id)
	return sub, nil
}

// Publish delivers ev to every subscriber of ev.ChannelID on this instance.
func (h *Hub) Publish(ev model.ChannelEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(ev)
}

// Snapshot returns the channel roster as this instance sees it.
func (h *Hub) Snapshot(channel model.ChannelID) []model.PresenceRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked(channel)
}

// Subscribers reports how many subscriptions a channel has.
func (h *Hub) Subscribers(channel model.ChannelID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if state, ok := h.channels[channel]; ok {
		return len(state.subs)
	}
	return 0
}

// Run drops presences whose heartbeat is older than the timeout until ctx
// ends.
func (h *Hub) Run(ctx context.Context) {
	if h.sweep <= 0 || h.timeout <= 0 {
		<-ctx.Done()
		return
	}

	ticker := h.clock.NewTicker(h.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep expires stale presences once and broadcasts snapshots for the
// channels that changed. It returns the number of presences dropped.
func (h *Hub) Sweep() int {
	now := h.clock.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for channel, state := range h.channels {
		changed := false
		for _, sub := range state.subs {
			if sub.record != nil && now.Sub(sub.lastBeat) > h.timeout {
				h.log.Debug("Presence timed out", "channel_id", channel.String(), "user_id", sub.record.UserID)
				sub.record = nil
				changed = true
				dropped++
			}
		}
		if changed {
			h.broadcastSnapshotLocked(channel)
		}
	}
	return dropped
}

func (h *Hub) publishLocked(ev model.ChannelEvent) {
	state, ok := h.channels[ev.ChannelID]
	if !ok {
		return
	}

	var slow []*subscription
	for _, sub := range state.subs {
		select {
		case sub.events <- ev:
		default:
			slow = append(slow, sub)
		}
	}

	for _, sub := range slow {
		h.log.Warn("Disconnecting slow subscriber", "channel_id", ev.ChannelID.String(), "subscription", sub.id)
		h.closeLocked(sub)
	}
}

func (h *Hub) broadcastSnapshotLocked(channel model.ChannelID) {
	h.publishLocked(model.ChannelEvent{
		ID:         uuid.NewString(),
		Type:       model.EventPresenceSnapshot,
		ChannelID:  channel,
		Presence:   h.snapshotLocked(channel),
		OccurredAt: h.clock.Now().UTC(),
	})
}

func (h *Hub) snapshotLocked(channel model.ChannelID) []model.PresenceRecord {
	state, ok := h.channels[channel]
	if !ok {
		return []model.PresenceRecord{}
	}

	subs := make([]*subscription, 0, len(state.subs))
	for _, sub := range state.subs {
		if sub.record != nil {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	// A user attached twice appears once, with the newest record.
	index := make(map[string]int, len(subs))
	out := make([]model.PresenceRecord, 0, len(subs))
	for _, sub := range subs {
		if i, ok := index[sub.record.UserID]; ok {
			out[i] = *sub.record
			continue
		}
		index[sub.record.UserID] = len(out)
		out = append(out, *sub.record)
	}
	return out
}

// closeLocked removes the subscription and tells the channel if that took
// a presence away.
func (h *Hub) closeLocked(sub *subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.events)

	state, ok := h.channels[sub.channel]
	if !ok {
		return
	}
	delete(state.subs, sub.id)
	hadPresence := sub.record != nil
	sub.record = nil

	if len(state.subs) == 0 {
		delete(h.channels, sub.channel)
		return
	}
	if hadPresence {
		h.broadcastSnapshotLocked(sub.channel)
	}
}

func (s *subscription) Events() <-chan model.ChannelEvent {
	return s.events
}

// Track announces record on the channel and broadcasts the new roster.
func (s *subscription) Track(record model.PresenceRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed {
		return ErrSubscriptionClosed
	}
	s.record = &record
	s.lastBeat = h.clock.Now()
	h.broadcastSnapshotLocked(s.channel)
	return nil
}

func (s *subscription) Heartbeat() error {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed {
		return ErrSubscriptionClosed
	}
	if s.record == nil {
		return presence.ErrNotTracked
	}
	s.lastBeat = h.clock.Now()
	return nil
}

func (s *subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeLocked(s)
}
