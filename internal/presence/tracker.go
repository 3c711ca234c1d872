// Package presence keeps a best-effort roster of the users attached to a
// channel. It never signals departures itself; the transport drops users
// whose heartbeats stop and the next snapshot reflects that.
package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"staymate/pkg/clock"
	"staymate/pkg/logger"
	"staymate/pkg/model"
)

// ErrNotTracked is returned by Heartbeat once the transport has dropped the
// subscriber's presence.
var ErrNotTracked = errors.New("presence not tracked")

// Subscription is one attachment to a channel on the transport.
type Subscription interface {
	Events() <-chan model.ChannelEvent
	Track(record model.PresenceRecord) error
	Heartbeat() error
	Close()
}

type Transport interface {
	Subscribe(ctx context.Context, channel model.ChannelID) (Subscription, error)
}

type Tracker struct {
	mu      sync.Mutex
	channel model.ChannelID
	seeds   []model.PresenceRecord
	live    []model.PresenceRecord

	clock     clock.Clock
	heartbeat time.Duration
	log       *logger.Logger
}

// NewTracker returns a tracker that heartbeats every interval once attached.
func NewTracker(channel model.ChannelID, clk clock.Clock, interval time.Duration, log *logger.Logger) *Tracker {
	return &Tracker{
		channel:   channel,
		clock:     clk,
		heartbeat: interval,
		log:       log.With("channel_id", channel.String()),
	}
}

// Seed sets placeholder members shown until the first snapshot covers them.
func (t *Tracker) Seed(records []model.PresenceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeds = dedupe(records)
}

// ApplySnapshot replaces the live set and returns the merged roster.
// Invalid records are dropped.
func (t *Tracker) ApplySnapshot(records []model.PresenceRecord) []model.PresenceRecord {
	valid := make([]model.PresenceRecord, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			t.log.Debug("Dropping invalid presence record", "user_id", r.UserID, "error", err)
			continue
		}
		valid = append(valid, r)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = dedupe(valid)
	return t.rosterLocked()
}

// Roster lists live members first, then seeds no live record covers.
func (t *Tracker) Roster() []model.PresenceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rosterLocked()
}

func (t *Tracker) rosterLocked() []model.PresenceRecord {
	out := make([]model.PresenceRecord, 0, len(t.live)+len(t.seeds))
	seen := make(map[string]struct{}, len(t.live))
	for _, r := range t.live {
		seen[r.UserID] = struct{}{}
		out = append(out, r)
	}
	for _, r := range t.seeds {
		if _, ok := seen[r.UserID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Attach subscribes to the channel, announces self and keeps the roster
// fed from snapshots until ctx ends or detach is called. Every event,
// snapshots included, is passed on to forward. Subscribe and track failures
// are logged and leave the roster stale. lost is called when the transport
// ends the subscription on its own, for instance after a slow consumer was
// dropped.
func (t *Tracker) Attach(ctx context.Context, tr Transport, self model.PresenceRecord, forward func(model.ChannelEvent), lost func()) (detach func()) {
	sub, err := tr.Subscribe(ctx, t.channel)
	if err != nil {
		t.log.Warn("Presence subscribe failed", "error", err)
		return func() {}
	}

	if err := sub.Track(self); err != nil {
		t.log.Warn("Presence track failed", "user_id", self.UserID, "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if t.consume(ctx, sub, self, forward) && lost != nil {
			t.log.Warn("Presence subscription closed by transport")
			lost()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			sub.Close()
			<-done
		})
	}
}

// consume reports true when the event stream closed while ctx was live.
func (t *Tracker) consume(ctx context.Context, sub Subscription, self model.PresenceRecord, forward func(model.ChannelEvent)) bool {
	var beats <-chan time.Time
	if t.heartbeat > 0 {
		ticker := t.clock.NewTicker(t.heartbeat)
		defer ticker.Stop()
		beats = ticker.C
	}

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-beats:
			err := sub.Heartbeat()
			if errors.Is(err, ErrNotTracked) {
				err = sub.Track(self)
			}
			if err != nil {
				t.log.Debug("Presence heartbeat failed", "error", err)
			}
		case ev, ok := <-events:
			if !ok {
				return ctx.Err() == nil
			}
			if ev.Type == model.EventPresenceSnapshot {
				ev.Presence = t.ApplySnapshot(ev.Presence)
			}
			if forward != nil {
				forward(ev)
			}
		}
	}
}

func dedupe(records []model.PresenceRecord) []model.PresenceRecord {
	index := make(map[string]int, len(records))
	out := make([]model.PresenceRecord, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.UserID]; ok {
			out[i] = r
			continue
		}
		index[r.UserID] = len(out)
		out = append(out, r)
	}
	return out
}
