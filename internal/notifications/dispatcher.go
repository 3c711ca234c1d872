package notifications

import (
	"sort"
	"sync"
	"time"

	"staymate/internal/nudges/merger"
	"staymate/pkg/clock"
	"staymate/pkg/logger"
	"staymate/pkg/model"
)

// Output renders notifications. Dismiss is called once per shown
// notification, when its window elapses or it is dismissed explicitly.
type Output interface {
	Show(n model.Notification)
	Dismiss(id string)
}

// Dispatcher shows notifications for one local user and dismisses each after
// a fixed window. A source (message or nudge transition) notifies at most
// once.
type Dispatcher struct {
	userID string
	ttl    time.Duration
	clock  clock.Clock
	out    Output
	log    *logger.Logger

	mu     sync.Mutex
	seen   map[string]struct{}
	active map[string]*entry
	closed bool
}

type entry struct {
	n     model.Notification
	timer *clock.Timer
}

const defaultTTL = 5 * time.Second

func NewDispatcher(userID string, ttl time.Duration, clk clock.Clock, out Output, log *logger.Logger) *Dispatcher {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Dispatcher{
		userID: userID,
		ttl:    ttl,
		clock:  clk,
		out:    out,
		log:    log,
		seen:   make(map[string]struct{}),
		active: make(map[string]*entry),
	}
}

func (d *Dispatcher) OnMessage(msg *model.Message) bool {
	n, ok := ForMessage(msg, d.userID, d.clock.Now(), d.ttl)
	if !ok {
		return false
	}
	return d.show(n)
}

func (d *Dispatcher) OnNudgeDelta(delta merger.Delta) bool {
	n, ok := ForNudgeDelta(d.userID, delta, d.clock.Now(), d.ttl)
	if !ok {
		return false
	}
	return d.show(n)
}

func (d *Dispatcher) show(n model.Notification) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	if _, dup := d.seen[n.SourceID]; dup {
		d.mu.Unlock()
		d.log.Debug("Duplicate notification suppressed", "source_id", n.SourceID)
		return false
	}
	d.seen[n.SourceID] = struct{}{}

	e := &entry{n: n}
	d.active[n.ID] = e
	e.timer = d.clock.AfterFunc(d.ttl, func() { d.expire(n.ID) })
	d.mu.Unlock()

	d.out.Show(n)
	return true
}

func (d *Dispatcher) expire(id string) {
	if d.remove(id) {
		d.out.Dismiss(id)
	}
}

// Dismiss removes a notification before its window elapses.
func (d *Dispatcher) Dismiss(id string) {
	d.mu.Lock()
	e, ok := d.active[id]
	d.mu.Unlock()
	if !ok {
		return
	}
	e.timer.Stop()
	d.expire(id)
}

func (d *Dispatcher) remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.active[id]; !ok {
		return false
	}
	delete(d.active, id)
	return true
}

// Active returns the notifications currently shown, oldest first.
func (d *Dispatcher) Active() []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.Notification, 0, len(d.active))
	for _, e := range d.active {
		out = append(out, e.n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops pending timers. Nothing is shown or dismissed afterwards.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for id, e := range d.active {
		e.timer.Stop()
		delete(d.active, id)
	}
}
