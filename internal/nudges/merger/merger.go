// Package merger folds nudge states observed through polling and through
// pushed events into one id-keyed view.
package merger

import "staymate/pkg/model"

// Delta is a genuine status change. Prev is nil for a nudge seen for the
// first time.
type Delta struct {
	Prev *model.Nudge
	Next model.Nudge
}

// Merger is not safe for concurrent use. It is owned by a single event loop.
type Merger struct {
	known map[string]model.Nudge
}

func New() *Merger {
	return &Merger{known: make(map[string]model.Nudge)}
}

// Apply records n and returns a delta when its status differs from what
// was known. A pending state never overwrites an answered one, so a stale
// poll cannot undo a pushed response.
func (m *Merger) Apply(n model.Nudge) (Delta, bool) {
	if n.ID == "" {
		return Delta{}, false
	}

	prev, ok := m.known[n.ID]
	if ok {
		if prev.Status == n.Status {
			return Delta{}, false
		}
		if prev.Status != model.NudgePending {
			return Delta{}, false
		}
	}

	m.known[n.ID] = n
	if !ok {
		return Delta{Next: n}, true
	}
	return Delta{Prev: &prev, Next: n}, true
}

// ApplyAll merges a batch, typically a poll result, and returns the deltas
// in input order.
func (m *Merger) ApplyAll(nudges []*model.Nudge) []Delta {
	var deltas []Delta
	for _, n := range nudges {
		if n == nil {
			continue
		}
		if d, ok := m.Apply(*n); ok {
			deltas = append(deltas, d)
		}
	}
	return deltas
}

func (m *Merger) Get(id string) (model.Nudge, bool) {
	n, ok := m.known[id]
	return n, ok
}

// ForUser returns the known nudge between userID and other, if any.
func (m *Merger) ForUser(userID, other string) (model.Nudge, bool) {
	key := model.PairKey(userID, other)
	for _, n := range m.known {
		if n.PairKey == key {
			return n, true
		}
	}
	return model.Nudge{}, false
}

func (m *Merger) Len() int {
	return len(m.known)
}
