package service

import (
	"context"
	"fmt"
	"sort"
	nudgeserrors "staymate/internal/nudges/errors"
	"staymate/pkg/model"
	"sync"
	"time"
)

// memoryNudgeRepository enforces the unique pair key and the conditional
// response filter of the Mongo repository.
type memoryNudgeRepository struct {
	mu     sync.Mutex
	nudges map[string]model.Nudge
	seq    int

	// beforeInsert runs ahead of the uniqueness check so tests can model a
	// concurrent writer winning the race.
	beforeInsert func()
	findErr      error
}

func newMemoryNudgeRepository() *memoryNudgeRepository {
	return &memoryNudgeRepository{nudges: make(map[string]model.Nudge)}
}

func (m *memoryNudgeRepository) Insert(ctx context.Context, nudge *model.Nudge) error {
	if m.beforeInsert != nil {
		hook := m.beforeInsert
		m.beforeInsert = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.nudges {
		if n.PairKey == nudge.PairKey {
			return nudgeserrors.ErrPairExists
		}
	}
	if nudge.ID == "" {
		m.seq++
		nudge.ID = fmt.Sprintf("n%d", m.seq)
	}
	m.nudges[nudge.ID] = *nudge
	return nil
}

func (m *memoryNudgeRepository) FindByID(ctx context.Context, id string) (*model.Nudge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nudges[id]
	if !ok {
		return nil, nudgeserrors.ErrNotFound
	}
	return &n, nil
}

func (m *memoryNudgeRepository) FindByPair(ctx context.Context, pairKey string) (*model.Nudge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, n := range m.nudges {
		if n.PairKey == pairKey {
			return &n, nil
		}
	}
	return nil, nudgeserrors.ErrNotFound
}

func (m *memoryNudgeRepository) Respond(ctx context.Context, id, responder string, status model.NudgeStatus, at time.Time) (*model.Nudge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nudges[id]
	if !ok || n.ToUserID != responder || n.Status != model.NudgePending {
		return nil, nudgeserrors.ErrNotApplicable
	}
	n.Status = status
	n.RespondedAt = &at
	m.nudges[id] = n
	return &n, nil
}

func (m *memoryNudgeRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*model.Nudge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Nudge
	for _, n := range m.nudges {
		if n.Involves(userID) {
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryNudgeRepository) put(n model.Nudge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nudges[n.ID] = n
}
