package service

import (
	"context"
	"fmt"
	keyserrors "staymate/internal/keys/errors"
	"staymate/pkg/model"
	"sync"
	"time"
)

// memoryProfileRepository keeps profiles in memory and enforces the same
// version check as the Mongo repository.
type memoryProfileRepository struct {
	mu    sync.Mutex
	users map[string]model.User

	// beforeWrite runs ahead of every write, letting tests slip in a
	// concurrent writer.
	beforeWrite func(userID string)
	findErr     error
	writes      int
}

func newMemoryProfileRepository() *memoryProfileRepository {
	return &memoryProfileRepository{users: make(map[string]model.User)}
}

func (m *memoryProfileRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", keyserrors.ErrProfileNotFound, id)
	}
	return clone(u), nil
}

func (m *memoryProfileRepository) Insert(ctx context.Context, user *model.User) error {
	if m.beforeWrite != nil {
		m.beforeWrite(user.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return keyserrors.ErrVersionConflict
	}
	m.users[user.ID] = *clone(*user)
	m.writes++
	return nil
}

func (m *memoryProfileRepository) ReplaceIfVersion(ctx context.Context, user *model.User, expected int64) error {
	if m.beforeWrite != nil {
		m.beforeWrite(user.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.users[user.ID]
	if !ok || current.Version != expected {
		return keyserrors.ErrVersionConflict
	}
	m.users[user.ID] = *clone(*user)
	m.writes++
	return nil
}

func (m *memoryProfileRepository) ForEachWithExpiredKeys(ctx context.Context, now time.Time, fn func(userID string) error) error {
	m.mu.Lock()
	var ids []string
	for id, u := range m.users {
		for _, k := range u.DigitalKeys {
			if k.Status == model.KeyActive && k.CheckOut.Before(now) {
				ids = append(ids, id)
				break
			}
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

// bump simulates another writer committing a change.
func (m *memoryProfileRepository) bump(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.Version++
	m.users[userID] = u
}

func (m *memoryProfileRepository) put(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *clone(u)
}

func (m *memoryProfileRepository) get(id string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *clone(m.users[id])
}

func clone(u model.User) *model.User {
	u.DigitalKeys = append([]model.DigitalKey(nil), u.DigitalKeys...)
	return &u
}
