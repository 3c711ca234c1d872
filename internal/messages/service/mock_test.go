package service

import (
	"context"
	"fmt"
	"sort"
	"staymate/pkg/model"
	"sync"
	"time"

	apperrors "staymate/pkg/errors"
)

type memoryMessageRepository struct {
	mu        sync.Mutex
	messages  []*model.Message
	now       time.Time
	insertErr error
}

func (m *memoryMessageRepository) Insert(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return m.insertErr
	}
	msg.ID = fmt.Sprintf("m%03d", len(m.messages)+1)
	msg.CreatedAt = m.now.Add(time.Duration(len(m.messages)) * time.Second)
	stored := *msg
	m.messages = append(m.messages, &stored)
	return nil
}

func (m *memoryMessageRepository) Page(ctx context.Context, channel model.ChannelID, limit int, before *time.Time) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*model.Message
	for _, msg := range m.messages {
		if msg.ChannelID != channel {
			continue
		}
		if before != nil && !msg.CreatedAt.Before(*before) {
			continue
		}
		matched = append(matched, msg)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (m *memoryMessageRepository) Count(ctx context.Context, channel model.ChannelID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, msg := range m.messages {
		if msg.ChannelID == channel {
			n++
		}
	}
	return n, nil
}

type mockAccess struct {
	isGrantedFunc func(ctx context.Context, userID string, channel model.ChannelID) (bool, error)
}

func (m *mockAccess) IsGranted(ctx context.Context, userID string, channel model.ChannelID) (bool, error) {
	if m.isGrantedFunc != nil {
		return m.isGrantedFunc(ctx, userID, channel)
	}
	return false, nil
}

type mockConsent struct {
	canMessageFunc func(ctx context.Context, a, b string) (bool, error)
}

func (m *mockConsent) CanMessage(ctx context.Context, a, b string) (bool, error) {
	if m.canMessageFunc != nil {
		return m.canMessageFunc(ctx, a, b)
	}
	return false, nil
}

type mockProfiles struct {
	users map[string]*model.User
}

func (m *mockProfiles) Get(ctx context.Context, userID string) (*model.User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, apperrors.NotFoundWithID("User", userID)
}
