package transport

import (
	"context"
	"testing"
	"time"

	"staymate/internal/presence"
	"staymate/pkg/clock"
	"staymate/pkg/logger"
	"staymate/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lobby = model.HotelLobby("h1")

func newTestHub(clk clock.Clock, buffer int) *Hub {
	return NewHub(HubConfig{
		HeartbeatTimeout: 30 * time.Second,
		SweepInterval:    10 * time.Second,
		Buffer:           buffer,
		Clock:            clk,
		Log:              logger.Discard(),
	})
}

func drain(sub presence.Subscription) []model.ChannelEvent {
	var out []model.ChannelEvent
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPublish_PerChannelOrder(t *testing.T) {
	hub := newTestHub(clock.Fake(time.Now()), 16)
	sub, err := hub.Subscribe(context.Background(), lobby)
	require.NoError(t, err)
	other, err := hub.Subscribe(context.Background(), model.HotelLobby("h2"))
	require.NoError(t, err)

	for _, id := range []string{"m1", "m2", "m3"} {
		hub.Publish(model.ChannelEvent{Type: model.EventMessageInserted, ChannelID: lobby, Message: &model.Message{ID: id}})
	}

	events := drain(sub)
	require.Len(t, events, 3)
	assert.Equal(t, "m1", events[0].Message.ID)
	assert.Equal(t, "m3", events[2].Message.ID)
	assert.Empty(t, drain(other))
}

func TestTrack_BroadcastsSnapshot(t *testing.T) {
	hub := newTestHub(clock.Fake(time.Now()), 16)
	ctx := context.Background()
	a, _ := hub.Subscribe(ctx, lobby)
	b, _ := hub.Subscribe(ctx, lobby)

	require.NoError(t, a.Track(model.PresenceRecord{UserID: "a", Name: "A"}))
	require.NoError(t, b.Track(model.PresenceRecord{UserID: "b", Name: "B"}))

	events := drain(a)
	require.Len(t, events, 2)
	last := events[1]
	assert.Equal(t, model.EventPresenceSnapshot, last.Type)
	assert.Equal(t, []model.PresenceRecord{{UserID: "a", Name: "A"}, {UserID: "b", Name: "B"}}, last.Presence)

	b.Close()
	events = drain(a)
	require.Len(t, events, 1)
	assert.Equal(t, []model.PresenceRecord{{UserID: "a", Name: "A"}}, events[0].Presence)

	drain(b)
	_, open := <-b.Events()
	assert.False(t, open)
	assert.ErrorIs(t, b.Track(model.PresenceRecord{UserID: "b", Name: "B"}), ErrSubscriptionClosed)
}

func TestTrack_RejectsInvalidRecord(t *testing.T) {
	hub := newTestHub(clock.Fake(time.Now()), 16)
	sub, _ := hub.Subscribe(context.Background(), lobby)

	assert.Error(t, sub.Track(model.PresenceRecord{UserID: "a"}))
	assert.Empty(t, hub.Snapshot(lobby))
}

func TestSweep_HeartbeatTimeout(t *testing.T) {
	clk := clock.Fake(time.Now())
	hub := newTestHub(clk, 16)
	ctx := context.Background()
	a, _ := hub.Subscribe(ctx, lobby)
	b, _ := hub.Subscribe(ctx, lobby)
	require.NoError(t, a.Track(model.PresenceRecord{UserID: "a", Name: "A"}))
	require.NoError(t, b.Track(model.PresenceRecord{UserID: "b", Name: "B"}))
	drain(a)

	clk.Advance(20 * time.Second)
	require.NoError(t, a.Heartbeat())
	clk.Advance(15 * time.Second)

	assert.Equal(t, 1, hub.Sweep())
	events := drain(a)
	require.Len(t, events, 1)
	assert.Equal(t, []model.PresenceRecord{{UserID: "a", Name: "A"}}, events[0].Presence)

	assert.ErrorIs(t, b.Heartbeat(), presence.ErrNotTracked)
	assert.Equal(t, 0, hub.Sweep())
}

func TestSnapshot_UserAttachedTwiceAppearsOnce(t *testing.T) {
	hub := newTestHub(clock.Fake(time.Now()), 16)
	ctx := context.Background()
	first, _ := hub.Subscribe(ctx, lobby)
	second, _ := hub.Subscribe(ctx, lobby)
	require.NoError(t, first.Track(model.PresenceRecord{UserID: "a", Name: "Old"}))
	require.NoError(t, second.Track(model.PresenceRecord{UserID: "a", Name: "New"}))

	assert.Equal(t, []model.PresenceRecord{{UserID: "a", Name: "New"}}, hub.Snapshot(lobby))
}

func TestPublish_DisconnectsSlowSubscriber(t *testing.T) {
	hub := newTestHub(clock.Fake(time.Now()), 1)
	sub, _ := hub.Subscribe(context.Background(), lobby)

	hub.Publish(model.ChannelEvent{ChannelID: lobby, Type: model.EventMessageInserted})
	hub.Publish(model.ChannelEvent{ChannelID: lobby, Type: model.EventMessageInserted})

	events := drain(sub)
	assert.Len(t, events, 1)
	assert.Equal(t, 0, hub.Subscribers(lobby))
}
