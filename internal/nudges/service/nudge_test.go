package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

func newTestService(repo *memoryNudgeRepository) NudgeService {
	return NewNudgeService(repo, clock.Fake(testNow), logger.Discard())
}

func TestSend_CreatesPendingNudge(t *testing.T) {
	repo := newMemoryNudgeRepository()
	svc := newTestService(repo)

	nudge, created, err := svc.Send(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.NudgePending, nudge.Status)
	assert.Equal(t, "alice|bob", nudge.PairKey)
	assert.Equal(t, testNow, nudge.CreatedAt)
}

func TestSend_ExistingPairReturnedUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{"same direction", "alice", "bob"},
		{"reverse direction", "bob", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryNudgeRepository()
			svc := newTestService(repo)
			ctx := context.Background()

			first, _, err := svc.Send(ctx, "alice", "bob")
			require.NoError(t, err)

			again, created, err := svc.Send(ctx, tt.from, tt.to)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, first.ID, again.ID)
			assert.Equal(t, "alice", again.FromUserID)
		})
	}
}

func TestSend_ConcurrentWriterWins(t *testing.T) {
	repo := newMemoryNudgeRepository()
	svc := newTestService(repo)
	repo.beforeInsert = func() {
		repo.put(model.Nudge{ID: "theirs", PairKey: "alice|bob", FromUserID: "bob", ToUserID: "alice", Status: model.NudgePending})
	}

	nudge, created, err := svc.Send(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "theirs", nudge.ID)
	assert.Equal(t, model.StateFor(nudge, "alice"), model.NudgeStateIncomingPending)
}

func TestSend_InvalidPair(t *testing.T) {
	svc := newTestService(newMemoryNudgeRepository())

	for _, pair := range [][2]string{{"alice", "alice"}, {"", "bob"}, {"alice", "b|ob"}} {
		_, _, err := svc.Send(context.Background(), pair[0], pair[1])
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "pair %v: %v", pair, err)
	}
}

func TestSend_RepositoryFailure(t *testing.T) {
	repo := newMemoryNudgeRepository()
	repo.findErr = errors.New("connection reset")
	svc := newTestService(repo)

	_, _, err := svc.Send(context.Background(), "alice", "bob")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestRespond_OnlyRecipientOfPendingChangesIt(t *testing.T) {
	tests := []struct {
		name        string
		status      model.NudgeStatus
		responder   string
		accept      bool
		wantChanged bool
		wantStatus  model.NudgeStatus
	}{
		{"recipient accepts", model.NudgePending, "bob", true, true, model.NudgeAccepted},
		{"recipient rejects", model.NudgePending, "bob", false, true, model.NudgeRejected},
		{"sender cannot answer", model.NudgePending, "alice", true, false, model.NudgePending},
		{"rejected is terminal", model.NudgeRejected, "bob", true, false, model.NudgeRejected},
		{"accepted stays accepted", model.NudgeAccepted, "bob", false, false, model.NudgeAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryNudgeRepository()
			repo.put(model.Nudge{ID: "n1", PairKey: "alice|bob", FromUserID: "alice", ToUserID: "bob", Status: tt.status})
			svc := newTestService(repo)

			nudge, changed, err := svc.Respond(context.Background(), "n1", tt.responder, tt.accept)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantStatus, nudge.Status)
			if tt.wantChanged {
				require.NotNil(t, nudge.RespondedAt)
				assert.Equal(t, testNow, *nudge.RespondedAt)
			}
		})
	}
}

func TestRespond_OutsiderSeesNotFound(t *testing.T) {
	repo := newMemoryNudgeRepository()
	repo.put(model.Nudge{ID: "n1", PairKey: "alice|bob", FromUserID: "alice", ToUserID: "bob", Status: model.NudgePending})
	svc := newTestService(repo)

	_, _, err := svc.Respond(context.Background(), "n1", "carol", true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, _, err = svc.Respond(context.Background(), "missing", "bob", true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestState_RelativeToViewer(t *testing.T) {
	repo := newMemoryNudgeRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	view, err := svc.State(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, model.NudgeStateNone, view.State)
	assert.Nil(t, view.Nudge)

	_, _, err = svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)

	view, err = svc.State(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, model.NudgeStateOutgoingPending, view.State)

	view, err = svc.State(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, model.NudgeStateIncomingPending, view.State)
}

func TestCanMessage_OnlyAfterAccept(t *testing.T) {
	repo := newMemoryNudgeRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	ok, err := svc.CanMessage(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	nudge, _, err := svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)
	ok, err = svc.CanMessage(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok, "pending must not unlock")

	_, _, err = svc.Respond(ctx, nudge.ID, "bob", true)
	require.NoError(t, err)
	ok, err = svc.CanMessage(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanMessage_RejectedStaysLocked(t *testing.T) {
	repo := newMemoryNudgeRepository()
	repo.put(model.Nudge{ID: "n1", PairKey: "alice|bob", FromUserID: "alice", ToUserID: "bob", Status: model.NudgeRejected})
	svc := newTestService(repo)

	ok, err := svc.CanMessage(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	// A fresh send returns the rejected record instead of reopening.
	nudge, created, err := svc.Send(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.NudgeRejected, nudge.Status)
}

func TestListForUser(t *testing.T) {
	repo := newMemoryNudgeRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	list, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, _, err = svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)
	_, _, err = svc.Send(ctx, "carol", "alice")
	require.NoError(t, err)
	_, _, err = svc.Send(ctx, "bob", "carol")
	require.NoError(t, err)

	list, err = svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
