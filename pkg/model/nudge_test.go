package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKey_Symmetric(t *testing.T) {
	assert.Equal(t, "a|b", PairKey("a", "b"))
	assert.Equal(t, "a|b", PairKey("b", "a"))
}

func TestStateFor(t *testing.T) {
	pending := &Nudge{FromUserID: "a", ToUserID: "b", Status: NudgePending}
	accepted := &Nudge{FromUserID: "a", ToUserID: "b", Status: NudgeAccepted}
	rejected := &Nudge{FromUserID: "a", ToUserID: "b", Status: NudgeRejected}

	tests := []struct {
		name   string
		nudge  *Nudge
		viewer string
		want   NudgeState
	}{
		{"no nudge", nil, "a", NudgeStateNone},
		{"sender sees outgoing", pending, "a", NudgeStateOutgoingPending},
		{"recipient sees incoming", pending, "b", NudgeStateIncomingPending},
		{"accepted for both", accepted, "b", NudgeStateAccepted},
		{"rejected for sender", rejected, "a", NudgeStateRejected},
		{"outsider sees none", pending, "c", NudgeStateNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateFor(tt.nudge, tt.viewer))
		})
	}
}

func TestPresenceRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  PresenceRecord
		wantErr bool
	}{
		{"valid", PresenceRecord{UserID: "u1", Name: "Ana"}, false},
		{"missing id", PresenceRecord{Name: "Ana"}, true},
		{"id with separator", PresenceRecord{UserID: "u:1", Name: "Ana"}, true},
		{"missing name", PresenceRecord{UserID: "u1"}, true},
		{"bio too long", PresenceRecord{UserID: "u1", Name: "Ana", Bio: string(make([]byte, 281))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
