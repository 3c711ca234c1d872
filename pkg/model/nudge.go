package model

import (
	"strings"
	"time"
)

type NudgeStatus string

const (
	NudgePending  NudgeStatus = "pending"
	NudgeAccepted NudgeStatus = "accepted"
	NudgeRejected NudgeStatus = "rejected"
)

// Nudge is the consent handshake between two users. There is at most one
// per unordered pair.
type Nudge struct {
	ID          string      `json:"id" bson:"_id,omitempty"`
	PairKey     string      `json:"pair_key" bson:"pair_key"`
	FromUserID  string      `json:"from_user_id" bson:"from_user_id"`
	ToUserID    string      `json:"to_user_id" bson:"to_user_id"`
	Status      NudgeStatus `json:"status" bson:"status"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	RespondedAt *time.Time  `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
}

func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (n Nudge) Involves(userID string) bool {
	return n.FromUserID == userID || n.ToUserID == userID
}

// Other returns the participant that is not userID.
func (n Nudge) Other(userID string) string {
	if n.FromUserID == userID {
		return n.ToUserID
	}
	return n.FromUserID
}

// NudgeState is the handshake as seen by one participant.
type NudgeState string

const (
	NudgeStateNone            NudgeState = "none"
	NudgeStateOutgoingPending NudgeState = "outgoing_pending"
	NudgeStateIncomingPending NudgeState = "incoming_pending"
	NudgeStateAccepted        NudgeState = "accepted"
	NudgeStateRejected        NudgeState = "rejected"
)

func StateFor(n *Nudge, viewerID string) NudgeState {
	if n == nil || !n.Involves(viewerID) {
		return NudgeStateNone
	}
	switch n.Status {
	case NudgeAccepted:
		return NudgeStateAccepted
	case NudgeRejected:
		return NudgeStateRejected
	case NudgePending:
		if n.FromUserID == viewerID {
			return NudgeStateOutgoingPending
		}
		return NudgeStateIncomingPending
	default:
		return NudgeStateNone
	}
}

func ValidUserID(id string) bool {
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, ":| \t\n")
}
