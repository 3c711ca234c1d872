package model

import "time"

type EventType string

const (
	EventMessageInserted  EventType = "message.inserted"
	EventNudgeChanged     EventType = "nudge.changed"
	EventPresenceSnapshot EventType = "presence.snapshot"
)

// ChannelEvent is what subscribers of a channel receive, in-process and on
// the event bus.
type ChannelEvent struct {
	ID         string           `json:"id"`
	Type       EventType        `json:"type"`
	ChannelID  ChannelID        `json:"channel_id"`
	Message    *Message         `json:"message,omitempty"`
	Nudge      *Nudge           `json:"nudge,omitempty"`
	Presence   []PresenceRecord `json:"presence,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// UserChannel carries events addressed to a single user, such as nudges.
func UserChannel(userID string) ChannelID {
	return ChannelID("user:" + userID)
}
