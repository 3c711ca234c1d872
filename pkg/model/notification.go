package model

import "time"

type NotificationType string

const (
	NotificationPrivateMessage NotificationType = "private_message"
	NotificationNudgeReceived  NotificationType = "nudge_received"
	NotificationNudgeAccepted  NotificationType = "nudge_accepted"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	SourceID  string           `json:"source_id"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}
