package model

import "time"

// Message is immutable once stored. ImageRef is an object key in the media
// bucket, resolved to a short-lived URL on read.
type Message struct {
	ID                string    `json:"id" bson:"_id,omitempty"`
	ChannelID         ChannelID `json:"channel_id" bson:"channel_id"`
	SenderID          string    `json:"sender_id" bson:"sender_id"`
	SenderName        string    `json:"sender_name" bson:"sender_name"`
	SenderAvatar      string    `json:"sender_avatar,omitempty" bson:"sender_avatar,omitempty"`
	Text              string    `json:"text,omitempty" bson:"text,omitempty"`
	ImageRef          string    `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	IsPrivate         bool      `json:"is_private" bson:"is_private"`
	RecipientID       string    `json:"recipient_id,omitempty" bson:"recipient_id,omitempty"`
	IsSystemGenerated bool      `json:"is_system_generated" bson:"is_system_generated"`
}

func (m Message) HasContent() bool {
	return m.Text != "" || m.ImageRef != ""
}
