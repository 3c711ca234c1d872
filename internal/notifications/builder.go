// Package notifications turns private messages and nudge changes into short
// user-facing notices. The builders are shared by the in-session dispatcher
// and the server-side notifier.
package notifications

import (
	"fmt"
	"time"

	"staymate/internal/nudges/merger"
	"staymate/pkg/model"

	"github.com/google/uuid"
)

const previewRunes = 80

// ForMessage notifies the recipient of a private message. Lobby traffic,
// system messages and the viewer's own messages produce nothing.
func ForMessage(msg *model.Message, viewerID string, now time.Time, ttl time.Duration) (model.Notification, bool) {
	if msg == nil || !msg.IsPrivate || msg.IsSystemGenerated {
		return model.Notification{}, false
	}
	if msg.RecipientID != viewerID || msg.SenderID == viewerID {
		return model.Notification{}, false
	}

	body := preview(msg.Text)
	if body == "" {
		body = "Sent you a photo"
	}
	return build(viewerID, model.NotificationPrivateMessage,
		"New message from "+senderName(msg), body, "msg:"+msg.ID, now, ttl), true
}

// ForNudgeDelta notifies the recipient of a new nudge and the sender of an
// accepted one. Rejections stay silent.
func ForNudgeDelta(viewerID string, d merger.Delta, now time.Time, ttl time.Duration) (model.Notification, bool) {
	n := d.Next
	source := fmt.Sprintf("nudge:%s:%s", n.ID, n.Status)

	switch n.Status {
	case model.NudgePending:
		if d.Prev != nil || n.ToUserID != viewerID {
			return model.Notification{}, false
		}
		return build(viewerID, model.NotificationNudgeReceived,
			"New nudge", "Someone nearby wants to chat with you", source, now, ttl), true
	case model.NudgeAccepted:
		if d.Prev != nil && d.Prev.Status != model.NudgePending {
			return model.Notification{}, false
		}
		if n.FromUserID != viewerID {
			return model.Notification{}, false
		}
		return build(viewerID, model.NotificationNudgeAccepted,
			"Nudge accepted", "You can now message each other", source, now, ttl), true
	default:
		return model.Notification{}, false
	}
}

func build(userID string, typ model.NotificationType, title, body, source string, now time.Time, ttl time.Duration) model.Notification {
	return model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		SourceID:  source,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func senderName(msg *model.Message) string {
	if msg.SenderName != "" {
		return msg.SenderName
	}
	return "a traveler"
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes-1]) + "…"
}
