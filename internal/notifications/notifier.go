package notifications

import (
	"context"
	"time"

	"staymate/internal/nudges/merger"
	"staymate/internal/transport"
	"staymate/pkg/clock"
	"staymate/pkg/kafka"
	"staymate/pkg/logger"
	"staymate/pkg/model"
)

const EventTypeNotification = "notification.created"

// Notifier consumes channel events from the bus and publishes notifications
// for the push collaborator. A redelivered event yields a notification with
// the same event id, so downstream can drop it.
type Notifier struct {
	publisher kafka.Publisher
	source    string
	ttl       time.Duration
	clock     clock.Clock
	log       *logger.Logger
}

func NewNotifier(publisher kafka.Publisher, source string, ttl time.Duration, clk clock.Clock, log *logger.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		source:    source,
		ttl:       ttl,
		clock:     clk,
		log:       log,
	}
}

func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	ev, err := transport.DecodeEvent(msg)
	if err != nil {
		return err
	}

	note, ok := n.build(ev)
	if !ok {
		return nil
	}

	out, err := kafka.NewMessage().
		WithKey(note.UserID).
		WithValue(note).
		WithEventID(note.SourceID + ":" + note.UserID).
		WithEventType(EventTypeNotification).
		WithCorrelationID(ev.ID).
		WithSource(n.source).
		WithTimestamp(note.CreatedAt).
		Build()
	if err != nil {
		return kafka.NewPermanentError("encode notification", err)
	}
	if err := n.publisher.Publish(ctx, out); err != nil {
		return kafka.NewTransientError("publish notification", err)
	}

	n.log.Info("Notification published", "user_id", note.UserID, "type", note.Type, "source_id", note.SourceID)
	return nil
}

func (n *Notifier) build(ev model.ChannelEvent) (model.Notification, bool) {
	now := n.clock.Now()
	switch ev.Type {
	case model.EventMessageInserted:
		// Private messages also arrive on the recipient's inbox; only that
		// copy is answered.
		if ev.Message == nil || ev.ChannelID != model.UserChannel(ev.Message.RecipientID) {
			return model.Notification{}, false
		}
		return ForMessage(ev.Message, ev.Message.RecipientID, now, n.ttl)
	case model.EventNudgeChanged:
		if ev.Nudge == nil {
			return model.Notification{}, false
		}
		// Each change arrives once per participant; answer only the copy
		// addressed to the user being notified.
		for _, user := range []string{ev.Nudge.FromUserID, ev.Nudge.ToUserID} {
			if ev.ChannelID != model.UserChannel(user) {
				continue
			}
			return ForNudgeDelta(user, merger.Delta{Next: *ev.Nudge}, now, n.ttl)
		}
	}
	return model.Notification{}, false
}
