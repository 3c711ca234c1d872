package transport

import (
	"errors"
	"fmt"
	"time"

	"staymate/pkg/kafka"
	"staymate/pkg/model"

	"github.com/google/uuid"
)

var errUnroutable = errors.New("event has no channel")

// MessageEvent wraps a stored message for its channel.
func MessageEvent(msg *model.Message, at time.Time) model.ChannelEvent {
	return model.ChannelEvent{
		ID:         "msg:" + msg.ID,
		Type:       model.EventMessageInserted,
		ChannelID:  msg.ChannelID,
		Message:    msg,
		OccurredAt: at,
	}
}

// MessageEvents addresses a stored message to its channel and, when it is
// private, to the recipient's inbox as well so the recipient hears of it
// from any view.
func MessageEvents(msg *model.Message, at time.Time) []model.ChannelEvent {
	events := []model.ChannelEvent{MessageEvent(msg, at)}
	if msg.IsPrivate && msg.RecipientID != "" {
		inbox := MessageEvent(msg, at)
		inbox.ChannelID = model.UserChannel(msg.RecipientID)
		events = append(events, inbox)
	}
	return events
}

// NudgeEvents addresses a nudge change to both participants.
func NudgeEvents(n *model.Nudge, at time.Time) []model.ChannelEvent {
	id := fmt.Sprintf("nudge:%s:%s", n.ID, n.Status)
	events := make([]model.ChannelEvent, 0, 2)
	for _, user := range []string{n.FromUserID, n.ToUserID} {
		events = append(events, model.ChannelEvent{
			ID:         id,
			Type:       model.EventNudgeChanged,
			ChannelID:  model.UserChannel(user),
			Nudge:      n,
			OccurredAt: at,
		})
	}
	return events
}

// EncodeEvent keys the record by channel so one channel stays on one
// partition and keeps its order.
func EncodeEvent(ev model.ChannelEvent, source string) (kafka.Message, error) {
	if ev.ChannelID == "" {
		return kafka.Message{}, errUnroutable
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return kafka.NewMessage().
		WithKey(ev.ChannelID.String()).
		WithValue(ev).
		WithEventID(ev.ID).
		WithEventType(string(ev.Type)).
		WithSource(source).
		WithTimestamp(ev.OccurredAt).
		Build()
}

func DecodeEvent(msg kafka.Message) (model.ChannelEvent, error) {
	var ev model.ChannelEvent
	if err := msg.DecodeValue(&ev); err != nil {
		return model.ChannelEvent{}, err
	}
	if ev.ChannelID == "" {
		return model.ChannelEvent{}, kafka.NewPermanentError("decode channel event", errUnroutable)
	}
	switch ev.Type {
	case model.EventMessageInserted:
		if ev.Message == nil {
			return model.ChannelEvent{}, kafka.NewPermanentError("decode channel event", errors.New("insert without message"))
		}
	case model.EventNudgeChanged:
		if ev.Nudge == nil {
			return model.ChannelEvent{}, kafka.NewPermanentError("decode channel event", errors.New("nudge event without nudge"))
		}
	case model.EventPresenceSnapshot:
	default:
		return model.ChannelEvent{}, kafka.NewPermanentError("decode channel event", fmt.Errorf("unknown event type %q", ev.Type))
	}
	return ev, nil
}
