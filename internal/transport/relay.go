package transport

import (
	"context"

	"staymate/pkg/kafka"
	"staymate/pkg/logger"
	"staymate/pkg/model"
)

// Publisher receives decoded channel events. The Hub is the usual one.
type Publisher interface {
	Publish(ev model.ChannelEvent)
}

// Relay feeds channel events from the bus into the local hub. Each lobby
// instance consumes with its own group so every instance sees every event.
type Relay struct {
	hub Publisher
	log *logger.Logger
}

func NewRelay(hub Publisher, log *logger.Logger) *Relay {
	return &Relay{hub: hub, log: log}
}

func (r *Relay) Handle(ctx context.Context, msg kafka.Message) error {
	ev, err := DecodeEvent(msg)
	if err != nil {
		return err
	}
	r.hub.Publish(ev)
	r.log.Debug("Relayed channel event", "event_id", ev.ID, "type", ev.Type, "channel_id", ev.ChannelID.String())
	return nil
}
