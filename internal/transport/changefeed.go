package transport

import (
	"context"
	"fmt"
	"time"

	"staymate/pkg/clock"
	"staymate/pkg/kafka"
	"staymate/pkg/logger"
	"staymate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChangeStream is the part of *mongo.ChangeStream the feed reads.
type ChangeStream interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	ResumeToken() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

// WatchFunc opens a change stream, resuming after token when it is set.
type WatchFunc func(ctx context.Context, resumeAfter bson.Raw) (ChangeStream, error)

// CollectionWatcher watches one collection for the given operation types and
// asks for the full document on updates.
func CollectionWatcher(coll *mongo.Collection, operations ...string) WatchFunc {
	return func(ctx context.Context, resumeAfter bson.Raw) (ChangeStream, error) {
		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": operations}}}},
		}
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		if resumeAfter != nil {
			opts.SetResumeAfter(resumeAfter)
		}
		return coll.Watch(ctx, pipeline, opts)
	}
}

type messageChange struct {
	FullDocument *model.Message `bson:"fullDocument"`
}

type nudgeChange struct {
	FullDocument *model.Nudge `bson:"fullDocument"`
}

// ChangeFeed turns stored messages and nudge changes into channel events on
// the bus. Delivery is at least once: after a restart without a resume token
// only new changes are seen, and a crash between publish and token update
// republishes.
type ChangeFeed struct {
	publisher kafka.Publisher
	source    string
	backoff   time.Duration
	clock     clock.Clock
	log       *logger.Logger
}

func NewChangeFeed(publisher kafka.Publisher, source string, clk clock.Clock, log *logger.Logger) *ChangeFeed {
	return &ChangeFeed{
		publisher: publisher,
		source:    source,
		backoff:   2 * time.Second,
		clock:     clk,
		log:       log.With("component", "change-feed"),
	}
}

// Messages follows inserted messages until ctx ends.
func (f *ChangeFeed) Messages(ctx context.Context, watch WatchFunc) error {
	return f.follow(ctx, "messages", watch, func(cs ChangeStream) ([]model.ChannelEvent, error) {
		var change messageChange
		if err := cs.Decode(&change); err != nil {
			return nil, err
		}
		if change.FullDocument == nil {
			return nil, nil
		}
		return MessageEvents(change.FullDocument, f.clock.Now().UTC()), nil
	})
}

// Nudges follows nudge inserts and status updates until ctx ends.
func (f *ChangeFeed) Nudges(ctx context.Context, watch WatchFunc) error {
	return f.follow(ctx, "nudges", watch, func(cs ChangeStream) ([]model.ChannelEvent, error) {
		var change nudgeChange
		if err := cs.Decode(&change); err != nil {
			return nil, err
		}
		if change.FullDocument == nil {
			return nil, nil
		}
		return NudgeEvents(change.FullDocument, f.clock.Now().UTC()), nil
	})
}

func (f *ChangeFeed) follow(ctx context.Context, name string, watch WatchFunc, decode func(ChangeStream) ([]model.ChannelEvent, error)) error {
	log := f.log.With("stream", name)
	var token bson.Raw

	for {
		cs, err := watch(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Failed to open change stream", "error", err)
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}
		log.Info("Change stream opened", "resumed", token != nil)

		token, err = f.drain(ctx, cs, token, decode, log)
		if closeErr := cs.Close(context.Background()); closeErr != nil {
			log.Warn("Failed to close change stream", "error", closeErr)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Change stream interrupted, reopening", "error", err)
		if !f.wait(ctx) {
			return ctx.Err()
		}
	}
}

// drain publishes every change and returns the last token whose events all
// reached the bus.
func (f *ChangeFeed) drain(ctx context.Context, cs ChangeStream, token bson.Raw, decode func(ChangeStream) ([]model.ChannelEvent, error), log *logger.Logger) (bson.Raw, error) {
	for cs.Next(ctx) {
		events, err := decode(cs)
		if err != nil {
			log.Error("Skipping undecodable change", "error", err)
			token = cs.ResumeToken()
			continue
		}

		for _, ev := range events {
			if err := f.publish(ctx, ev); err != nil {
				return token, err
			}
		}
		token = cs.ResumeToken()
	}
	return token, cs.Err()
}

func (f *ChangeFeed) publish(ctx context.Context, ev model.ChannelEvent) error {
	msg, err := EncodeEvent(ev, f.source)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.ID, err)
	}
	if err := f.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.ID, err)
	}
	return nil
}

func (f *ChangeFeed) wait(ctx context.Context) bool {
	elapsed := make(chan struct{})
	timer := f.clock.AfterFunc(f.backoff, func() { close(elapsed) })
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-elapsed:
		return true
	}
}
