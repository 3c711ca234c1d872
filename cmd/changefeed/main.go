package main

import (
	"context"

	"staymate/internal/transport"
	"staymate/pkg/app"
	"staymate/pkg/clock"
	"staymate/pkg/config"
	mongodb "staymate/pkg/db/mongo"
	"staymate/pkg/kafka"
	kafka_config "staymate/pkg/kafka/config"
	kafka_middleware "staymate/pkg/kafka/middleware"
)

// ServiceName runs as a single replica: two feeds would publish every
// change twice.
const ServiceName = "changefeed"

func main() {
	cfg := config.LoadInternal(ServiceName)
	cfg.SetMongo()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.ChannelEventsTopic, cfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create channel events producer", "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	producer.Use(metrics.ProducerMiddleware())
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	feed := transport.NewChangeFeed(producer, ServiceName, clock.Real(), cfg.Log)

	cfg.Log.Info("Starting change feed", "topic", cfg.ChannelEventsTopic)
	serverApp := app.NewApplication(cfg).WithMetrics(metrics)
	serverApp.SetApp()
	serverApp.Go("messages", func(ctx context.Context) error {
		return feed.Messages(ctx, transport.CollectionWatcher(db.Collection(mongodb.CollectionMessages), "insert"))
	})
	serverApp.Go("nudges", func(ctx context.Context) error {
		return feed.Nudges(ctx, transport.CollectionWatcher(db.Collection(mongodb.CollectionNudges), "insert", "update", "replace"))
	})
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close producer", "error", err)
		}
	})
	serverApp.Run()
}
