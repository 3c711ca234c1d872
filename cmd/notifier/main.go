package main

import (
	"staymate/internal/notifications"
	"staymate/pkg/app"
	"staymate/pkg/clock"
	"staymate/pkg/config"
	"staymate/pkg/kafka"
	kafka_config "staymate/pkg/kafka/config"
	kafka_middleware "staymate/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.LoadInternal(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	metrics := kafka_middleware.NewMetrics()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.NotificationsTopic, cfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create notifications producer", "error", err)
	}
	producer.Use(metrics.ProducerMiddleware())

	notifier := notifications.NewNotifier(producer, ServiceName, cfg.NotificationTTL, clock.Real(), cfg.Log)
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.Log,
		cfg.ChannelEventsTopic,
		kafkaCfg.GroupID(ServiceName),
		cfg.DLQTopic,
		notifier.Handle,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create channel events consumer", "error", err)
	}
	consumer.Use(metrics.ConsumerMiddleware())
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Starting notifier", "source_topic", cfg.ChannelEventsTopic, "target_topic", cfg.NotificationsTopic)
	serverApp := app.NewApplication(cfg).WithMetrics(metrics)
	serverApp.SetApp()
	serverApp.Go("consumer", consumer.Start)
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close producer", "error", err)
		}
	})
	serverApp.OnShutdown(func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close consumer", "error", err)
		}
	})
	serverApp.Run()
}
