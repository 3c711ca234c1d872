package main

import (
	"context"

	"staymate/internal/access/gate"
	accesshandler "staymate/internal/access/handler"
	accessservice "staymate/internal/access/service"
	"staymate/internal/channelview"
	streamhandler "staymate/internal/channelview/handler"
	keyshandler "staymate/internal/keys/handler"
	keysrepository "staymate/internal/keys/repository"
	keysservice "staymate/internal/keys/service"
	keysvalidator "staymate/internal/keys/validator"
	mediahandler "staymate/internal/media/handler"
	messagehandler "staymate/internal/messages/handler"
	messagerepository "staymate/internal/messages/repository"
	messageservice "staymate/internal/messages/service"
	nudgehandler "staymate/internal/nudges/handler"
	nudgerepository "staymate/internal/nudges/repository"
	nudgeservice "staymate/internal/nudges/service"
	"staymate/internal/transport"
	venuehandler "staymate/internal/venues/handler"
	venuerepository "staymate/internal/venues/repository"
	venueservice "staymate/internal/venues/service"
	"staymate/pkg/app"
	"staymate/pkg/clock"
	"staymate/pkg/config"
	"staymate/pkg/kafka"
	kafka_config "staymate/pkg/kafka/config"
	kafka_middleware "staymate/pkg/kafka/middleware"
	"staymate/pkg/media"
)

const ServiceName = "lobby"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetVerifier()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.Log.Info("Starting Lobby service", "instance_id", cfg.InstanceID)
	clk := clock.Real()

	mediaStore, err := media.NewStore(context.Background(), media.Config{
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		URLTTL:       cfg.MediaURLTTL,
	})
	if err != nil {
		cfg.Log.Fatal("Failed to initialize media store", "error", err)
	}

	profileRepo := keysrepository.NewMongoProfileRepository(cfg)
	profiles := keysservice.NewUserProfileStore(profileRepo, clk, cfg.ProfileUpdateRetries, cfg.Log)
	keyService := keysservice.NewKeyService(
		profiles,
		profileRepo,
		keysvalidator.NewKeyValidator(cfg.Log),
		cfg.KeyLookupPolicy,
		clk,
		cfg.Log,
	)

	venueService := venueservice.NewVenueService(venuerepository.NewMongoVenueRepository(cfg), cfg.Log)

	accessService := accessservice.NewAccessService(
		gate.Deps{
			Keys:     keyService,
			Venues:   venueService,
			Verifier: cfg.Client.Verifier,
			Receipts: mediaStore,
		},
		gate.Options{
			RadiusKm: cfg.ProximityRadiusKm,
			FailOpen: cfg.VerifierFailOpen,
			Clock:    clk,
			Log:      cfg.Log,
		},
		cfg.AccessSessionTTL,
	)

	nudgeService := nudgeservice.NewNudgeService(nudgerepository.NewMongoNudgeRepository(cfg), clk, cfg.Log)
	messageService := messageservice.NewMessageService(
		messagerepository.NewMongoMessageRepository(cfg),
		accessService,
		nudgeService,
		profiles,
		cfg.Log,
	)

	hub := transport.NewHub(transport.HubConfig{
		HeartbeatTimeout: cfg.PresenceHeartbeatTimeout,
		SweepInterval:    cfg.PresenceSweepInterval,
		Clock:            clk,
		Log:              cfg.Log,
	})

	metrics := kafka_middleware.NewMetrics()
	relay, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.Log,
		cfg.ChannelEventsTopic,
		kafkaCfg.GroupID("relay-"+cfg.InstanceID),
		"",
		transport.NewRelay(hub, cfg.Log).Handle,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create relay consumer", "error", err)
	}
	relay.Use(metrics.ConsumerMiddleware())
	if kafkaCfg.EnableMiddleware {
		relay.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	streams := streamhandler.NewStreamHandler(
		channelview.Deps{
			Messages:  messageService,
			Nudges:    nudgeService,
			Transport: hub,
			Clock:     clk,
			Log:       cfg.Log,
		},
		streamhandler.StreamConfig{
			HistoryLimit:      cfg.HistoryLimit,
			NudgePollInterval: cfg.NudgePollInterval,
			HeartbeatInterval: cfg.PresenceHeartbeatTimeout / 3,
			NotificationTTL:   cfg.NotificationTTL,
		},
		accessService,
		nudgeService,
		profiles,
		cfg.Log,
	)

	serverApp := app.NewApplication(cfg).WithMetrics(metrics)
	serverApp.SetApp(
		keyshandler.NewKeyHandler(keyService, cfg.Log),
		venuehandler.NewVenueHandler(venueService, cfg.Log),
		accesshandler.NewAccessHandler(accessService, cfg.Log),
		nudgehandler.NewNudgeHandler(nudgeService, cfg.Log),
		messagehandler.NewMessageHandler(messageService, cfg, cfg.Log),
		mediahandler.NewMediaHandler(mediaStore, cfg.Log),
		streams,
	)
	serverApp.Go("hub", func(ctx context.Context) error {
		hub.Run(ctx)
		return nil
	})
	serverApp.Go("relay", relay.Start)
	serverApp.OnShutdown(accessService.Stop)
	serverApp.OnShutdown(func() {
		if err := relay.Close(); err != nil {
			cfg.Log.Error("Failed to close relay consumer", "error", err)
		}
	})
	serverApp.Run()
}
