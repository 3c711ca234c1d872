package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mongoMigration "staymate/internal/migrations/mongo"
	venuerepository "staymate/internal/venues/repository"
	venueservice "staymate/internal/venues/service"
	"staymate/pkg/config"
	"staymate/pkg/model"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.LoadInternal(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()

	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Client, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	if cfg.VenueSeedFile != "" {
		if err := seedVenues(ctx, cfg); err != nil {
			cfg.GracefulShutdown()
			cfg.Log.Fatal("Venue seeding failed", "error", err, "file", cfg.VenueSeedFile)
		}
	}
	cfg.Log.Info("Migration completed successfully")
}

func seedVenues(ctx context.Context, cfg *config.Config) error {
	raw, err := os.ReadFile(cfg.VenueSeedFile)
	if err != nil {
		return err
	}
	var venues []*model.Venue
	if err := json.Unmarshal(raw, &venues); err != nil {
		return fmt.Errorf("decode venues: %w", err)
	}

	service := venueservice.NewVenueService(venuerepository.NewMongoVenueRepository(cfg), cfg.Log)
	for _, venue := range venues {
		if err := service.Save(ctx, venue); err != nil {
			return fmt.Errorf("save venue %q: %w", venue.ID, err)
		}
	}
	cfg.Log.Info("Venues seeded", "count", len(venues))
	return nil
}
