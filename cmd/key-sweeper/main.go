package main

import (
	"context"
	"time"

	keysrepository "staymate/internal/keys/repository"
	keysservice "staymate/internal/keys/service"
	keysvalidator "staymate/internal/keys/validator"
	"staymate/pkg/clock"
	"staymate/pkg/config"
)

const JobName = "key-sweeper"

const sweepTimeout = 10 * time.Minute

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	cfg := config.LoadInternal(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting digital key sweep")
	defer cfg.GracefulShutdown()

	clk := clock.Real()
	repo := keysrepository.NewMongoProfileRepository(cfg)
	keyService := keysservice.NewKeyService(
		keysservice.NewUserProfileStore(repo, clk, cfg.ProfileUpdateRetries, cfg.Log),
		repo,
		keysvalidator.NewKeyValidator(cfg.Log),
		cfg.KeyLookupPolicy,
		clk,
		cfg.Log,
	)

	swept, err := keyService.SweepAll(ctx)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Key sweep failed", "error", err, "users_swept", swept)
	}
	cfg.Log.Info("Key sweep completed", "users_swept", swept)
}
