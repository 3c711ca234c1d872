package repository

import (
	"context"
	"errors"
	"fmt"
	keyserrors "staymate/internal/keys/errors"
	"staymate/pkg/config"
	mongodb "staymate/pkg/db/mongo"
	"staymate/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	// Insert stores a new profile. A duplicate id is a version conflict.
	Insert(ctx context.Context, user *model.User) error
	// ReplaceIfVersion writes user only if the stored version is expected.
	ReplaceIfVersion(ctx context.Context, user *model.User, expected int64) error
	// ForEachWithExpiredKeys streams ids of users holding an active key
	// whose check-out is before now.
	ForEachWithExpiredKeys(ctx context.Context, now time.Time, fn func(userID string) error) error
}

type mongoProfileRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoProfileRepository(cfg *config.Config) ProfileRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoProfileRepository{
		cfg:        cfg,
		collection: db.Collection(mongodb.CollectionUsers),
	}
}

func (r *mongoProfileRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var user model.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", keyserrors.ErrProfileNotFound, id)
		}
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	return &user, nil
}

func (r *mongoProfileRepository) Insert(ctx context.Context, user *model.User) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongodb.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", keyserrors.ErrVersionConflict, user.ID)
		}
		return fmt.Errorf("failed to insert user profile: %w", err)
	}
	return nil
}

func (r *mongoProfileRepository) ReplaceIfVersion(ctx context.Context, user *model.User, expected int64) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID, "version": expected}, user)
	if err != nil {
		return fmt.Errorf("failed to replace user profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s at version %d", keyserrors.ErrVersionConflict, user.ID, expected)
	}
	return nil
}

func (r *mongoProfileRepository) ForEachWithExpiredKeys(ctx context.Context, now time.Time, fn func(userID string) error) error {
	filter := bson.M{
		"digital_keys": bson.M{"$elemMatch": bson.M{
			"status":    model.KeyActive,
			"check_out": bson.M{"$lt": now},
		}},
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetBatchSize(200)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to query users with expired keys: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode user id: %w", err)
		}
		if err := fn(doc.ID); err != nil {
			return err
		}
	}
	return cursor.Err()
}
