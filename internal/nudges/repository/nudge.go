package repository

import (
	"context"
	"errors"
	"fmt"
	nudgeserrors "staymate/internal/nudges/errors"
	"staymate/pkg/config"
	mongodb "staymate/pkg/db/mongo"
	"staymate/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NudgeRepository interface {
	// Insert relies on the unique pair_key index. A lost race returns
	// ErrPairExists.
	Insert(ctx context.Context, nudge *model.Nudge) error
	FindByID(ctx context.Context, id string) (*model.Nudge, error)
	FindByPair(ctx context.Context, pairKey string) (*model.Nudge, error)
	// Respond moves a pending nudge addressed to responder to status.
	Respond(ctx context.Context, id, responder string, status model.NudgeStatus, at time.Time) (*model.Nudge, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]*model.Nudge, error)
}

type mongoNudgeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoNudgeRepository(cfg *config.Config) NudgeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoNudgeRepository{
		cfg:        cfg,
		collection: db.Collection(mongodb.CollectionNudges),
	}
}

func (r *mongoNudgeRepository) Insert(ctx context.Context, nudge *model.Nudge) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if nudge.ID == "" {
		nudge.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collection.InsertOne(ctx, nudge); err != nil {
		if mongodb.IsDuplicateKey(err) {
			return nudgeserrors.ErrPairExists
		}
		return fmt.Errorf("failed to insert nudge: %w", err)
	}
	return nil
}

func (r *mongoNudgeRepository) FindByID(ctx context.Context, id string) (*model.Nudge, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoNudgeRepository) FindByPair(ctx context.Context, pairKey string) (*model.Nudge, error) {
	return r.findOne(ctx, bson.M{"pair_key": pairKey})
}

func (r *mongoNudgeRepository) findOne(ctx context.Context, filter bson.M) (*model.Nudge, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var nudge model.Nudge
	if err := r.collection.FindOne(ctx, filter).Decode(&nudge); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nudgeserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find nudge: %w", err)
	}
	return &nudge, nil
}

func (r *mongoNudgeRepository) Respond(ctx context.Context, id, responder string, status model.NudgeStatus, at time.Time) (*model.Nudge, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":        id,
		"to_user_id": responder,
		"status":     model.NudgePending,
	}
	update := bson.M{"$set": bson.M{
		"status":       status,
		"responded_at": at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var nudge model.Nudge
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&nudge); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nudgeserrors.ErrNotApplicable
		}
		return nil, fmt.Errorf("failed to respond to nudge: %w", err)
	}
	return &nudge, nil
}

func (r *mongoNudgeRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*model.Nudge, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"from_user_id": userID},
		{"to_user_id": userID},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list nudges: %w", err)
	}
	defer cursor.Close(ctx)

	var nudges []*model.Nudge
	if err := cursor.All(ctx, &nudges); err != nil {
		return nil, fmt.Errorf("failed to decode nudges: %w", err)
	}
	return nudges, nil
}
