package repository

import (
	"context"
	"errors"
	"fmt"
	venueserrors "staymate/internal/venues/errors"
	"staymate/pkg/config"
	mongodb "staymate/pkg/db/mongo"
	"staymate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type VenueRepository interface {
	FindByID(ctx context.Context, id string) (*model.Venue, error)
	FindByCity(ctx context.Context, city string, limit int) ([]*model.Venue, error)
	Upsert(ctx context.Context, venue *model.Venue) error
}

type mongoVenueRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVenueRepository(cfg *config.Config) VenueRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVenueRepository{
		cfg:        cfg,
		collection: db.Collection(mongodb.CollectionVenues),
	}
}

func (r *mongoVenueRepository) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var venue model.Venue
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&venue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, venueserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find venue: %w", err)
	}
	return &venue, nil
}

func (r *mongoVenueRepository) FindByCity(ctx context.Context, city string, limit int) ([]*model.Venue, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"city_slug": model.CitySlug(city)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find venues: %w", err)
	}
	defer cursor.Close(ctx)

	var venues []*model.Venue
	if err := cursor.All(ctx, &venues); err != nil {
		return nil, fmt.Errorf("failed to decode venues: %w", err)
	}
	return venues, nil
}

func (r *mongoVenueRepository) Upsert(ctx context.Context, venue *model.Venue) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":      venue.Name,
		"city":      venue.City,
		"city_slug": model.CitySlug(venue.City),
		"latitude":  venue.Latitude,
		"longitude": venue.Longitude,
	}}
	if _, err := r.collection.UpdateByID(ctx, venue.ID, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert venue: %w", err)
	}
	return nil
}
