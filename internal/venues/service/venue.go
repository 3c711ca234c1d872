package service

import (
	"context"
	"errors"
	venueserrors "staymate/internal/venues/errors"
	"staymate/internal/venues/repository"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/model"
	"staymate/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

const maxVenuesPerCity = 200

type VenueService interface {
	GetByID(ctx context.Context, id string) (*model.Venue, error)
	ListByCity(ctx context.Context, city string) ([]*model.Venue, error)
	Save(ctx context.Context, venue *model.Venue) error
}

type venueService struct {
	repo     repository.VenueRepository
	validate *validator.Validate
	log      *logger.Logger
}

func NewVenueService(repo repository.VenueRepository, log *logger.Logger) VenueService {
	return &venueService{
		repo:     repo,
		validate: validator.New(),
		log:      log,
	}
}

func (s *venueService) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Venue ID cannot be empty")
	}

	venue, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, venueserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Venue", id)
		}
		return nil, apperrors.Internal("Failed to retrieve venue", err)
	}
	return venue, nil
}

func (s *venueService) ListByCity(ctx context.Context, city string) ([]*model.Venue, error) {
	if model.CitySlug(city) == "" {
		return nil, apperrors.InvalidInput("City cannot be empty")
	}

	venues, err := s.repo.FindByCity(ctx, city, maxVenuesPerCity)
	if err != nil {
		return nil, apperrors.Internal("Failed to list venues", err)
	}
	if venues == nil {
		venues = []*model.Venue{}
	}
	return venues, nil
}

func (s *venueService) Save(ctx context.Context, venue *model.Venue) error {
	venue.Name = sanitizer.TrimAndNormalize(venue.Name)
	venue.City = sanitizer.NormalizeCity(venue.City)

	if err := s.validate.Struct(venue); err != nil {
		return apperrors.Validation("Venue validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Upsert(ctx, venue); err != nil {
		return apperrors.Internal("Failed to save venue", err)
	}

	s.log.Info("Venue saved", "id", venue.ID, "city", venue.City)
	return nil
}
