package service

import (
	"context"
	"errors"
	"fmt"
	keyserrors "staymate/internal/keys/errors"
	"staymate/internal/keys/repository"
	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/model"
)

// Mutator edits a loaded profile in place and reports whether it changed.
// It may run more than once when concurrent writers collide.
type Mutator func(user *model.User) (bool, error)

// UserProfileStore is the only write path for user profiles.
type UserProfileStore interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	Update(ctx context.Context, userID string, mutate Mutator) (*model.User, error)
	EnsureProfile(ctx context.Context, userID, displayName string) (*model.User, error)
}

type userProfileStore struct {
	repo    repository.ProfileRepository
	clock   clock.Clock
	retries int
	log     *logger.Logger
}

func NewUserProfileStore(repo repository.ProfileRepository, clk clock.Clock, retries int, log *logger.Logger) UserProfileStore {
	if retries < 1 {
		retries = 1
	}
	return &userProfileStore{
		repo:    repo,
		clock:   clk,
		retries: retries,
		log:     log,
	}
}

func (s *userProfileStore) Get(ctx context.Context, userID string) (*model.User, error) {
	if !model.ValidUserID(userID) {
		return nil, apperrors.InvalidInput("Invalid user ID")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, keyserrors.ErrProfileNotFound) {
			return nil, apperrors.NotFoundWithID("User", userID)
		}
		return nil, apperrors.Internal("Failed to retrieve user profile", err)
	}
	return user, nil
}

// Update loads the profile, applies mutate and writes it back only if no
// other writer bumped the version in between. A missing profile starts empty.
func (s *userProfileStore) Update(ctx context.Context, userID string, mutate Mutator) (*model.User, error) {
	if !model.ValidUserID(userID) {
		return nil, apperrors.InvalidInput("Invalid user ID")
	}

	for attempt := 1; attempt <= s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Timeout("Profile update cancelled")
		}

		user, exists, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		changed, err := mutate(user)
		if err != nil {
			return nil, err
		}
		if !changed {
			return user, nil
		}

		expected := user.Version
		user.Version = expected + 1
		user.UpdatedAt = s.clock.Now().UTC()

		if exists {
			err = s.repo.ReplaceIfVersion(ctx, user, expected)
		} else {
			err = s.repo.Insert(ctx, user)
		}
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, keyserrors.ErrVersionConflict) {
			return nil, apperrors.Internal("Failed to save user profile", err)
		}

		s.log.Debug("Profile version conflict, retrying",
			"user_id", userID,
			"attempt", attempt,
			"expected_version", expected,
		)
	}

	s.log.Warn("Profile update gave up after conflicts", "user_id", userID, "attempts", s.retries)
	return nil, apperrors.Conflict("Profile was modified concurrently, try again").
		WithDetails(map[string]any{"user_id": userID})
}

func (s *userProfileStore) EnsureProfile(ctx context.Context, userID, displayName string) (*model.User, error) {
	return s.Update(ctx, userID, func(user *model.User) (bool, error) {
		if user.DisplayName != "" || displayName == "" {
			return user.Version == 0, nil
		}
		user.DisplayName = displayName
		return true, nil
	})
}

func (s *userProfileStore) load(ctx context.Context, userID string) (*model.User, bool, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err == nil {
		return user, true, nil
	}
	if errors.Is(err, keyserrors.ErrProfileNotFound) {
		return &model.User{ID: userID, DigitalKeys: []model.DigitalKey{}}, false, nil
	}
	return nil, false, apperrors.Internal(fmt.Sprintf("Failed to load profile %s", userID), err)
}
