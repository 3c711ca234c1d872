package service

import (
	"context"
	"staymate/internal/keys/keystore"
	"staymate/internal/keys/repository"
	"staymate/internal/keys/validator"
	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/model"
	"staymate/pkg/sanitizer"
)

type KeyService interface {
	// Profile returns the caller's profile, creating it on first sight and
	// expiring stale keys on the way.
	Profile(ctx context.Context, userID, displayName string) (*model.User, error)
	ListKeys(ctx context.Context, userID string) ([]model.DigitalKey, error)
	Grant(ctx context.Context, userID string, conf *model.BookingConfirmation) (*model.DigitalKey, bool, error)
	Cancel(ctx context.Context, userID, bookingReference string) (bool, error)
	// ActiveKeyFor returns the key that opens a lobby channel, or nil.
	ActiveKeyFor(ctx context.Context, userID string, channel model.ChannelID) (*model.DigitalKey, error)
	SweepAll(ctx context.Context) (int, error)
}

type keyService struct {
	profiles  UserProfileStore
	repo      repository.ProfileRepository
	validator *validator.KeyValidator
	policy    model.KeyLookupPolicy
	clock     clock.Clock
	log       *logger.Logger
}

func NewKeyService(
	profiles UserProfileStore,
	repo repository.ProfileRepository,
	validator *validator.KeyValidator,
	policy model.KeyLookupPolicy,
	clk clock.Clock,
	log *logger.Logger,
) KeyService {
	if !policy.Valid() {
		policy = model.KeyLookupFirstInList
	}
	return &keyService{
		profiles:  profiles,
		repo:      repo,
		validator: validator,
		policy:    policy,
		clock:     clk,
		log:       log,
	}
}

func (s *keyService) Profile(ctx context.Context, userID, displayName string) (*model.User, error) {
	now := s.clock.Now()
	name := sanitizer.NormalizeName(displayName)

	return s.profiles.Update(ctx, userID, func(user *model.User) (bool, error) {
		changed := user.Version == 0
		if user.DisplayName == "" && name != "" {
			user.DisplayName = name
			changed = true
		}
		if keystore.SweepExpired(user, now) {
			changed = true
		}
		return changed, nil
	})
}

func (s *keyService) ListKeys(ctx context.Context, userID string) ([]model.DigitalKey, error) {
	user, err := s.fresh(ctx, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return []model.DigitalKey{}, nil
		}
		return nil, err
	}
	return user.DigitalKeys, nil
}

func (s *keyService) Grant(ctx context.Context, userID string, conf *model.BookingConfirmation) (*model.DigitalKey, bool, error) {
	s.sanitize(conf)
	if err := s.validator.ValidateConfirmation(conf); err != nil {
		s.log.Warn("Booking confirmation validation failed", "user_id", userID, "error", err)
		return nil, false, apperrors.Validation("Booking confirmation validation failed", map[string]any{"error": err.Error()})
	}

	now := s.clock.Now().UTC()
	granted := false
	user, err := s.profiles.Update(ctx, userID, func(user *model.User) (bool, error) {
		swept := keystore.SweepExpired(user, now)
		granted = keystore.Grant(user, *conf, now)
		return swept || granted, nil
	})
	if err != nil {
		return nil, false, err
	}

	key := findKey(user, conf.HotelID, conf.BookingReference)
	if granted {
		s.log.Info("Digital key granted",
			"user_id", userID,
			"hotel_id", conf.HotelID,
			"booking_reference", conf.BookingReference,
			"check_out", conf.CheckOut,
		)
	} else {
		s.log.Debug("Duplicate booking confirmation ignored",
			"user_id", userID,
			"hotel_id", conf.HotelID,
			"booking_reference", conf.BookingReference,
		)
	}
	return key, granted, nil
}

func (s *keyService) Cancel(ctx context.Context, userID, bookingReference string) (bool, error) {
	if bookingReference == "" {
		return false, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	cancelled := false
	_, err := s.profiles.Update(ctx, userID, func(user *model.User) (bool, error) {
		cancelled = keystore.Cancel(user, bookingReference)
		return cancelled, nil
	})
	if err != nil {
		return false, err
	}

	if cancelled {
		s.log.Info("Digital key cancelled", "user_id", userID, "booking_reference", bookingReference)
	}
	return cancelled, nil
}

func (s *keyService) ActiveKeyFor(ctx context.Context, userID string, channel model.ChannelID) (*model.DigitalKey, error) {
	if !channel.IsLobby() {
		return nil, nil
	}

	user, err := s.fresh(ctx, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if channel.Kind() == model.ChannelHotelLobby {
		return keystore.Lookup(user, channel.VenueID(), s.policy), nil
	}
	return keystore.LookupCity(user, channel.CitySlug(), s.policy), nil
}

// SweepAll expires stale keys for every user that has one. Failures on a
// single user are logged and skipped.
func (s *keyService) SweepAll(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()
	swept := 0

	err := s.repo.ForEachWithExpiredKeys(ctx, now, func(userID string) error {
		_, err := s.profiles.Update(ctx, userID, func(user *model.User) (bool, error) {
			return keystore.SweepExpired(user, now), nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("Failed to sweep user keys", "user_id", userID, "error", err)
			return nil
		}
		swept++
		return nil
	})
	if err != nil {
		return swept, apperrors.Internal("Key sweep aborted", err)
	}

	s.log.Info("Key sweep finished", "users_swept", swept)
	return swept, nil
}

// fresh loads a profile and writes back expirations only when some are due.
func (s *keyService) fresh(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !keystore.NeedsSweep(user, now) {
		return user, nil
	}

	updated, err := s.profiles.Update(ctx, userID, func(u *model.User) (bool, error) {
		return keystore.SweepExpired(u, now), nil
	})
	if err != nil {
		// A failed write-back still leaves the in-memory view correct.
		s.log.Warn("Failed to persist expired keys", "user_id", userID, "error", err)
		keystore.SweepExpired(user, now)
		return user, nil
	}
	return updated, nil
}

func (s *keyService) sanitize(conf *model.BookingConfirmation) {
	conf.HotelName = sanitizer.TrimAndNormalize(conf.HotelName)
	conf.City = sanitizer.NormalizeCity(conf.City)
	conf.RoomType = sanitizer.TrimAndNormalize(conf.RoomType)
	conf.BookingReference = sanitizer.TrimAndNormalize(conf.BookingReference)
	conf.CheckIn = conf.CheckIn.UTC()
	conf.CheckOut = conf.CheckOut.UTC()
}

func findKey(user *model.User, hotelID, bookingReference string) *model.DigitalKey {
	for i := range user.DigitalKeys {
		k := user.DigitalKeys[i]
		if k.HotelID == hotelID && k.BookingReference == bookingReference {
			return &k
		}
	}
	return nil
}
