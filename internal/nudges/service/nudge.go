package service

import (
	"context"
	"errors"
	nudgeserrors "staymate/internal/nudges/errors"
	"staymate/internal/nudges/repository"
	"staymate/pkg/clock"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/model"
)

const maxNudgesPerUser = 500

// NudgeView is the handshake between the viewer and another user.
type NudgeView struct {
	OtherUserID string           `json:"other_user_id"`
	State       model.NudgeState `json:"state"`
	Nudge       *model.Nudge     `json:"nudge,omitempty"`
}

type NudgeService interface {
	// Send returns the pair's existing nudge unchanged when there is one,
	// in either direction. created reports whether a new record was stored.
	Send(ctx context.Context, from, to string) (nudge *model.Nudge, created bool, err error)
	// Respond only changes a pending nudge addressed to responder. Any other
	// participant's response is a no-op that returns the current record.
	Respond(ctx context.Context, nudgeID, responder string, accept bool) (nudge *model.Nudge, changed bool, err error)
	State(ctx context.Context, viewer, other string) (*NudgeView, error)
	CanMessage(ctx context.Context, a, b string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Nudge, error)
}

type nudgeService struct {
	repo  repository.NudgeRepository
	clock clock.Clock
	log   *logger.Logger
}

func NewNudgeService(repo repository.NudgeRepository, clk clock.Clock, log *logger.Logger) NudgeService {
	return &nudgeService{
		repo:  repo,
		clock: clk,
		log:   log,
	}
}

func (s *nudgeService) Send(ctx context.Context, from, to string) (*model.Nudge, bool, error) {
	if err := validatePair(from, to); err != nil {
		return nil, false, err
	}

	pairKey := model.PairKey(from, to)
	existing, err := s.repo.FindByPair(ctx, pairKey)
	if err == nil {
		s.log.Debug("Nudge already exists for pair", "pair_key", pairKey, "status", existing.Status)
		return existing, false, nil
	}
	if !errors.Is(err, nudgeserrors.ErrNotFound) {
		return nil, false, apperrors.Internal("failed to load nudge", err)
	}

	nudge := &model.Nudge{
		PairKey:    pairKey,
		FromUserID: from,
		ToUserID:   to,
		Status:     model.NudgePending,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, nudge); err != nil {
		if !errors.Is(err, nudgeserrors.ErrPairExists) {
			return nil, false, apperrors.Internal("failed to store nudge", err)
		}
		// Lost the race to the other participant; theirs stands.
		winner, findErr := s.repo.FindByPair(ctx, pairKey)
		if findErr != nil {
			return nil, false, apperrors.Internal("failed to load nudge", findErr)
		}
		s.log.Info("Concurrent nudge resolved to first writer", "pair_key", pairKey, "from_user_id", winner.FromUserID)
		return winner, false, nil
	}

	s.log.Info("Nudge sent", "id", nudge.ID, "from_user_id", from, "to_user_id", to)
	return nudge, true, nil
}

func (s *nudgeService) Respond(ctx context.Context, nudgeID, responder string, accept bool) (*model.Nudge, bool, error) {
	if nudgeID == "" {
		return nil, false, apperrors.InvalidInput("Nudge ID cannot be empty")
	}
	if !model.ValidUserID(responder) {
		return nil, false, apperrors.InvalidInput("Invalid user ID")
	}

	status := model.NudgeRejected
	if accept {
		status = model.NudgeAccepted
	}

	updated, err := s.repo.Respond(ctx, nudgeID, responder, status, s.clock.Now().UTC())
	if err == nil {
		s.log.Info("Nudge answered", "id", nudgeID, "responder", responder, "status", status)
		return updated, true, nil
	}
	if !errors.Is(err, nudgeserrors.ErrNotApplicable) {
		return nil, false, apperrors.Internal("failed to respond to nudge", err)
	}

	current, err := s.repo.FindByID(ctx, nudgeID)
	if err != nil {
		if errors.Is(err, nudgeserrors.ErrNotFound) {
			return nil, false, apperrors.NotFoundWithID("Nudge", nudgeID)
		}
		return nil, false, apperrors.Internal("failed to load nudge", err)
	}
	if !current.Involves(responder) {
		return nil, false, apperrors.NotFoundWithID("Nudge", nudgeID)
	}

	s.log.Debug("Nudge response ignored", "id", nudgeID, "responder", responder, "status", current.Status)
	return current, false, nil
}

func (s *nudgeService) State(ctx context.Context, viewer, other string) (*NudgeView, error) {
	if err := validatePair(viewer, other); err != nil {
		return nil, err
	}

	nudge, err := s.find(ctx, viewer, other)
	if err != nil {
		return nil, err
	}
	return &NudgeView{
		OtherUserID: other,
		State:       model.StateFor(nudge, viewer),
		Nudge:       nudge,
	}, nil
}

func (s *nudgeService) CanMessage(ctx context.Context, a, b string) (bool, error) {
	if err := validatePair(a, b); err != nil {
		return false, err
	}

	nudge, err := s.find(ctx, a, b)
	if err != nil {
		return false, err
	}
	return nudge != nil && nudge.Status == model.NudgeAccepted, nil
}

func (s *nudgeService) ListForUser(ctx context.Context, userID string) ([]*model.Nudge, error) {
	if !model.ValidUserID(userID) {
		return nil, apperrors.InvalidInput("Invalid user ID")
	}

	nudges, err := s.repo.ListForUser(ctx, userID, maxNudgesPerUser)
	if err != nil {
		return nil, apperrors.Internal("failed to list nudges", err)
	}
	if nudges == nil {
		nudges = []*model.Nudge{}
	}
	return nudges, nil
}

// find returns nil without error when the pair has no nudge.
func (s *nudgeService) find(ctx context.Context, a, b string) (*model.Nudge, error) {
	nudge, err := s.repo.FindByPair(ctx, model.PairKey(a, b))
	if err != nil {
		if errors.Is(err, nudgeserrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("failed to load nudge", err)
	}
	return nudge, nil
}

func validatePair(a, b string) error {
	if !model.ValidUserID(a) || !model.ValidUserID(b) {
		return apperrors.InvalidInput("Invalid user ID")
	}
	if a == b {
		return apperrors.InvalidInput("Cannot nudge yourself")
	}
	return nil
}
