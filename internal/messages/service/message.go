package service

import (
	"context"
	"errors"
	"staymate/internal/messages/repository"
	apperrors "staymate/pkg/errors"
	"staymate/pkg/logger"
	"staymate/pkg/media"
	"staymate/pkg/model"
	"staymate/pkg/sanitizer"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Access answers whether a user's lobby gate is granted.
type Access interface {
	IsGranted(ctx context.Context, userID string, channel model.ChannelID) (bool, error)
}

// Consent answers whether two users have an accepted nudge.
type Consent interface {
	CanMessage(ctx context.Context, a, b string) (bool, error)
}

type Profiles interface {
	Get(ctx context.Context, userID string) (*model.User, error)
}

// Sender is the authenticated author. Name is the fallback when the user
// has no stored profile yet.
type Sender struct {
	ID   string
	Name string
}

type SendRequest struct {
	ChannelID   string `json:"channel_id"`
	Text        string `json:"text,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
}

type HistoryPage struct {
	Messages []*model.Message
	Total    int64
	Limit    int
}

type MessageService interface {
	// Send authorizes and persists a message. Delivery to subscribers
	// happens off the change feed, never from here.
	Send(ctx context.Context, sender Sender, req SendRequest) (*model.Message, error)
	History(ctx context.Context, channel model.ChannelID, viewer string, limit int, before *time.Time) (*HistoryPage, error)
}

type messageService struct {
	repo     repository.MessageRepository
	access   Access
	consent  Consent
	profiles Profiles
	log      *logger.Logger
}

func NewMessageService(
	repo repository.MessageRepository,
	access Access,
	consent Consent,
	profiles Profiles,
	log *logger.Logger,
) MessageService {
	return &messageService{
		repo:     repo,
		access:   access,
		consent:  consent,
		profiles: profiles,
		log:      log,
	}
}

func (s *messageService) Send(ctx context.Context, sender Sender, req SendRequest) (*model.Message, error) {
	if !model.ValidUserID(sender.ID) {
		return nil, apperrors.InvalidInput("Invalid user ID")
	}
	channel, err := model.ParseChannelID(req.ChannelID)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid channel ID")
	}

	msg := &model.Message{
		ChannelID: channel,
		SenderID:  sender.ID,
		Text:      sanitizer.NormalizeMessageText(req.Text),
		ImageRef:  strings.TrimSpace(req.ImageRef),
	}
	if !msg.HasContent() {
		return nil, apperrors.InvalidInput("Message needs text or an image")
	}
	if msg.ImageRef != "" && !media.OwnedBy(msg.ImageRef, media.KindChatImage, sender.ID) {
		return nil, apperrors.Forbidden("Image does not belong to sender")
	}

	recipient := strings.TrimSpace(req.RecipientID)
	switch {
	case channel.Kind() == model.ChannelPrivate:
		if err := s.authorizePrivate(ctx, channel, sender.ID, recipient); err != nil {
			return nil, err
		}
		msg.IsPrivate = true
		msg.RecipientID = recipient
	case channel.IsLobby():
		if recipient != "" {
			return nil, apperrors.InvalidInput("Lobby messages cannot have a recipient")
		}
		if err := s.authorizeLobby(ctx, channel, sender.ID); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.InvalidInput("Channel does not accept messages")
	}

	s.fillSender(ctx, msg, sender)

	if err := s.repo.Insert(ctx, msg); err != nil {
		s.log.Error("Failed to store message", "channel_id", channel.String(), "sender_id", sender.ID, "error", err)
		return nil, apperrors.Internal("failed to store message", err)
	}

	s.log.Info("Message sent",
		"id", msg.ID,
		"channel_id", channel.String(),
		"sender_id", sender.ID,
		"private", msg.IsPrivate,
	)
	return msg, nil
}

func (s *messageService) authorizePrivate(ctx context.Context, channel model.ChannelID, senderID, recipient string) error {
	if recipient == "" {
		return apperrors.InvalidInput("Private messages need a recipient")
	}
	if recipient == senderID || channel != model.PrivateChannel(senderID, recipient) {
		return apperrors.InvalidInput("Channel does not match sender and recipient")
	}
	ok, err := s.consent.CanMessage(ctx, senderID, recipient)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Forbidden("Private messaging requires an accepted nudge")
	}
	return nil
}

func (s *messageService) authorizeLobby(ctx context.Context, channel model.ChannelID, userID string) error {
	ok, err := s.access.IsGranted(ctx, userID, channel)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Forbidden("Lobby access has not been granted")
	}
	return nil
}

func (s *messageService) fillSender(ctx context.Context, msg *model.Message, sender Sender) {
	msg.SenderName = sanitizer.NormalizeName(sender.Name)

	user, err := s.profiles.Get(ctx, sender.ID)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			s.log.Warn("Failed to load sender profile", "user_id", sender.ID, "error", err)
		}
		return
	}
	if user.DisplayName != "" {
		msg.SenderName = user.DisplayName
	}
	msg.SenderAvatar = user.AvatarURL
}

func (s *messageService) History(ctx context.Context, channel model.ChannelID, viewer string, limit int, before *time.Time) (*HistoryPage, error) {
	if _, err := model.ParseChannelID(channel.String()); err != nil {
		return nil, apperrors.InvalidInput("Invalid channel ID")
	}

	switch {
	case channel.Kind() == model.ChannelPrivate:
		if !channel.Includes(viewer) {
			return nil, apperrors.Forbidden("Not a member of this channel")
		}
	case channel.IsLobby():
		if err := s.authorizeLobby(ctx, channel, viewer); err != nil {
			return nil, err
		}
	}

	var (
		total    int64
		messages []*model.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, channel)
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = s.repo.Page(gctx, channel, limit, before)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Timeout("history request timed out")
		}
		return nil, apperrors.Internal("failed to load history", err)
	}

	if messages == nil {
		messages = []*model.Message{}
	}
	return &HistoryPage{Messages: messages, Total: total, Limit: limit}, nil
}
