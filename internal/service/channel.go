// Package service holds the business rules: visibility and ownership gates,
// membership invariants, pagination math, and the persist-then-broadcast
// publish path. Handlers stay thin; repositories stay policy-free.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/apperr"
	"github.com/okrish/wavelink/internal/models"
	"github.com/okrish/wavelink/internal/repository"
	"go.uber.org/zap"
)

type ChannelService struct {
	channels repository.ChannelRepository
	members  repository.MembershipRepository
	users    repository.UserRepository
	logger   *zap.Logger
}

func NewChannelService(
	channels repository.ChannelRepository,
	members repository.MembershipRepository,
	users repository.UserRepository,
	logger *zap.Logger,
) *ChannelService {
	return &ChannelService{
		channels: channels,
		members:  members,
		users:    users,
		logger:   logger,
	}
}

// Create makes a new channel owned by the caller, who is also its first
// member.
func (s *ChannelService) Create(ctx context.Context, ownerID uuid.UUID, name, description string, isPrivate bool) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: channel name is required", apperr.ErrInvalidInput)
	}

	ch, err := s.channels.Create(ctx, name, description, isPrivate, ownerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("channel created",
		zap.String("channel_id", ch.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.Bool("private", ch.IsPrivate),
	)
	return ch, nil
}

// List returns every channel visible to the caller: all public channels plus
// private channels the caller belongs to.
func (s *ChannelService) List(ctx context.Context, userID uuid.UUID) ([]models.Channel, error) {
	return s.channels.ListVisible(ctx, userID)
}

// Get returns a channel with owner and members resolved. Private channels
// are only visible to their members.
func (s *ChannelService) Get(ctx context.Context, userID, channelID uuid.UUID) (*models.ChannelDetail, error) {
	ch, err := s.authorize(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}

	members, err := s.members.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}

	detail := &models.ChannelDetail{Channel: *ch, Members: members}
	if owner, err := s.users.GetByID(ctx, ch.OwnerID); err == nil && owner != nil {
		detail.Owner = models.UserRef{ID: owner.ID, DisplayName: owner.DisplayName, Email: owner.Email}
	}
	return detail, nil
}

// Update overwrites only the provided fields. Owner only.
func (s *ChannelService) Update(ctx context.Context, userID, channelID uuid.UUID, name, description *string, isPrivate *bool) (*models.Channel, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
	}
	if ch.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the owner may update a channel", apperr.ErrForbidden)
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, fmt.Errorf("%w: channel name cannot be empty", apperr.ErrInvalidInput)
	}

	updated, err := s.channels.Update(ctx, channelID, name, description, isPrivate)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Deleted between the ownership check and the update.
		return nil, fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
	}
	return updated, nil
}

// Delete removes the channel record. Owner only. Messages are not cascaded.
func (s *ChannelService) Delete(ctx context.Context, userID, channelID uuid.UUID) error {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
	}
	if ch.OwnerID != userID {
		return fmt.Errorf("%w: only the owner may delete a channel", apperr.ErrForbidden)
	}

	if err := s.channels.Delete(ctx, channelID); err != nil {
		return err
	}
	s.logger.Info("channel deleted", zap.String("channel_id", channelID.String()))
	return nil
}

// Join adds the caller to a public channel's member set. Private channels
// are never self-joinable.
func (s *ChannelService) Join(ctx context.Context, userID, channelID uuid.UUID) error {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
	}
	if ch.IsPrivate {
		return fmt.Errorf("%w: cannot join a private channel", apperr.ErrForbidden)
	}

	added, err := s.members.AddMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("%w: already a member of this channel", apperr.ErrConflict)
	}
	return nil
}

// Leave removes the caller from the member set. The owner can never leave.
func (s *ChannelService) Leave(ctx context.Context, userID, channelID uuid.UUID) error {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
	}
	if ch.OwnerID == userID {
		return fmt.Errorf("%w: the channel owner cannot leave", apperr.ErrConflict)
	}

	removed, err := s.members.RemoveMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: not a member of this channel", apperr.ErrConflict)
	}
	return nil
}

// CheckAccess verifies the caller may read a channel: it must exist, and if
// private the caller must be a member. Used by the message store and by
// realtime subscribe, so group membership never outruns channel access.
func (s *ChannelService) CheckAccess(ctx context.Context, userID, channelID uuid.UUID) error {
	_, err := s.authorize(ctx, userID, channelID)
	return err
}

func (s *ChannelService) authorize(ctx context.Context, userID, channelID uuid.UUID) (*models.Channel, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
	}
	if ch.IsPrivate {
		member, err := s.members.IsMember(ctx, channelID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: not a member of this private channel", apperr.ErrForbidden)
		}
	}
	return ch, nil
}
