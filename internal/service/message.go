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

const (
	DefaultPage     = 1
	DefaultPageSize = 50
)

// Broadcaster delivers a persisted message to the channel's realtime group.
// Delivery is best-effort and must not block the caller.
type Broadcaster interface {
	BroadcastMessage(message models.MessageDetail)
}

type MessageService struct {
	messages    repository.MessageRepository
	channels    repository.ChannelRepository
	members     repository.MembershipRepository
	users       repository.UserRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewMessageService(
	messages repository.MessageRepository,
	channels repository.ChannelRepository,
	members repository.MembershipRepository,
	users repository.UserRepository,
	broadcaster Broadcaster,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messages:    messages,
		channels:    channels,
		members:     members,
		users:       users,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Post persists a message and then broadcasts the persisted record to the
// channel's realtime group. Persistence always comes first: subscribers only
// ever see durable messages with their real id and server timestamp.
//
// Access rule: private channels require membership; public channels accept
// posts from any authenticated user, member or not.
func (s *MessageService) Post(ctx context.Context, senderID, channelID uuid.UUID, content string, attachments []string) (*models.MessageDetail, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", apperr.ErrInvalidInput)
	}

	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
	}
	if ch.IsPrivate {
		member, err := s.members.IsMember(ctx, channelID, senderID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: not a member of this private channel", apperr.ErrForbidden)
		}
	}

	msg, err := s.messages.Create(ctx, channelID, senderID, content, attachments)
	if err != nil {
		return nil, err
	}

	detail := &models.MessageDetail{Message: *msg, ChannelName: ch.Name}
	if sender, err := s.users.GetByID(ctx, senderID); err == nil && sender != nil {
		detail.Sender = models.UserRef{ID: sender.ID, DisplayName: sender.DisplayName, Email: sender.Email}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(*detail)
	}
	return detail, nil
}

// ListPage returns one page of channel history in chronological order.
//
// Selection is newest-first with an offset of (page-1)*pageSize, then the
// page is reversed, so page 1 holds the newest pageSize messages and
// concatenating pages 1..Pages walks the full history. As a side effect the
// caller is added to the read-set of every returned message; the returned
// records carry the read-sets from before that update.
func (s *MessageService) ListPage(ctx context.Context, userID, channelID uuid.UUID, page, pageSize int) (*models.MessagePage, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and limit must be >= 1", apperr.ErrInvalidInput)
	}

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

	total, err := s.messages.CountByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListPage(ctx, channelID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	// Reverse in place: the query returns newest first, clients render
	// oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	s.markReadAsync(ctx, userID, messages)

	return &models.MessagePage{
		Messages: messages,
		Page:     page,
		Pages:    (total + pageSize - 1) / pageSize,
		Total:    total,
	}, nil
}

// markReadAsync records the caller in each returned message's read-set
// without delaying the response. The insert is idempotent, so a failure here
// only postpones the mark until the next page fetch.
func (s *MessageService) markReadAsync(ctx context.Context, userID uuid.UUID, messages []models.MessageDetail) {
	if len(messages) == 0 {
		return
	}

	ids := make([]int64, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}

	// Detach from the request context: the mark must survive the response
	// being written and the request context being cancelled.
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.messages.MarkRead(bg, ids, userID); err != nil {
			s.logger.Warn("mark read failed",
				zap.String("user_id", userID.String()),
				zap.Int("messages", len(ids)),
				zap.Error(err),
			)
		}
	}()
}

// Delete removes a message. Allowed for the message's sender and for the
// owner of the message's channel.
func (s *MessageService) Delete(ctx context.Context, callerID uuid.UUID, messageID int64) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: message %d", apperr.ErrNotFound, messageID)
	}

	if msg.SenderID != callerID {
		// Not the sender — the only other party allowed is the channel
		// owner. The channel may have been deleted since the message was
		// posted; orphaned messages are then sender-deletable only.
		ch, err := s.channels.GetByID(ctx, msg.ChannelID)
		if err != nil {
			return err
		}
		if ch == nil || ch.OwnerID != callerID {
			return fmt.Errorf("%w: only the sender or channel owner may delete a message", apperr.ErrForbidden)
		}
	}

	return s.messages.Delete(ctx, messageID)
}
