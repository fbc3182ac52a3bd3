package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/models"
)

// Every method takes a context.Context: all of these touch the database, so
// request cancellation and deadlines must propagate into the queries.
//
// Lookup methods return nil, nil when the row does not exist. The service
// layer translates that into the not-found error of the API taxonomy; the
// repositories stay free of policy.

// ChannelRepository owns channel identity and visibility.
type ChannelRepository interface {
	// Create inserts a channel and its owner's membership row in one
	// transaction, so the owner-is-a-member invariant holds from birth.
	Create(ctx context.Context, name, description string, isPrivate bool, ownerID uuid.UUID) (*models.Channel, error)

	GetByID(ctx context.Context, channelID uuid.UUID) (*models.Channel, error)

	// ListVisible returns public channels plus private channels the user
	// belongs to, oldest first.
	ListVisible(ctx context.Context, userID uuid.UUID) ([]models.Channel, error)

	// Update overwrites only the non-nil fields in a single statement and
	// returns the updated row.
	Update(ctx context.Context, channelID uuid.UUID, name, description *string, isPrivate *bool) (*models.Channel, error)

	// Delete removes the channel record and its membership rows. Messages
	// are left in place.
	Delete(ctx context.Context, channelID uuid.UUID) error
}

// MembershipRepository owns the channel↔user relation. The write methods
// report whether they changed anything so the service can distinguish a
// first join from a duplicate without a separate read (single-statement
// updates stay race-free under concurrent callers).
type MembershipRepository interface {
	AddMember(ctx context.Context, channelID, userID uuid.UUID) (added bool, err error)
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) (removed bool, err error)
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.UserRef, error)
}

// MessageRepository owns message persistence, pagination, and read state.
type MessageRepository interface {
	// Create persists a message with its sender already in the read-set.
	Create(ctx context.Context, channelID, senderID uuid.UUID, content string, attachments []string) (*models.Message, error)

	GetByID(ctx context.Context, messageID int64) (*models.Message, error)

	// ListPage returns one page of a channel's history newest-first, with
	// sender and channel identity resolved and read-sets attached.
	ListPage(ctx context.Context, channelID uuid.UUID, offset, limit int) ([]models.MessageDetail, error)

	CountByChannel(ctx context.Context, channelID uuid.UUID) (int, error)

	// MarkRead adds the user to the read-set of each listed message.
	// Idempotent and commutative: concurrent calls for the same user or
	// overlapping message sets cannot lose updates.
	MarkRead(ctx context.Context, messageIDs []int64, userID uuid.UUID) error

	Delete(ctx context.Context, messageID int64) error
}

// UserRepository owns account records.
type UserRepository interface {
	Create(ctx context.Context, email, displayName, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
