package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated person. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRef is the subset of User embedded in channel and message responses.
type UserRef struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}

// Channel is a named conversation scope.
//
// Invariants the service layer maintains:
//   - the owner is always a member (added at creation, never removable by leave)
//   - only the owner may update or delete the channel
//   - IsPrivate gates both discovery (list) and access (get/post/listPage)
type Channel struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChannelDetail is a Channel with its owner and member set resolved for display.
type ChannelDetail struct {
	Channel
	Owner   UserRef   `json:"owner"`
	Members []UserRef `json:"members"`
}

// Message is a single post in a channel.
//
// Messages use bigserial IDs: they are the highest-volume table and the
// sequence gives a cheap, monotonic creation order. ReadBy is the set of
// user ids that have retrieved the message at least once; it only grows.
type Message struct {
	ID          int64       `json:"id"`
	ChannelID   uuid.UUID   `json:"channel_id"`
	SenderID    uuid.UUID   `json:"sender_id"`
	Content     string      `json:"content"`
	Attachments []string    `json:"attachments"`
	ReadBy      []uuid.UUID `json:"read_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// MessageDetail is a Message with sender and channel identity resolved.
type MessageDetail struct {
	Message
	Sender      UserRef `json:"sender"`
	ChannelName string  `json:"channel_name"`
}

// MessagePage is one page of a channel's history in chronological order,
// plus the pagination envelope computed over the whole channel.
type MessagePage struct {
	Messages []MessageDetail `json:"messages"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	Total    int             `json:"total"`
}
