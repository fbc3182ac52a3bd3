package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okrish/wavelink/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// readSetExpr aggregates a message's read-set; COALESCE turns the NULL from
// an empty aggregate into an empty uuid array.
const readSetExpr = `
	COALESCE(
		(SELECT array_agg(r.user_id) FROM message_reads r WHERE r.message_id = m.id),
		'{}'::uuid[]
	)`

func (s *MessageStore) Create(ctx context.Context, channelID, senderID uuid.UUID, content string, attachments []string) (*models.Message, error) {
	if attachments == nil {
		attachments = []string{}
	}

	// The message and the sender's read row commit together — a message is
	// never observable without its author in the read-set.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (channel_id, sender_id, content, attachments)
		VALUES ($1, $2, $3, $4)
		RETURNING id, channel_id, sender_id, content, attachments, created_at`

	var msg models.Message
	err = tx.QueryRow(ctx, query, channelID, senderID, content, attachments).Scan(
		&msg.ID,
		&msg.ChannelID,
		&msg.SenderID,
		&msg.Content,
		&msg.Attachments,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO message_reads (message_id, user_id)
		VALUES ($1, $2)`, msg.ID, senderID)
	if err != nil {
		return nil, fmt.Errorf("insert sender read: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	msg.ReadBy = []uuid.UUID{senderID}
	return &msg, nil
}

func (s *MessageStore) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.sender_id, m.content, m.attachments, m.created_at,` +
		readSetExpr + `
		FROM messages m
		WHERE m.id = $1`

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, messageID).Scan(
		&msg.ID,
		&msg.ChannelID,
		&msg.SenderID,
		&msg.Content,
		&msg.Attachments,
		&msg.CreatedAt,
		&msg.ReadBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) ListPage(ctx context.Context, channelID uuid.UUID, offset, limit int) ([]models.MessageDetail, error) {
	// Newest first; the service reverses the slice into chronological order
	// after the page is cut. id DESC matches created_at DESC (bigserial)
	// and rides the (channel_id, id DESC) index.
	//
	// channels is LEFT JOINed: messages survive their channel's deletion,
	// so the name may be gone.
	query := `
		SELECT m.id, m.channel_id, m.sender_id, m.content, m.attachments, m.created_at,` +
		readSetExpr + `,
			u.id, u.display_name, u.email,
			COALESCE(c.name, '')
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		LEFT JOIN channels c ON c.id = m.channel_id
		WHERE m.channel_id = $1
		ORDER BY m.id DESC
		OFFSET $2
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, channelID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.MessageDetail, 0)
	for rows.Next() {
		var md models.MessageDetail
		if err := rows.Scan(
			&md.ID,
			&md.ChannelID,
			&md.SenderID,
			&md.Content,
			&md.Attachments,
			&md.CreatedAt,
			&md.ReadBy,
			&md.Sender.ID,
			&md.Sender.DisplayName,
			&md.Sender.Email,
			&md.ChannelName,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

func (s *MessageStore) CountByChannel(ctx context.Context, channelID uuid.UUID) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE channel_id = $1`, channelID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return total, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, messageIDs []int64, userID uuid.UUID) error {
	if len(messageIDs) == 0 {
		return nil
	}

	// One atomic set-insert for the whole page. ON CONFLICT DO NOTHING makes
	// it idempotent and safe against concurrent readers of the same page.
	query := `
		INSERT INTO message_reads (message_id, user_id)
		SELECT unnest($1::bigint[]), $2
		ON CONFLICT (message_id, user_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, messageIDs, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (s *MessageStore) Delete(ctx context.Context, messageID int64) error {
	// Read rows cascade via the FK.
	_, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
