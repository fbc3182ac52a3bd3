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

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

func (s *ChannelStore) Create(ctx context.Context, name, description string, isPrivate bool, ownerID uuid.UUID) (*models.Channel, error) {
	// Channel row and the owner's membership row commit together; there is
	// never a visible moment where the owner is not a member.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO channels (name, description, is_private, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, is_private, owner_id, created_at`

	var ch models.Channel
	err = tx.QueryRow(ctx, query, name, description, isPrivate, ownerID).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Description,
		&ch.IsPrivate,
		&ch.OwnerID,
		&ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO channel_members (channel_id, user_id)
		VALUES ($1, $2)`, ch.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, name, description, is_private, owner_id, created_at
		FROM channels
		WHERE id = $1`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, channelID).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Description,
		&ch.IsPrivate,
		&ch.OwnerID,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) ListVisible(ctx context.Context, userID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT c.id, c.name, c.description, c.is_private, c.owner_id, c.created_at
		FROM channels c
		WHERE c.is_private = false
		   OR EXISTS (
			SELECT 1 FROM channel_members m
			WHERE m.channel_id = c.id AND m.user_id = $1
		   )
		ORDER BY c.created_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(
			&ch.ID,
			&ch.Name,
			&ch.Description,
			&ch.IsPrivate,
			&ch.OwnerID,
			&ch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}

func (s *ChannelStore) Update(ctx context.Context, channelID uuid.UUID, name, description *string, isPrivate *bool) (*models.Channel, error) {
	// Partial update in one statement: COALESCE keeps the stored value for
	// any field the caller omitted, so concurrent updates of different
	// fields cannot clobber each other.
	query := `
		UPDATE channels
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    is_private  = COALESCE($4, is_private)
		WHERE id = $1
		RETURNING id, name, description, is_private, owner_id, created_at`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, channelID, name, description, isPrivate).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Description,
		&ch.IsPrivate,
		&ch.OwnerID,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) Delete(ctx context.Context, channelID uuid.UUID) error {
	// Membership rows cascade via the FK. Messages are intentionally not
	// touched; history for a deleted channel is orphaned, not destroyed.
	_, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}
