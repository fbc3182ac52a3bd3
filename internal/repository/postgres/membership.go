package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okrish/wavelink/internal/models"
)

type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func (s *MembershipStore) AddMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	// ON CONFLICT DO NOTHING plus RowsAffected distinguishes a first join
	// (1 row) from a duplicate (0 rows) in a single atomic statement —
	// two concurrent joins by the same user cannot both report success.
	query := `
		INSERT INTO channel_members (channel_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (channel_id, user_id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *MembershipStore) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	query := `
		DELETE FROM channel_members
		WHERE channel_id = $1 AND user_id = $2`

	tag, err := s.pool.Exec(ctx, query, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *MembershipStore) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	// EXISTS stops at the first match — this runs before every post, page
	// fetch, and realtime subscribe on private channels.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM channel_members
			WHERE channel_id = $1 AND user_id = $2
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, channelID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *MembershipStore) ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.UserRef, error) {
	query := `
		SELECT u.id, u.display_name, u.email
		FROM channel_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1
		ORDER BY u.display_name`

	rows, err := s.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.UserRef, 0)
	for rows.Next() {
		var m models.UserRef
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.Email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}
