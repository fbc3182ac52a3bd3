package db

import (
	"context"
	"fmt"
)

// schema is applied on every startup; every statement is idempotent
// (IF NOT EXISTS), so re-running against an existing database is safe.
//
// messages.channel_id deliberately has no foreign key to channels: deleting
// a channel leaves its history orphaned rather than cascading or failing.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	email         text NOT NULL UNIQUE,
	display_name  text NOT NULL,
	password_hash text NOT NULL,
	created_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS channels (
	id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name        text NOT NULL,
	description text NOT NULL DEFAULT '',
	is_private  boolean NOT NULL DEFAULT false,
	owner_id    uuid NOT NULL REFERENCES users(id),
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS channel_members (
	channel_id uuid NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	user_id    uuid NOT NULL REFERENCES users(id),
	PRIMARY KEY (channel_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id          bigserial PRIMARY KEY,
	channel_id  uuid NOT NULL,
	sender_id   uuid NOT NULL REFERENCES users(id),
	content     text NOT NULL,
	attachments text[] NOT NULL DEFAULT '{}',
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_channel_id
	ON messages (channel_id, id DESC);

CREATE TABLE IF NOT EXISTS message_reads (
	message_id bigint NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	user_id    uuid NOT NULL REFERENCES users(id),
	PRIMARY KEY (message_id, user_id)
);
`

// Migrate applies the embedded schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	db.logger.Info("schema applied")
	return nil
}
