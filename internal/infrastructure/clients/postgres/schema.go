package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS plants (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	name               TEXT NOT NULL,
	type               TEXT NOT NULL DEFAULT '',
	image              TEXT NOT NULL DEFAULT '',
	watering_frequency TEXT NOT NULL DEFAULT '',
	last_watered       TEXT NOT NULL DEFAULT '',
	is_plant           JSONB NOT NULL,
	classification     JSONB NOT NULL,
	plant_health       JSONB,
	recognition        JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_plants_user_created ON plants(user_id, created_at);
`

// EnsureSchema creates the tables used by the plant store if they do not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
