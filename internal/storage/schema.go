package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaTimeout = 30 * time.Second

type schemaStep struct {
	name string
	sql  string
}

var schemaSteps = []schemaStep{
	{
		name: "create_table_users",
		sql: `CREATE TABLE IF NOT EXISTS users (
  id            UUID        PRIMARY KEY,
  username      TEXT        NOT NULL UNIQUE,
  password_hash TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		name: "create_table_guests",
		sql: `CREATE TABLE IF NOT EXISTS guests (
  id         UUID        PRIMARY KEY,
  first_name TEXT        NOT NULL DEFAULT '',
  last_name  TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		name: "create_table_media_objects",
		sql: `CREATE TABLE IF NOT EXISTS media_objects (
  id                UUID        PRIMARY KEY,
  filename          TEXT        NOT NULL UNIQUE,
  original_filename TEXT        NOT NULL DEFAULT '',
  content_type      TEXT        NOT NULL DEFAULT 'application/octet-stream',
  size_bytes        BIGINT      NOT NULL DEFAULT 0 CHECK (size_bytes >= 0),
  uploader          TEXT        NOT NULL DEFAULT 'anonymous',
  approved          BOOLEAN     NOT NULL DEFAULT false,
  is_preview        BOOLEAN     NOT NULL DEFAULT false,
  original_id       UUID        NULL REFERENCES media_objects (id) ON DELETE CASCADE,
  preview_state     TEXT        NOT NULL DEFAULT 'pending',
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		name: "create_index_media_original_id",
		sql:  `CREATE INDEX IF NOT EXISTS idx_media_objects_original_id ON media_objects (original_id) WHERE original_id IS NOT NULL;`,
	},
	{
		name: "create_index_media_approved",
		sql:  `CREATE INDEX IF NOT EXISTS idx_media_objects_approved ON media_objects (approved) WHERE is_preview = false;`,
	},
}

// EnsureSchema applies the idempotent schema steps at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()

	for _, step := range schemaSteps {
		if _, err := pool.Exec(ctx, step.sql); err != nil {
			return fmt.Errorf("schema step %s: %w", step.name, err)
		}
	}
	return nil
}
