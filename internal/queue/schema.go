package queue

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ledger_items (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id           TEXT NOT NULL,
    source_path      TEXT NOT NULL,
    format           TEXT,
    size_bytes       INTEGER NOT NULL DEFAULT 0,
    duration_seconds REAL NOT NULL DEFAULT 0,
    content_hash     TEXT,
    status           TEXT NOT NULL,
    artist           TEXT,
    album            TEXT,
    title            TEXT,
    score            REAL NOT NULL DEFAULT 0,
    destination_path TEXT,
    outcome          TEXT,
    error_message    TEXT,
    dry_run          INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL,
    UNIQUE (run_id, source_path)
);

CREATE INDEX IF NOT EXISTS idx_ledger_items_run_status
    ON ledger_items (run_id, status);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init ledger schema: %w", err)
	}
	return nil
}
