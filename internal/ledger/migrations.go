package ledger

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the ledger.
// Each statement uses IF NOT EXISTS for idempotency: every generation of
// a chain runs Migrate against the same shared file.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		chain_id   TEXT NOT NULL,
		generation INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		job_id     TEXT NOT NULL,
		dependency TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_submissions_chain_id ON submissions(chain_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_generation ON submissions(chain_id, generation)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
