// Package ledger records every scheduler submission a chain makes in a
// SQLite file on the shared filesystem. The ledger is observational: the
// chain never reads it to make a control decision, it exists so operators
// (status command, status server) can see what a headless chain has been
// doing. Writes are therefore best-effort for callers.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Kind distinguishes the two submission flavors of a generation.
type Kind string

const (
	KindController Kind = "controller"
	KindWorkers    Kind = "workers"
)

// Submission is one recorded sbatch call.
type Submission struct {
	ChainID    string    // uuid minted at bootstrap, threaded through the chain
	Generation int       // generation the submission belongs to
	Kind       Kind      // controller or workers
	JobID      string    // scheduler identifier returned on acceptance
	Dependency string    // dependency expression attached, if any
	CreatedAt  time.Time // recorded in UTC
}

// ChainSummary aggregates a chain's recorded activity.
type ChainSummary struct {
	ChainID        string
	Submissions    int
	LastGeneration int
	LastJobID      string
	LastRecorded   time.Time
}

// Store is a SQLite-backed submission ledger.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the ledger at dbPath. Use ":memory:" for
// an in-memory ledger (useful in tests).
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", dbPath, err)
	}

	// WAL keeps operator reads from blocking chain writes on the shared
	// filesystem.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "ledger"),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the ledger schema.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// Record inserts one submission row. CreatedAt defaults to now when unset.
func (s *Store) Record(ctx context.Context, sub Submission) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	s.logger.Debug("sql", "op", "insert", "table", "submissions",
		"chain", sub.ChainID, "generation", sub.Generation, "kind", sub.Kind)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (chain_id, generation, kind, job_id, dependency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ChainID, sub.Generation, string(sub.Kind), sub.JobID, sub.Dependency,
		sub.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// ListChain returns a chain's submissions in recorded order.
func (s *Store) ListChain(ctx context.Context, chainID string) ([]Submission, error) {
	s.logger.Debug("sql", "op", "select", "table", "submissions", "chain", chainID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT chain_id, generation, kind, job_id, dependency, created_at
		 FROM submissions WHERE chain_id = ? ORDER BY id`, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Chains summarizes all recorded chains, most recently active first.
func (s *Store) Chains(ctx context.Context) ([]ChainSummary, error) {
	s.logger.Debug("sql", "op", "select", "table", "submissions", "agg", "chains")

	rows, err := s.db.QueryContext(ctx,
		`SELECT chain_id, COUNT(*), MAX(generation),
		        (SELECT job_id FROM submissions s2 WHERE s2.chain_id = s1.chain_id ORDER BY s2.id DESC LIMIT 1),
		        MAX(created_at)
		 FROM submissions s1 GROUP BY chain_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []ChainSummary
	for rows.Next() {
		var c ChainSummary
		var last string
		if err := rows.Scan(&c.ChainID, &c.Submissions, &c.LastGeneration, &c.LastJobID, &last); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, last)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", last, err)
		}
		c.LastRecorded = t
		chains = append(chains, c)
	}
	return chains, rows.Err()
}

// LatestChain returns the most recently active chain id, or "" when the
// ledger is empty.
func (s *Store) LatestChain(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT chain_id FROM submissions ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func scanSubmission(rows *sql.Rows) (Submission, error) {
	var sub Submission
	var kind, created string
	if err := rows.Scan(&sub.ChainID, &sub.Generation, &kind, &sub.JobID, &sub.Dependency, &created); err != nil {
		return sub, err
	}
	sub.Kind = Kind(kind)
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return sub, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	sub.CreatedAt = t
	return sub, nil
}
