// Package sqlite implements a SQLite-backed state.Store using database/sql.
// Identifier inserts are batched inside a transaction per written chunk;
// SQLite has no dedicated bulk-load API, but transactions keep performance
// acceptable for the volumes a conversion run produces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/M7sn1982/twarc-csv/internal/state"
)

// Store persists seen identifiers and per-run counters in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the state database at dsn.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:state.db?cache=shared"
//	"state.db"
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seen_ids (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL,
			lines INTEGER NOT NULL,
			tweets INTEGER NOT NULL,
			referenced_tweets INTEGER NOT NULL,
			unavailable INTEGER NOT NULL,
			non_tweets INTEGER NOT NULL,
			parse_errors INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			rows INTEGER NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// SeedInto implements state.Store. Every persisted identifier, regardless of
// the run that wrote it, is loaded into the seen-set.
func (s *Store) SeedInto(ctx context.Context, rs *state.RunState) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen_ids`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: seed: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return n, fmt.Errorf("sqlite: seed scan: %w", err)
		}
		rs.Seen.Add(id)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("sqlite: seed rows: %w", err)
	}
	return n, nil
}

// SaveChunk implements state.Store. The identifier inserts and the counter
// snapshot commit atomically, so the store never gets ahead of or behind the
// written output by more than one chunk.
func (s *Store) SaveChunk(ctx context.Context, rs *state.RunState, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen_ids (id, run_id) VALUES (?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, rs.RunID); err != nil {
			stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: insert id: %w", err)
		}
	}
	stmt.Close()

	c := rs.Counters
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
			(run_id, updated_at, lines, tweets, referenced_tweets, unavailable,
			 non_tweets, parse_errors, duplicates, rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			lines = excluded.lines,
			tweets = excluded.tweets,
			referenced_tweets = excluded.referenced_tweets,
			unavailable = excluded.unavailable,
			non_tweets = excluded.non_tweets,
			parse_errors = excluded.parse_errors,
			duplicates = excluded.duplicates,
			rows = excluded.rows`,
		rs.RunID, time.Now().UTC().Format(time.RFC3339),
		c.Lines, c.Tweets, c.ReferencedTweets, c.Unavailable,
		c.NonTweets, c.ParseErrors, c.Duplicates, c.Rows,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: upsert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Close implements state.Store.
func (s *Store) Close() error { return s.db.Close() }
