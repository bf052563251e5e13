package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and creates the schema if it is missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are private to the connection that created them.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.CreateSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSchema checks the current schema version and applies any
// outstanding migrations in order, inside a single transaction.
func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	return s.withTx(ctx, "create schema", func(tx *sqlx.Tx) error {
		currentVersion := 0

		// Check if schema_version table exists.
		var tableCount int
		err := tx.GetContext(ctx,
			&tableCount,
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
		)
		if err != nil {
			return unavailable("checking schema_version table", err)
		}

		if tableCount > 0 {
			err = tx.GetContext(ctx, &currentVersion,
				"SELECT COALESCE(MAX(version), 0) FROM schema_version")
			if err != nil {
				return unavailable("reading schema version", err)
			}
		}

		for _, m := range migrations {
			if m.version <= currentVersion {
				continue
			}
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return unavailable(fmt.Sprintf("applying migration v%d", m.version), err)
			}
		}

		return nil
	})
}

// withTx runs fn inside a transaction. The transaction commits only when fn
// returns nil; any error or panic rolls it back.
func (s *SQLiteStore) withTx(
	ctx context.Context,
	op string,
	fn func(tx *sqlx.Tx) error,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(op+": beginning transaction", err)
	}
	// No-op once Commit has succeeded.
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable(op+": committing", err)
	}
	return nil
}

// Reset deletes all prompts, notification records and responses. This is the
// explicit app data reset; nothing else removes prompts.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.withTx(ctx, "reset", func(tx *sqlx.Tx) error {
		for _, table := range []string{"prompt_responses", "prompt_notifications", "prompts"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return unavailable("clearing "+table, err)
			}
		}
		return nil
	})
}
