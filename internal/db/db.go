// Package db provides PostgreSQL access for users, tracked applications, and
// resumes.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// EnsureSchema creates the tables the tracker needs if they do not exist.
// The unique index on (user_id, name, url_key) is what makes the resolver's
// conditional upsert atomic.
func (db *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username      TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key
			ON users (email) WHERE email IS NOT NULL AND email <> ''`,
		`CREATE TABLE IF NOT EXISTS applications (
			id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id          UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name             TEXT NOT NULL,
			url              TEXT NOT NULL DEFAULT '',
			url_key          TEXT NOT NULL DEFAULT '',
			application_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			status           TEXT NOT NULL DEFAULT 'applied',
			notes            TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, name, url_key)
		)`,
		`CREATE INDEX IF NOT EXISTS applications_user_date_idx
			ON applications (user_id, application_date DESC)`,
		`CREATE TABLE IF NOT EXISTS resumes (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id       UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			file_name     TEXT NOT NULL,
			file_type     TEXT NOT NULL,
			file_size     BIGINT NOT NULL,
			content       TEXT NOT NULL,
			original_file BYTEA NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
