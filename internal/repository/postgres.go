package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id       TEXT PRIMARY KEY,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		seq        BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT 'New Chat',
		start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_time   TIMESTAMPTZ,
		summary    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		seq             BIGSERIAL PRIMARY KEY,
		message_id      TEXT NOT NULL UNIQUE,
		session_id      TEXT NOT NULL,
		sender_id       TEXT NOT NULL,
		ts              TIMESTAMPTZ NOT NULL,
		is_user_message BOOLEAN NOT NULL,
		content         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, seq)`,
}

// NewPostgresStore creates a store backed by PostgreSQL.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	return newSQLStore(db, dialect{
		name:              "postgres",
		numbered:          true,
		migrations:        postgresMigrations,
		isUniqueViolation: postgresUniqueViolation,
	})
}

func postgresUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
