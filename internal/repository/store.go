// Package store defines the storage interface and its SQL implementations.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate key")

// Store defines the interface for data persistence.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Session operations
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error)
	CloseSession(ctx context.Context, userID, sessionID string, endTime time.Time, summary string) (*domain.ChatSession, error)
	RenameSession(ctx context.Context, userID, sessionID, name string) (*domain.ChatSession, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.ChatMessage) error
	GetMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)

	// Lifecycle
	Close() error
}

// Open opens a store for the given driver name ("sqlite3" or "postgres").
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres", "postgresql":
		return NewPostgresStore(dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}
}
