// Package helpers holds fixtures shared by package tests.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/chatrelay/internal/domain"
	store "github.com/xiaot623/chatrelay/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t *testing.T, s store.Store, email string) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     email,
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}
