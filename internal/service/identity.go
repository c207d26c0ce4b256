package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaot623/chatrelay/internal/auth"
	"github.com/xiaot623/chatrelay/internal/domain"
	store "github.com/xiaot623/chatrelay/internal/repository"
)

// Signup registers a new user. Emails are unique.
func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	email := strings.TrimSpace(req.Email)

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewPersistenceError("Error signing up", err)
	}
	if existing != nil {
		return nil, domain.NewConflict("Email already existed")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &domain.User{
		ID:           newID(),
		Username:     strings.TrimSpace(req.Username),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewConflict("Email already existed")
		}
		return nil, domain.NewPersistenceError("Error signing up", err)
	}

	s.logger.Info("user signed up", "user", user.ID)
	return user, nil
}

// Signin checks credentials and returns a bearer token.
func (s *Service) Signin(ctx context.Context, req domain.SigninRequest) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return "", domain.NewPersistenceError("Error signing in", err)
	}
	if user == nil || !auth.ComparePassword(user.PasswordHash, req.Password) {
		return "", domain.NewUnauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", errors.Wrap(err, "failed to issue token")
	}
	return token, nil
}

// Authenticate resolves a bearer token to its user. Tokens whose user no
// longer exists are rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.NewForbidden("Invalid token")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("Error loading user", err)
	}
	if user == nil {
		return nil, domain.NewForbidden("Invalid token")
	}
	return user, nil
}
