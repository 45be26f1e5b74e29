// Package auth implements registration, login, and bearer-token
// authentication on top of the storage layer. Passwords are stored as
// bcrypt hashes; tokens are opaque UUIDs persisted server-side so a
// logout revokes them immediately.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahoskins/burndown/internal/storage"
	"github.com/ahoskins/burndown/internal/types"
)

// ErrInvalidCredentials is returned for a bad email/password pair and for
// unknown, expired, or revoked tokens. The cases are indistinguishable on
// purpose.
var ErrInvalidCredentials = errors.New("invalid credentials")

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Service issues and checks credentials.
type Service struct {
	store storage.Storage
	ttl   time.Duration
	cost  int
}

// NewService creates an auth service. A non-positive ttl falls back to
// DefaultTokenTTL; a non-positive cost falls back to bcrypt.DefaultCost.
func NewService(store storage.Storage, ttl time.Duration, cost int) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, ttl: ttl, cost: cost}
}

// Register creates a user and logs them in, returning the new user and a
// fresh token.
func (s *Service) Register(ctx context.Context, email, password, name string) (*types.User, *types.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if verr := types.ValidateCredentials(email, password); verr != nil {
		return nil, nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// Login checks an email/password pair and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*types.User, *types.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to its user. Expired tokens are
// deleted as they are seen.
func (s *Service) Authenticate(ctx context.Context, tokenValue string) (*types.User, error) {
	if tokenValue == "" {
		return nil, ErrInvalidCredentials
	}
	token, err := s.store.GetToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if token.Expired(time.Now()) {
		_ = s.store.DeleteToken(ctx, token.Value)
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.GetUser(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load token's user: %w", err)
	}
	return user, nil
}

// Logout revokes a token. Revoking an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, tokenValue string) error {
	if err := s.store.DeleteToken(ctx, tokenValue); err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// PurgeExpired deletes tokens past their expiry and reports how many were
// removed. Called periodically by the server.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredTokens(ctx, time.Now())
}

func (s *Service) issueToken(ctx context.Context, userID int64) (*types.Token, error) {
	now := time.Now()
	token := &types.Token{
		Value:     uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}
