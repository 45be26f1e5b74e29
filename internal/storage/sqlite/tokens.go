package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

// CreateToken persists a bearer token
func (s *SQLiteStorage) CreateToken(ctx context.Context, token *types.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (token, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, token.Value, token.UserID, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// GetToken returns a token by value. Expiry is the caller's concern.
func (s *SQLiteStorage) GetToken(ctx context.Context, value string) (*types.Token, error) {
	var t types.Token
	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, created_at, expires_at
		FROM tokens WHERE token = ?
	`, value).Scan(&t.Value, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &t, nil
}

// DeleteToken revokes a token. Deleting an unknown token is not an error.
func (s *SQLiteStorage) DeleteToken(ctx context.Context, value string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, value)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// DeleteExpiredTokens removes tokens past their expiry and returns the count.
func (s *SQLiteStorage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tokens: %w", err)
	}
	return n, nil
}
