package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ahoskins/burndown/internal/types"
)

// CreateIssueType inserts a custom, user-owned issue type. Global types are
// seeded at schema init and cannot be created through this path.
func (s *SQLiteStorage) CreateIssueType(ctx context.Context, it *types.IssueType) error {
	if it.UserID == nil {
		return fmt.Errorf("custom issue type requires an owner")
	}
	it.IsGlobal = false

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO issue_types (name, user_id, project_id, is_global)
		VALUES (?, ?, ?, 0)
	`, it.Name, it.UserID, it.ProjectID)
	if err != nil {
		if isUniqueViolation(err, "issue_types.") {
			return &types.DuplicateError{Resource: "issue type", Field: "name", Value: it.Name}
		}
		return fmt.Errorf("failed to insert issue type: %w", err)
	}
	it.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read issue type id: %w", err)
	}
	return nil
}

func scanIssueType(row rowScanner) (*types.IssueType, error) {
	var it types.IssueType
	var userID, projectID sql.NullInt64
	err := row.Scan(&it.ID, &it.Name, &userID, &projectID, &it.IsGlobal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan issue type: %w", err)
	}
	if userID.Valid {
		it.UserID = &userID.Int64
	}
	if projectID.Valid {
		it.ProjectID = &projectID.Int64
	}
	return &it, nil
}

// GetIssueType returns a global type or one owned by userID.
func (s *SQLiteStorage) GetIssueType(ctx context.Context, userID, id int64) (*types.IssueType, error) {
	return scanIssueType(s.db.QueryRowContext(ctx, `
		SELECT id, name, user_id, project_id, is_global
		FROM issue_types
		WHERE id = ? AND (is_global = 1 OR user_id = ?)
	`, id, userID))
}

// ListIssueTypes returns the global types plus the user's custom types.
func (s *SQLiteStorage) ListIssueTypes(ctx context.Context, userID int64) ([]*types.IssueType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, user_id, project_id, is_global
		FROM issue_types
		WHERE is_global = 1 OR user_id = ?
		ORDER BY is_global DESC, name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.IssueType
	for rows.Next() {
		it, err := scanIssueType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
