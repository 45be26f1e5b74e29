package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

// CreateComment adds a comment to an issue and records it in the audit
// trail within the same transaction.
func (s *SQLiteStorage) CreateComment(ctx context.Context, comment *types.Comment) error {
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var ok int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM issues WHERE id = ? AND user_id = ?
		`, comment.IssueID, comment.UserID).Scan(&ok)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("failed to resolve issue: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO comments (user_id, issue_id, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, comment.UserID, comment.IssueID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		comment.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read comment id: %w", err)
		}

		// Keep the issue's updated_at in step with its discussion
		_, err = tx.ExecContext(ctx, `
			UPDATE issues SET updated_at = ? WHERE id = ?
		`, now, comment.IssueID)
		if err != nil {
			return fmt.Errorf("failed to update issue timestamp: %w", err)
		}

		return appendAudit(ctx, tx, comment.UserID, comment.IssueID, types.AuditCommented, "Added a comment")
	})
}

func scanComment(row rowScanner) (*types.Comment, error) {
	var c types.Comment
	err := row.Scan(&c.ID, &c.UserID, &c.IssueID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	return &c, nil
}

// GetComment returns a comment owned by userID.
func (s *SQLiteStorage) GetComment(ctx context.Context, userID, id int64) (*types.Comment, error) {
	return scanComment(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, issue_id, content, created_at, updated_at
		FROM comments WHERE id = ? AND user_id = ?
	`, id, userID))
}

// ListComments returns an issue's comments, oldest first.
func (s *SQLiteStorage) ListComments(ctx context.Context, userID, issueID int64) ([]*types.Comment, error) {
	if _, err := s.GetIssue(ctx, userID, issueID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, issue_id, content, created_at, updated_at
		FROM comments
		WHERE issue_id = ? AND user_id = ?
		ORDER BY created_at
	`, issueID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*types.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// UpdateComment rewrites a comment's content.
func (s *SQLiteStorage) UpdateComment(ctx context.Context, comment *types.Comment) error {
	comment.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content = ?, updated_at = ? WHERE id = ? AND user_id = ?
	`, comment.Content, comment.UpdatedAt, comment.ID, comment.UserID)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// DeleteComment removes a comment.
func (s *SQLiteStorage) DeleteComment(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM comments WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
