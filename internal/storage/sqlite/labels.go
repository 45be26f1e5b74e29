package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ahoskins/burndown/internal/types"
)

var labelSortColumns = map[string]string{
	"name": "name",
}

// CreateLabel inserts a label; the name is unique per user.
func (s *SQLiteStorage) CreateLabel(ctx context.Context, label *types.Label) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (user_id, name, color) VALUES (?, ?, ?)
	`, label.UserID, label.Name, label.Color)
	if err != nil {
		if isUniqueViolation(err, "labels.") {
			return &types.DuplicateError{Resource: "label", Field: "name", Value: label.Name}
		}
		return fmt.Errorf("failed to insert label: %w", err)
	}
	label.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read label id: %w", err)
	}
	return nil
}

func scanLabel(row rowScanner) (*types.Label, error) {
	var l types.Label
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan label: %w", err)
	}
	return &l, nil
}

// GetLabel returns a label owned by userID.
func (s *SQLiteStorage) GetLabel(ctx context.Context, userID, id int64) (*types.Label, error) {
	return scanLabel(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, color FROM labels WHERE id = ? AND user_id = ?
	`, id, userID))
}

// ListLabels returns one page of the user's labels plus the total count.
func (s *SQLiteStorage) ListLabels(ctx context.Context, userID int64, page types.Page) ([]*types.Label, int, error) {
	page = normalizePage(page)

	where := "user_id = ?"
	args := []interface{}{userID}
	if page.Search != "" {
		where += " AND name LIKE ?"
		args = append(args, "%"+page.Search+"%")
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count labels: %w", err)
	}

	order := orderClause(page.Sort, "name ASC", labelSortColumns)
	args = append(args, page.Size, page.Offset())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color FROM labels
		WHERE `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []*types.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, 0, err
		}
		labels = append(labels, l)
	}
	return labels, total, rows.Err()
}

// UpdateLabel rewrites a label's name and color.
func (s *SQLiteStorage) UpdateLabel(ctx context.Context, label *types.Label) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE labels SET name = ?, color = ? WHERE id = ? AND user_id = ?
	`, label.Name, label.Color, label.ID, label.UserID)
	if err != nil {
		if isUniqueViolation(err, "labels.") {
			return &types.DuplicateError{Resource: "label", Field: "name", Value: label.Name}
		}
		return fmt.Errorf("failed to update label: %w", err)
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

// DeleteLabel removes a label and its issue attachments.
func (s *SQLiteStorage) DeleteLabel(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM labels WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
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

// AttachLabel adds a label to an issue, recording the change in the audit
// trail. Both rows must belong to userID. Attaching twice is a no-op.
func (s *SQLiteStorage) AttachLabel(ctx context.Context, userID, issueID, labelID int64) error {
	return s.executeLabelOperation(ctx, userID, issueID, labelID,
		`INSERT OR IGNORE INTO issue_labels (issue_id, label_id) VALUES (?, ?)`,
		types.AuditLabelAdded, "Added label")
}

// DetachLabel removes a label from an issue.
func (s *SQLiteStorage) DetachLabel(ctx context.Context, userID, issueID, labelID int64) error {
	return s.executeLabelOperation(ctx, userID, issueID, labelID,
		`DELETE FROM issue_labels WHERE issue_id = ? AND label_id = ?`,
		types.AuditLabelRemoved, "Removed label")
}

// executeLabelOperation runs an attach or detach plus its audit record in
// one transaction, after verifying ownership of both sides.
func (s *SQLiteStorage) executeLabelOperation(
	ctx context.Context,
	userID, issueID, labelID int64,
	labelSQL string,
	action types.AuditAction,
	auditPrefix string,
) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var ok int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM issues WHERE id = ? AND user_id = ?
		`, issueID, userID).Scan(&ok)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("failed to resolve issue: %w", err)
		}

		var labelName string
		err = tx.QueryRowContext(ctx, `
			SELECT name FROM labels WHERE id = ? AND user_id = ?
		`, labelID, userID).Scan(&labelName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("failed to resolve label: %w", err)
		}

		if _, err := tx.ExecContext(ctx, labelSQL, issueID, labelID); err != nil {
			return fmt.Errorf("failed to apply label change: %w", err)
		}

		return appendAudit(ctx, tx, userID, issueID, action,
			fmt.Sprintf("%s: %s", auditPrefix, labelName))
	})
}
