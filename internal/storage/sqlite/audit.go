package sqlite

import (
	"context"
	"fmt"

	"github.com/ahoskins/burndown/internal/types"
)

const limitClause = " LIMIT ?"

// ListAuditLogs returns the audit trail for an issue, newest first.
func (s *SQLiteStorage) ListAuditLogs(ctx context.Context, userID, issueID int64, limit int) ([]*types.AuditLog, error) {
	if _, err := s.GetIssue(ctx, userID, issueID); err != nil {
		return nil, err
	}

	args := []interface{}{issueID, userID}
	limitSQL := ""
	if limit > 0 {
		limitSQL = limitClause
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, issue_id, action, details, created_at
		FROM audit_logs
		WHERE issue_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC
	`+limitSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*types.AuditLog
	for rows.Next() {
		var entry types.AuditLog
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.IssueID, &entry.Action,
			&entry.Details, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
