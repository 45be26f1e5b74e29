package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

const sprintColumns = `id, user_id, name, goal, start_date, end_date, status, created_at, updated_at`

var sprintSortColumns = map[string]string{
	"name":      "name",
	"startDate": "start_date",
	"endDate":   "end_date",
	"status":    "status",
	"createdAt": "created_at",
}

func scanSprint(row rowScanner) (*types.Sprint, error) {
	var sp types.Sprint
	err := row.Scan(&sp.ID, &sp.UserID, &sp.Name, &sp.Goal, &sp.StartDate, &sp.EndDate,
		&sp.Status, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan sprint: %w", err)
	}
	return &sp, nil
}

// CreateSprint inserts a sprint. New sprints always start PLANNED; date
// validation happens at the request boundary.
func (s *SQLiteStorage) CreateSprint(ctx context.Context, sprint *types.Sprint) error {
	now := time.Now()
	sprint.Status = types.SprintPlanned
	sprint.CreatedAt = now
	sprint.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sprints (user_id, name, goal, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sprint.UserID, sprint.Name, sprint.Goal, sprint.StartDate, sprint.EndDate,
		sprint.Status, sprint.CreatedAt, sprint.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sprint: %w", err)
	}
	sprint.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sprint id: %w", err)
	}
	return nil
}

// GetSprint returns a sprint owned by userID.
func (s *SQLiteStorage) GetSprint(ctx context.Context, userID, id int64) (*types.Sprint, error) {
	return scanSprint(s.db.QueryRowContext(ctx, `
		SELECT `+sprintColumns+` FROM sprints WHERE id = ? AND user_id = ?
	`, id, userID))
}

// ListSprints returns one page of the user's sprints plus the total count.
func (s *SQLiteStorage) ListSprints(ctx context.Context, userID int64, page types.Page) ([]*types.Sprint, int, error) {
	page = normalizePage(page)

	where := "user_id = ?"
	args := []interface{}{userID}
	if page.Search != "" {
		where += " AND (name LIKE ? OR goal LIKE ?)"
		pattern := "%" + page.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sprints WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sprints: %w", err)
	}

	order := orderClause(page.Sort, "start_date DESC", sprintSortColumns)
	args = append(args, page.Size, page.Offset())
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sprintColumns+` FROM sprints
		WHERE `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sprints []*types.Sprint
	for rows.Next() {
		sp, err := scanSprint(rows)
		if err != nil {
			return nil, 0, err
		}
		sprints = append(sprints, sp)
	}
	return sprints, total, rows.Err()
}

// UpdateSprint rewrites a sprint's name, goal, and dates.
func (s *SQLiteStorage) UpdateSprint(ctx context.Context, sprint *types.Sprint) error {
	sprint.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sprints SET name = ?, goal = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, sprint.Name, sprint.Goal, sprint.StartDate, sprint.EndDate, sprint.UpdatedAt,
		sprint.ID, sprint.UserID)
	if err != nil {
		return fmt.Errorf("failed to update sprint: %w", err)
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

// DeleteSprint removes a sprint. Attached issues keep existing; their
// sprint references null out via the foreign key.
func (s *SQLiteStorage) DeleteSprint(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sprints WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
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

// ActivateSprint flips a PLANNED sprint to ACTIVE. Replacement dates, when
// supplied, overwrite the stored dates before the flip. Attached BACKLOG
// issues move to SELECTED_FOR_DEVELOPMENT; their ids are returned.
//
// The one-active-sprint invariant is enforced twice: a re-check inside the
// transaction for a clean error, and the partial unique index on sprints for
// racing activations that both pass the check.
func (s *SQLiteStorage) ActivateSprint(ctx context.Context, userID, id int64, newStart, newEnd *time.Time) (*types.Sprint, []int64, error) {
	var movedIDs []int64

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sprint, err := scanSprint(tx.QueryRowContext(ctx, `
			SELECT `+sprintColumns+` FROM sprints WHERE id = ? AND user_id = ?
		`, id, userID))
		if err != nil {
			return err
		}
		switch sprint.Status {
		case types.SprintActive:
			return types.ErrActiveSprintExists
		case types.SprintCompleted:
			return types.ErrSprintCompleted
		}

		var activeCount int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM sprints WHERE user_id = ? AND status = ?
		`, userID, types.SprintActive).Scan(&activeCount)
		if err != nil {
			return fmt.Errorf("failed to check active sprints: %w", err)
		}
		if activeCount > 0 {
			return types.ErrActiveSprintExists
		}

		start, end := sprint.StartDate, sprint.EndDate
		if newStart != nil {
			start = *newStart
		}
		if newEnd != nil {
			end = *newEnd
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE sprints SET start_date = ?, end_date = ?, status = ?, updated_at = ?
			WHERE id = ?
		`, start, end, types.SprintActive, time.Now(), id)
		if err != nil {
			if isUniqueViolation(err, "sprints.user_id") {
				return types.ErrActiveSprintExists
			}
			return fmt.Errorf("failed to activate sprint: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM issues WHERE sprint_id = ? AND user_id = ? AND status = ?
		`, id, userID, types.StatusBacklog)
		if err != nil {
			return fmt.Errorf("failed to find backlog issues: %w", err)
		}
		for rows.Next() {
			var issueID int64
			if err := rows.Scan(&issueID); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan issue id: %w", err)
			}
			movedIDs = append(movedIDs, issueID)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to read backlog issues: %w", err)
		}

		for _, issueID := range movedIDs {
			_, err = tx.ExecContext(ctx, `
				UPDATE issues SET status = ?, updated_at = ? WHERE id = ?
			`, types.StatusSelected, time.Now(), issueID)
			if err != nil {
				return fmt.Errorf("failed to move issue %d: %w", issueID, err)
			}
			err = appendAudit(ctx, tx, userID, issueID, types.AuditStatusChanged,
				fmt.Sprintf("%s -> %s (sprint activated)", types.StatusBacklog, types.StatusSelected))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sprint, err := s.GetSprint(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	return sprint, movedIDs, nil
}

// CompleteSprint flips an ACTIVE sprint to COMPLETED. Every attached issue
// is stamped with last_completed_sprint_id so history queries can recover
// the sprint's contents; issues short of DONE are detached and sent back to
// the backlog.
func (s *SQLiteStorage) CompleteSprint(ctx context.Context, userID, id int64) (*types.Sprint, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sprint, err := scanSprint(tx.QueryRowContext(ctx, `
			SELECT `+sprintColumns+` FROM sprints WHERE id = ? AND user_id = ?
		`, id, userID))
		if err != nil {
			return err
		}
		if sprint.Status != types.SprintActive {
			return types.ErrSprintNotActive
		}

		// Stamp all attached issues with the completion back-reference
		_, err = tx.ExecContext(ctx, `
			UPDATE issues SET last_completed_sprint_id = ? WHERE sprint_id = ? AND user_id = ?
		`, id, id, userID)
		if err != nil {
			return fmt.Errorf("failed to stamp sprint issues: %w", err)
		}

		// Carry over the unfinished work
		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM issues
			WHERE sprint_id = ? AND user_id = ? AND status != ?
		`, id, userID, types.StatusDone)
		if err != nil {
			return fmt.Errorf("failed to find unfinished issues: %w", err)
		}
		var carried []int64
		for rows.Next() {
			var issueID int64
			if err := rows.Scan(&issueID); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan issue id: %w", err)
			}
			carried = append(carried, issueID)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to read unfinished issues: %w", err)
		}

		for _, issueID := range carried {
			_, err = tx.ExecContext(ctx, `
				UPDATE issues SET sprint_id = NULL, status = ?, updated_at = ? WHERE id = ?
			`, types.StatusBacklog, time.Now(), issueID)
			if err != nil {
				return fmt.Errorf("failed to carry over issue %d: %w", issueID, err)
			}
			err = appendAudit(ctx, tx, userID, issueID, types.AuditSprintCompleted,
				fmt.Sprintf("Returned to %s (sprint %q completed)", types.StatusBacklog, sprint.Name))
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE sprints SET status = ?, updated_at = ? WHERE id = ?
		`, types.SprintCompleted, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to complete sprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSprint(ctx, userID, id)
}

// AddIssuesToSprint attaches issues to a PLANNED or ACTIVE sprint. When the
// sprint is already ACTIVE, attached BACKLOG issues move straight to
// SELECTED_FOR_DEVELOPMENT.
func (s *SQLiteStorage) AddIssuesToSprint(ctx context.Context, userID, sprintID int64, issueIDs []int64) ([]*types.Issue, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sprint, err := scanSprint(tx.QueryRowContext(ctx, `
			SELECT `+sprintColumns+` FROM sprints WHERE id = ? AND user_id = ?
		`, sprintID, userID))
		if err != nil {
			return err
		}
		if sprint.Status == types.SprintCompleted {
			return types.ErrSprintCompleted
		}

		for _, issueID := range issueIDs {
			var status types.Status
			err := tx.QueryRowContext(ctx, `
				SELECT status FROM issues WHERE id = ? AND user_id = ?
			`, issueID, userID).Scan(&status)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return types.ErrNotFound
				}
				return fmt.Errorf("failed to load issue %d: %w", issueID, err)
			}

			_, err = tx.ExecContext(ctx, `
				UPDATE issues SET sprint_id = ?, updated_at = ? WHERE id = ?
			`, sprintID, time.Now(), issueID)
			if err != nil {
				return fmt.Errorf("failed to attach issue %d: %w", issueID, err)
			}
			err = appendAudit(ctx, tx, userID, issueID, types.AuditSprintAssigned,
				fmt.Sprintf("Added to sprint %q", sprint.Name))
			if err != nil {
				return err
			}

			if sprint.Status == types.SprintActive && status == types.StatusBacklog {
				_, err = tx.ExecContext(ctx, `
					UPDATE issues SET status = ? WHERE id = ?
				`, types.StatusSelected, issueID)
				if err != nil {
					return fmt.Errorf("failed to move issue %d: %w", issueID, err)
				}
				err = appendAudit(ctx, tx, userID, issueID, types.AuditStatusChanged,
					fmt.Sprintf("%s -> %s (added to active sprint)", types.StatusBacklog, types.StatusSelected))
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	issues := make([]*types.Issue, 0, len(issueIDs))
	for _, issueID := range issueIDs {
		issue, err := s.GetIssue(ctx, userID, issueID)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// SprintIssues returns the issues belonging to a sprint. For a completed
// sprint this is the union of issues still attached (finished work) and
// issues pointing back only via last_completed_sprint_id (carried-over work).
func (s *SQLiteStorage) SprintIssues(ctx context.Context, userID, sprintID int64) ([]*types.Issue, error) {
	if _, err := s.GetSprint(ctx, userID, sprintID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+issueColumns+`
		`+issueFrom+`
		WHERE i.user_id = ? AND (i.sprint_id = ? OR i.last_completed_sprint_id = ?)
		ORDER BY i.created_at
	`, userID, sprintID, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprint issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	issues, err := scanIssueRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachLabels(ctx, issues); err != nil {
		return nil, err
	}
	return issues, nil
}
