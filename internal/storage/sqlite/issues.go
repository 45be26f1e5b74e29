package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

// issueColumns joins the type name and child count into every issue read.
const issueColumns = `
	i.id, i.user_id, i.project_id, i.issue_type_id, t.name,
	i.sprint_id, i.last_completed_sprint_id, i.parent_issue_id,
	i.title, i.description, i.status, i.priority, i.story_points,
	(SELECT COUNT(*) FROM issues c WHERE c.parent_issue_id = i.id),
	i.created_at, i.updated_at`

const issueFrom = `FROM issues i JOIN issue_types t ON i.issue_type_id = t.id`

var issueSortColumns = map[string]string{
	"title":     "i.title",
	"status":    "i.status",
	"priority":  "i.priority",
	"createdAt": "i.created_at",
	"updatedAt": "i.updated_at",
}

func scanIssue(row rowScanner) (*types.Issue, error) {
	var i types.Issue
	var sprintID, lastSprintID, parentID sql.NullInt64
	var points sql.NullInt64
	err := row.Scan(
		&i.ID, &i.UserID, &i.ProjectID, &i.IssueTypeID, &i.TypeName,
		&sprintID, &lastSprintID, &parentID,
		&i.Title, &i.Description, &i.Status, &i.Priority, &points,
		&i.ChildIssueCount, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}
	if sprintID.Valid {
		i.SprintID = &sprintID.Int64
	}
	if lastSprintID.Valid {
		i.LastCompletedSprintID = &lastSprintID.Int64
	}
	if parentID.Valid {
		i.ParentIssueID = &parentID.Int64
	}
	if points.Valid {
		p := int(points.Int64)
		i.StoryPoints = &p
	}
	return &i, nil
}

func scanIssueRows(rows *sql.Rows) ([]*types.Issue, error) {
	var issues []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// validateHierarchy enforces the epic containment rules before a write:
// an EPIC must have no parent; any other type must point at a parent that
// exists, belongs to the same user and project, and is itself an epic.
func validateHierarchy(ctx context.Context, q execer, issue *types.Issue) error {
	var typeName string
	err := q.QueryRowContext(ctx, `
		SELECT name FROM issue_types
		WHERE id = ? AND (is_global = 1 OR user_id = ?)
	`, issue.IssueTypeID, issue.UserID).Scan(&typeName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			v := types.NewValidationError()
			v.Add("issueTypeId", "unknown issue type")
			return v
		}
		return fmt.Errorf("failed to resolve issue type: %w", err)
	}
	issue.TypeName = typeName

	if typeName == types.EpicTypeName {
		if issue.ParentIssueID != nil {
			v := types.NewValidationError()
			v.Add("parentIssueId", "an epic cannot have a parent issue")
			return v
		}
		return nil
	}

	if issue.ParentIssueID == nil {
		v := types.NewValidationError()
		v.Add("parentIssueId", "a non-epic issue requires a parent epic")
		return v
	}
	if *issue.ParentIssueID == issue.ID && issue.ID != 0 {
		v := types.NewValidationError()
		v.Add("parentIssueId", "an issue cannot be its own parent")
		return v
	}

	var parentType string
	var parentProject int64
	err = q.QueryRowContext(ctx, `
		SELECT t.name, i.project_id
		`+issueFrom+`
		WHERE i.id = ? AND i.user_id = ?
	`, *issue.ParentIssueID, issue.UserID).Scan(&parentType, &parentProject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			v := types.NewValidationError()
			v.Add("parentIssueId", "parent issue not found")
			return v
		}
		return fmt.Errorf("failed to resolve parent issue: %w", err)
	}
	if parentType != types.EpicTypeName {
		v := types.NewValidationError()
		v.Add("parentIssueId", "parent issue is not an epic")
		return v
	}
	if parentProject != issue.ProjectID {
		v := types.NewValidationError()
		v.Add("parentIssueId", "parent epic belongs to a different project")
		return v
	}
	return nil
}

// CreateIssue inserts an issue and appends a creation audit record in the
// same transaction. New issues always start in BACKLOG.
func (s *SQLiteStorage) CreateIssue(ctx context.Context, issue *types.Issue) error {
	if issue.Status == "" {
		issue.Status = types.StatusBacklog
	}
	if err := issue.Validate(); err != nil {
		return err
	}

	now := time.Now()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	return s.inTx(ctx, func(tx *sql.Tx) error {
		// Project must be owned by the issue's user
		var ok int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM projects WHERE id = ? AND user_id = ?
		`, issue.ProjectID, issue.UserID).Scan(&ok)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("failed to resolve project: %w", err)
		}

		if err := validateHierarchy(ctx, tx, issue); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO issues (
				user_id, project_id, issue_type_id, sprint_id, parent_issue_id,
				title, description, status, priority, story_points,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			issue.UserID, issue.ProjectID, issue.IssueTypeID, issue.SprintID,
			issue.ParentIssueID, issue.Title, issue.Description, issue.Status,
			issue.Priority, issue.StoryPoints, issue.CreatedAt, issue.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert issue: %w", err)
		}
		issue.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read issue id: %w", err)
		}

		return appendAudit(ctx, tx, issue.UserID, issue.ID, types.AuditCreated, "Created issue: "+issue.Title)
	})
}

// GetIssue returns an issue owned by userID, with labels attached.
func (s *SQLiteStorage) GetIssue(ctx context.Context, userID, id int64) (*types.Issue, error) {
	issue, err := scanIssue(s.db.QueryRowContext(ctx, `
		SELECT `+issueColumns+`
		`+issueFrom+`
		WHERE i.id = ? AND i.user_id = ?
	`, id, userID))
	if err != nil {
		return nil, err
	}
	if err := s.attachLabels(ctx, []*types.Issue{issue}); err != nil {
		return nil, err
	}
	return issue, nil
}

// attachLabels loads labels for the given issues in one query.
func (s *SQLiteStorage) attachLabels(ctx context.Context, issues []*types.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	byID := make(map[int64]*types.Issue, len(issues))
	args := make([]interface{}, 0, len(issues))
	placeholders := ""
	for n, issue := range issues {
		byID[issue.ID] = issue
		args = append(args, issue.ID)
		if n > 0 {
			placeholders += ","
		}
		placeholders += "?"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT il.issue_id, l.id, l.user_id, l.name, l.color
		FROM issue_labels il
		JOIN labels l ON il.label_id = l.id
		WHERE il.issue_id IN (`+placeholders+`)
		ORDER BY l.name
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var issueID int64
		var l types.Label
		if err := rows.Scan(&issueID, &l.ID, &l.UserID, &l.Name, &l.Color); err != nil {
			return fmt.Errorf("failed to scan label: %w", err)
		}
		if issue, ok := byID[issueID]; ok {
			issue.Labels = append(issue.Labels, &l)
		}
	}
	return rows.Err()
}

// ListIssues returns one page of the user's issues plus the total count.
func (s *SQLiteStorage) ListIssues(ctx context.Context, userID int64, filter types.IssueFilter, page types.Page) ([]*types.Issue, int, error) {
	page = normalizePage(page)

	where := "i.user_id = ?"
	args := []interface{}{userID}
	if filter.ProjectID != nil {
		where += " AND i.project_id = ?"
		args = append(args, *filter.ProjectID)
	}
	if filter.Status != nil {
		where += " AND i.status = ?"
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		where += " AND i.priority = ?"
		args = append(args, *filter.Priority)
	}
	if filter.SprintID != nil {
		where += " AND i.sprint_id = ?"
		args = append(args, *filter.SprintID)
	}
	if filter.ParentID != nil {
		where += " AND i.parent_issue_id = ?"
		args = append(args, *filter.ParentID)
	}
	if page.Search != "" {
		where += " AND (i.title LIKE ? OR i.description LIKE ?)"
		pattern := "%" + page.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+issueFrom+` WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count issues: %w", err)
	}

	order := orderClause(page.Sort, "i.created_at DESC", issueSortColumns)
	args = append(args, page.Size, page.Offset())
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+issueColumns+`
		`+issueFrom+`
		WHERE `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	issues, err := scanIssueRows(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachLabels(ctx, issues); err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// UpdateIssue rewrites an issue's mutable fields, revalidating the epic
// hierarchy, and appends an update audit record.
func (s *SQLiteStorage) UpdateIssue(ctx context.Context, issue *types.Issue) error {
	if err := issue.Validate(); err != nil {
		return err
	}
	issue.UpdatedAt = time.Now()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := validateHierarchy(ctx, tx, issue); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE issues
			SET issue_type_id = ?, parent_issue_id = ?, title = ?, description = ?,
			    priority = ?, story_points = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`, issue.IssueTypeID, issue.ParentIssueID, issue.Title, issue.Description,
			issue.Priority, issue.StoryPoints, issue.UpdatedAt, issue.ID, issue.UserID)
		if err != nil {
			return fmt.Errorf("failed to update issue: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check update result: %w", err)
		}
		if n == 0 {
			return types.ErrNotFound
		}

		return appendAudit(ctx, tx, issue.UserID, issue.ID, types.AuditUpdated, "Updated issue fields")
	})
}

// DeleteIssue removes an issue; comments, audit logs, and child issues
// cascade away with it.
func (s *SQLiteStorage) DeleteIssue(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM issues WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
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

// TransitionIssue applies a workflow status change, recording the before and
// after states in the audit trail. Illegal moves fail with a
// types.WorkflowTransitionError.
func (s *SQLiteStorage) TransitionIssue(ctx context.Context, userID, id int64, to types.Status) (*types.Issue, error) {
	if !to.IsValid() {
		return nil, &types.WorkflowTransitionError{From: "", To: to}
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var from types.Status
		err := tx.QueryRowContext(ctx, `
			SELECT status FROM issues WHERE id = ? AND user_id = ?
		`, id, userID).Scan(&from)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("failed to load issue status: %w", err)
		}

		if !types.CanTransition(from, to) {
			return &types.WorkflowTransitionError{From: from, To: to}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE issues SET status = ?, updated_at = ? WHERE id = ?
		`, to, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}

		return appendAudit(ctx, tx, userID, id, types.AuditStatusChanged,
			fmt.Sprintf("%s -> %s", from, to))
	})
	if err != nil {
		return nil, err
	}
	return s.GetIssue(ctx, userID, id)
}

// RootEpic walks parent pointers upward until an issue with no parent is
// found. A visited set guards against cycles in corrupted data; hitting one
// is an error rather than an infinite loop.
func (s *SQLiteStorage) RootEpic(ctx context.Context, userID, id int64) (*types.Issue, error) {
	current := id
	visited := map[int64]struct{}{}
	for {
		if _, seen := visited[current]; seen {
			return nil, fmt.Errorf("parent cycle detected at issue %d", current)
		}
		visited[current] = struct{}{}

		var parent sql.NullInt64
		err := s.db.QueryRowContext(ctx, `
			SELECT parent_issue_id FROM issues WHERE id = ? AND user_id = ?
		`, current, userID).Scan(&parent)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrNotFound
			}
			return nil, fmt.Errorf("failed to walk parent chain: %w", err)
		}
		if !parent.Valid {
			return s.GetIssue(ctx, userID, current)
		}
		current = parent.Int64
	}
}
