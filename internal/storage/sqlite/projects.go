package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

// projectStatusExpr derives project status from the project's epics: DONE
// when the project has at least one epic and none of them is unfinished.
const projectStatusExpr = `
	CASE WHEN EXISTS (
		SELECT 1 FROM issues i
		JOIN issue_types t ON i.issue_type_id = t.id
		WHERE i.project_id = p.id AND t.name = 'EPIC'
	) AND NOT EXISTS (
		SELECT 1 FROM issues i
		JOIN issue_types t ON i.issue_type_id = t.id
		WHERE i.project_id = p.id AND t.name = 'EPIC' AND i.status != 'DONE'
	) THEN 'DONE' ELSE 'IN_PROGRESS' END`

const projectColumns = `p.id, p.user_id, p.name, p.key, p.description, p.created_at, p.updated_at, ` + projectStatusExpr

var projectSortColumns = map[string]string{
	"name":      "p.name",
	"key":       "p.key",
	"createdAt": "p.created_at",
	"updatedAt": "p.updated_at",
}

// CreateProject inserts a project. The key must already be normalized and
// validated; a duplicate key for the same user is a types.DuplicateError.
func (s *SQLiteStorage) CreateProject(ctx context.Context, project *types.Project) error {
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (user_id, name, key, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, project.UserID, project.Name, project.Key, project.Description, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "projects.") {
			return &types.DuplicateError{Resource: "project", Field: "key", Value: project.Key}
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	project.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}
	project.Status = types.ProjectInProgress
	return nil
}

func scanProject(row rowScanner) (*types.Project, error) {
	var p types.Project
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Key, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}

// GetProject returns a project owned by userID, with its derived status.
func (s *SQLiteStorage) GetProject(ctx context.Context, userID, id int64) (*types.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		WHERE p.id = ? AND p.user_id = ?
	`, id, userID))
}

// ListProjects returns one page of the user's projects plus the total count.
func (s *SQLiteStorage) ListProjects(ctx context.Context, userID int64, page types.Page) ([]*types.Project, int, error) {
	page = normalizePage(page)

	where := "p.user_id = ?"
	args := []interface{}{userID}
	if page.Search != "" {
		where += " AND (p.name LIKE ? OR p.key LIKE ?)"
		pattern := "%" + page.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects p WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	order := orderClause(page.Sort, "p.created_at DESC", projectSortColumns)
	args = append(args, page.Size, page.Offset())
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		WHERE `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

// UpdateProject rewrites a project's mutable fields.
func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *types.Project) error {
	project.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, key = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, project.Name, project.Key, project.Description, project.UpdatedAt, project.ID, project.UserID)
	if err != nil {
		if isUniqueViolation(err, "projects.") {
			return &types.DuplicateError{Resource: "project", Field: "key", Value: project.Key}
		}
		return fmt.Errorf("failed to update project: %w", err)
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

// DeleteProject removes a project; its issues, comments, and audit logs go
// with it via foreign key cascades.
func (s *SQLiteStorage) DeleteProject(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM projects WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
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
