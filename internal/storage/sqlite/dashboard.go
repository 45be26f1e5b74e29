package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

// GetDashboard computes the user's aggregate metrics. Everything is derived
// on the fly; nothing is cached.
func (s *SQLiteStorage) GetDashboard(ctx context.Context, userID int64, now time.Time) (*types.Dashboard, error) {
	d := &types.Dashboard{
		IssuesByStatus:   make(map[types.Status]int),
		IssuesByPriority: make(map[string]int),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM projects WHERE user_id = ?),
			(SELECT COUNT(*) FROM issues WHERE user_id = ?),
			(SELECT COUNT(*) FROM sprints WHERE user_id = ?)
	`, userID, userID, userID).Scan(&d.ProjectCount, &d.IssueCount, &d.SprintCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity counts: %w", err)
	}

	for _, status := range types.WorkflowStates {
		d.IssuesByStatus[status] = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM issues WHERE user_id = ? GROUP BY status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to group issues by status: %w", err)
	}
	for rows.Next() {
		var status types.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan status group: %w", err)
		}
		d.IssuesByStatus[status] = count
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to read status groups: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT priority, COUNT(*) FROM issues WHERE user_id = ? GROUP BY priority
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to group issues by priority: %w", err)
	}
	for rows.Next() {
		var priority, count int
		if err := rows.Scan(&priority, &count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan priority group: %w", err)
		}
		d.IssuesByPriority[strconv.Itoa(priority)] = count
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to read priority groups: %w", err)
	}

	progress, err := s.activeSprintProgress(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	d.ActiveSprint = progress
	return d, nil
}

// activeSprintProgress builds the burn-down snapshot for the user's active
// sprint, or nil when no sprint is active.
func (s *SQLiteStorage) activeSprintProgress(ctx context.Context, userID int64, now time.Time) (*types.SprintProgress, error) {
	sprint, err := scanSprint(s.db.QueryRowContext(ctx, `
		SELECT `+sprintColumns+` FROM sprints WHERE user_id = ? AND status = ?
	`, userID, types.SprintActive))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	p := &types.SprintProgress{
		SprintID:  sprint.ID,
		Name:      sprint.Name,
		StartDate: sprint.StartDate,
		EndDate:   sprint.EndDate,
	}

	if remaining := sprint.EndDate.Sub(now); remaining > 0 {
		p.DaysRemaining = int(remaining.Hours() / 24)
	}

	var donePoints sql.NullInt64
	var totalPoints sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			SUM(story_points),
			SUM(CASE WHEN status = ? THEN story_points ELSE 0 END)
		FROM issues
		WHERE user_id = ? AND sprint_id = ?
	`, types.StatusDone, types.StatusDone, userID, sprint.ID).
		Scan(&p.TotalIssues, &p.DoneIssues, &totalPoints, &donePoints)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sprint issues: %w", err)
	}
	if totalPoints.Valid {
		p.TotalStoryPoints = int(totalPoints.Int64)
	}
	if donePoints.Valid {
		p.BurnedStoryPoints = int(donePoints.Int64)
	}
	if p.TotalIssues > 0 {
		p.CompletionPercent = float64(p.DoneIssues) / float64(p.TotalIssues) * 100
	}
	return p, nil
}
