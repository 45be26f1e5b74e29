// Package storage defines the interface for tracker storage backends.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

// Storage defines the persistence interface. Every read and write below the
// user methods is scoped by the owning user's id; rows belonging to other
// users are reported as types.ErrNotFound.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id int64) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)

	// Tokens
	CreateToken(ctx context.Context, token *types.Token) error
	GetToken(ctx context.Context, value string) (*types.Token, error)
	DeleteToken(ctx context.Context, value string) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	// Projects
	CreateProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, userID, id int64) (*types.Project, error)
	ListProjects(ctx context.Context, userID int64, page types.Page) ([]*types.Project, int, error)
	UpdateProject(ctx context.Context, project *types.Project) error
	DeleteProject(ctx context.Context, userID, id int64) error

	// Issue types
	CreateIssueType(ctx context.Context, it *types.IssueType) error
	GetIssueType(ctx context.Context, userID, id int64) (*types.IssueType, error)
	ListIssueTypes(ctx context.Context, userID int64) ([]*types.IssueType, error)

	// Issues
	CreateIssue(ctx context.Context, issue *types.Issue) error
	GetIssue(ctx context.Context, userID, id int64) (*types.Issue, error)
	ListIssues(ctx context.Context, userID int64, filter types.IssueFilter, page types.Page) ([]*types.Issue, int, error)
	UpdateIssue(ctx context.Context, issue *types.Issue) error
	DeleteIssue(ctx context.Context, userID, id int64) error
	TransitionIssue(ctx context.Context, userID, id int64, to types.Status) (*types.Issue, error)
	RootEpic(ctx context.Context, userID, id int64) (*types.Issue, error)

	// Sprints
	CreateSprint(ctx context.Context, sprint *types.Sprint) error
	GetSprint(ctx context.Context, userID, id int64) (*types.Sprint, error)
	ListSprints(ctx context.Context, userID int64, page types.Page) ([]*types.Sprint, int, error)
	UpdateSprint(ctx context.Context, sprint *types.Sprint) error
	DeleteSprint(ctx context.Context, userID, id int64) error
	ActivateSprint(ctx context.Context, userID, id int64, newStart, newEnd *time.Time) (*types.Sprint, []int64, error)
	CompleteSprint(ctx context.Context, userID, id int64) (*types.Sprint, error)
	AddIssuesToSprint(ctx context.Context, userID, sprintID int64, issueIDs []int64) ([]*types.Issue, error)
	SprintIssues(ctx context.Context, userID, sprintID int64) ([]*types.Issue, error)

	// Labels
	CreateLabel(ctx context.Context, label *types.Label) error
	GetLabel(ctx context.Context, userID, id int64) (*types.Label, error)
	ListLabels(ctx context.Context, userID int64, page types.Page) ([]*types.Label, int, error)
	UpdateLabel(ctx context.Context, label *types.Label) error
	DeleteLabel(ctx context.Context, userID, id int64) error
	AttachLabel(ctx context.Context, userID, issueID, labelID int64) error
	DetachLabel(ctx context.Context, userID, issueID, labelID int64) error

	// Comments
	CreateComment(ctx context.Context, comment *types.Comment) error
	GetComment(ctx context.Context, userID, id int64) (*types.Comment, error)
	ListComments(ctx context.Context, userID, issueID int64) ([]*types.Comment, error)
	UpdateComment(ctx context.Context, comment *types.Comment) error
	DeleteComment(ctx context.Context, userID, id int64) error

	// Audit trail
	ListAuditLogs(ctx context.Context, userID, issueID int64, limit int) ([]*types.AuditLog, error)

	// Dashboard
	GetDashboard(ctx context.Context, userID int64, now time.Time) (*types.Dashboard, error)

	// Lifecycle
	Close() error

	// Database path (for CLI diagnostics)
	Path() string

	// UnderlyingDB returns the underlying *sql.DB connection.
	// Provided for extensions that need their own tables in the same
	// database. Direct access bypasses ownership scoping; use with caution.
	UnderlyingDB() *sql.DB
}

// Config holds database configuration
type Config struct {
	Path string // database file path
}
