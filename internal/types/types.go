package types

import (
	"fmt"
	"time"
)

// User owns every other row in the system, directly or transitively.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Token is a bearer credential mapping to a user.
type Token struct {
	Value     string    `json:"token"`
	UserID    int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token is past its expiry.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ProjectStatus is derived from the project's epics, never stored.
type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectDone       ProjectStatus = "DONE"
)

// Project groups issues under a short uppercase key, unique per user.
type Project struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"-"`
	Name        string        `json:"name"`
	Key         string        `json:"key"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// IssueType categorizes issues. Global types (EPIC, STORY, TASK, BUG) are
// seeded at schema init with no owner and shared read-only by all users;
// custom types belong to one user and optionally one project.
type IssueType struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UserID    *int64 `json:"-"`
	ProjectID *int64 `json:"projectId,omitempty"`
	IsGlobal  bool   `json:"isGlobal"`
}

// EpicTypeName is the issue type name that grants epic semantics.
// Epic-ness is derived from the type name, not stored on the issue.
const EpicTypeName = "EPIC"

// IsEpic reports whether issues of this type are epics.
func (t *IssueType) IsEpic() bool {
	return t.Name == EpicTypeName
}

// Status is the workflow state of an issue.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusSelected   Status = "SELECTED_FOR_DEVELOPMENT"
	StatusInProgress Status = "IN_PROGRESS"
	StatusInReview   Status = "IN_REVIEW"
	StatusDone       Status = "DONE"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusSelected, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

// storyPointScale is the allowed estimation scale. Nil story points mean
// the issue is unestimated.
var storyPointScale = map[int]struct{}{
	0: {}, 1: {}, 2: {}, 3: {}, 5: {}, 8: {}, 13: {}, 21: {}, 34: {}, 55: {}, 89: {},
}

// ValidStoryPoints reports whether p is on the estimation scale.
func ValidStoryPoints(p int) bool {
	_, ok := storyPointScale[p]
	return ok
}

// Issue represents a trackable work item. Non-epic issues always hang off a
// parent epic; epics never have a parent.
type Issue struct {
	ID                    int64     `json:"id"`
	UserID                int64     `json:"-"`
	ProjectID             int64     `json:"projectId"`
	IssueTypeID           int64     `json:"issueTypeId"`
	TypeName              string    `json:"typeName,omitempty"`
	SprintID              *int64    `json:"sprintId,omitempty"`
	LastCompletedSprintID *int64    `json:"lastCompletedSprintId,omitempty"`
	ParentIssueID         *int64    `json:"parentIssueId,omitempty"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	Status                Status    `json:"status"`
	Priority              int       `json:"priority"`
	StoryPoints           *int      `json:"storyPoints,omitempty"`
	Labels                []*Label  `json:"labels,omitempty"`
	ChildIssueCount       int       `json:"childIssueCount"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// IsEpic reports whether the issue's joined type name marks it as an epic.
func (i *Issue) IsEpic() bool {
	return i.TypeName == EpicTypeName
}

// Validate checks if the issue has valid field values
func (i *Issue) Validate() error {
	if len(i.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if i.Priority < 0 || i.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", i.Priority)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	if i.StoryPoints != nil && !ValidStoryPoints(*i.StoryPoints) {
		return fmt.Errorf("story points must be on the estimation scale (got %d)", *i.StoryPoints)
	}
	return nil
}

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

// IsValid checks if the sprint status value is valid
func (s SprintStatus) IsValid() bool {
	switch s {
	case SprintPlanned, SprintActive, SprintCompleted:
		return true
	}
	return false
}

// Sprint is a time-boxed container of issues. At most one sprint per user
// may be ACTIVE at any time.
type Sprint struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"-"`
	Name      string       `json:"name"`
	Goal      string       `json:"goal"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	Status    SprintStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Label is a user-scoped tag attachable to issues.
type Label struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"-"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// Comment is an authored note on an issue.
type Comment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	IssueID   int64     `json:"issueId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuditAction categorizes audit trail entries
type AuditAction string

const (
	AuditCreated         AuditAction = "created"
	AuditUpdated         AuditAction = "updated"
	AuditStatusChanged   AuditAction = "status_changed"
	AuditCommented       AuditAction = "commented"
	AuditLabelAdded      AuditAction = "label_added"
	AuditLabelRemoved    AuditAction = "label_removed"
	AuditSprintAssigned  AuditAction = "sprint_assigned"
	AuditSprintCompleted AuditAction = "sprint_completed"
)

// AuditLog is an append-only record of a change to an issue.
type AuditLog struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"-"`
	IssueID   int64       `json:"issueId"`
	Action    AuditAction `json:"action"`
	Details   string      `json:"details,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// IssueFilter is used to filter issue queries
type IssueFilter struct {
	ProjectID *int64
	Status    *Status
	Priority  *int
	SprintID  *int64
	ParentID  *int64
}

// Page carries list-endpoint pagination parameters. Number is 1-based.
type Page struct {
	Number int
	Size   int
	Sort   string
	Search string
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// SprintProgress is the dashboard snapshot of the active sprint.
type SprintProgress struct {
	SprintID          int64     `json:"sprintId"`
	Name              string    `json:"name"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	DaysRemaining     int       `json:"daysRemaining"`
	TotalIssues       int       `json:"totalIssues"`
	DoneIssues        int       `json:"doneIssues"`
	CompletionPercent float64   `json:"completionPercent"`
	TotalStoryPoints  int       `json:"totalStoryPoints"`
	BurnedStoryPoints int       `json:"burnedStoryPoints"`
}

// Dashboard provides aggregate metrics over one user's rows, recomputed
// on every request.
type Dashboard struct {
	ProjectCount     int             `json:"projectCount"`
	IssueCount       int             `json:"issueCount"`
	SprintCount      int             `json:"sprintCount"`
	IssuesByStatus   map[Status]int  `json:"issuesByStatus"`
	IssuesByPriority map[string]int  `json:"issuesByPriority"`
	ActiveSprint     *SprintProgress `json:"activeSprint,omitempty"`
}
