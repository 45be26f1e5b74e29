package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

// newTestStore creates a SQLiteStorage backed by a per-test database file.
func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// createTestUser inserts a user and returns it.
func createTestUser(t *testing.T, store *SQLiteStorage, email string) *types.User {
	t.Helper()

	user := &types.User{Email: email, PasswordHash: "x", Name: "Test User"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return user
}

// createTestProject inserts a project for the user.
func createTestProject(t *testing.T, store *SQLiteStorage, userID int64, key string) *types.Project {
	t.Helper()

	project := &types.Project{UserID: userID, Name: "Project " + key, Key: key}
	if err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("CreateProject(%s) failed: %v", key, err)
	}
	return project
}

// globalTypeID resolves a seeded global issue type by name.
func globalTypeID(t *testing.T, store *SQLiteStorage, userID int64, name string) int64 {
	t.Helper()

	all, err := store.ListIssueTypes(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListIssueTypes failed: %v", err)
	}
	for _, it := range all {
		if it.IsGlobal && it.Name == name {
			return it.ID
		}
	}
	t.Fatalf("global issue type %s not seeded", name)
	return 0
}

// createTestEpic inserts an epic in the project.
func createTestEpic(t *testing.T, store *SQLiteStorage, userID, projectID int64, title string) *types.Issue {
	t.Helper()

	epic := &types.Issue{
		UserID:      userID,
		ProjectID:   projectID,
		IssueTypeID: globalTypeID(t, store, userID, types.EpicTypeName),
		Title:       title,
		Priority:    2,
	}
	if err := store.CreateIssue(context.Background(), epic); err != nil {
		t.Fatalf("CreateIssue (epic %s) failed: %v", title, err)
	}
	return epic
}

// createTestStory inserts a story under the given epic.
func createTestStory(t *testing.T, store *SQLiteStorage, userID, projectID, epicID int64, title string) *types.Issue {
	t.Helper()

	story := &types.Issue{
		UserID:        userID,
		ProjectID:     projectID,
		IssueTypeID:   globalTypeID(t, store, userID, "STORY"),
		ParentIssueID: &epicID,
		Title:         title,
		Priority:      2,
	}
	if err := store.CreateIssue(context.Background(), story); err != nil {
		t.Fatalf("CreateIssue (story %s) failed: %v", title, err)
	}
	return story
}

// createTestSprint inserts a planned two-week sprint starting today.
func createTestSprint(t *testing.T, store *SQLiteStorage, userID int64, name string) *types.Sprint {
	t.Helper()

	start := time.Now().AddDate(0, 0, 1)
	sprint := &types.Sprint{
		UserID:    userID,
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 14),
	}
	if err := store.CreateSprint(context.Background(), sprint); err != nil {
		t.Fatalf("CreateSprint(%s) failed: %v", name, err)
	}
	return sprint
}
