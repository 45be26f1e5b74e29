package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/ahoskins/burndown/internal/types"
)

func TestEpicHierarchyRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")

	t.Run("epic with parent rejected", func(t *testing.T) {
		bad := &types.Issue{
			UserID:        user.ID,
			ProjectID:     project.ID,
			IssueTypeID:   globalTypeID(t, store, user.ID, types.EpicTypeName),
			ParentIssueID: &epic.ID,
			Title:         "Nested epic",
			Priority:      2,
		}
		err := store.CreateIssue(ctx, bad)
		var verr *types.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("CreateIssue = %v, want ValidationError", err)
		}
		if verr.Fields["parentIssueId"] == "" {
			t.Errorf("expected parentIssueId violation, got %v", verr.Fields)
		}
	})

	t.Run("non-epic without parent rejected", func(t *testing.T) {
		bad := &types.Issue{
			UserID:      user.ID,
			ProjectID:   project.ID,
			IssueTypeID: globalTypeID(t, store, user.ID, "STORY"),
			Title:       "Orphan story",
			Priority:    2,
		}
		err := store.CreateIssue(ctx, bad)
		var verr *types.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("CreateIssue = %v, want ValidationError", err)
		}
	})

	t.Run("child of non-epic rejected", func(t *testing.T) {
		story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Story")
		bad := &types.Issue{
			UserID:        user.ID,
			ProjectID:     project.ID,
			IssueTypeID:   globalTypeID(t, store, user.ID, "TASK"),
			ParentIssueID: &story.ID,
			Title:         "Task under story",
			Priority:      2,
		}
		err := store.CreateIssue(ctx, bad)
		var verr *types.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("CreateIssue = %v, want ValidationError", err)
		}
	})

	t.Run("story under epic accepted", func(t *testing.T) {
		story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Good story")
		if story.TypeName != "STORY" {
			t.Errorf("type name = %s, want STORY", story.TypeName)
		}
	})
}

func TestChildIssueCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	createTestStory(t, store, user.ID, project.ID, epic.ID, "Story 1")
	createTestStory(t, store, user.ID, project.ID, epic.ID, "Story 2")

	got, err := store.GetIssue(ctx, user.ID, epic.ID)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.ChildIssueCount != 2 {
		t.Errorf("childIssueCount = %d, want 2", got.ChildIssueCount)
	}
	if !got.IsEpic() {
		t.Error("expected epic to report IsEpic")
	}
}

func TestRootEpic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Story")

	root, err := store.RootEpic(ctx, user.ID, story.ID)
	if err != nil {
		t.Fatalf("RootEpic failed: %v", err)
	}
	if root.ID != epic.ID {
		t.Errorf("root = %d, want %d", root.ID, epic.ID)
	}

	// An epic is its own root
	root, err = store.RootEpic(ctx, user.ID, epic.ID)
	if err != nil {
		t.Fatalf("RootEpic(epic) failed: %v", err)
	}
	if root.ID != epic.ID {
		t.Errorf("root = %d, want %d", root.ID, epic.ID)
	}
}

func TestTransitionIssue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Story")

	got, err := store.TransitionIssue(ctx, user.ID, story.ID, types.StatusSelected)
	if err != nil {
		t.Fatalf("TransitionIssue failed: %v", err)
	}
	if got.Status != types.StatusSelected {
		t.Errorf("status = %s, want SELECTED_FOR_DEVELOPMENT", got.Status)
	}

	// Skipping ahead is rejected with from/to in the error
	_, err = store.TransitionIssue(ctx, user.ID, story.ID, types.StatusDone)
	var werr *types.WorkflowTransitionError
	if !errors.As(err, &werr) {
		t.Fatalf("TransitionIssue = %v, want WorkflowTransitionError", err)
	}
	if werr.From != types.StatusSelected || werr.To != types.StatusDone {
		t.Errorf("error from/to = %s/%s, want %s/%s",
			werr.From, werr.To, types.StatusSelected, types.StatusDone)
	}

	// Every transition appends an audit record
	logs, err := store.ListAuditLogs(ctx, user.ID, story.ID, 0)
	if err != nil {
		t.Fatalf("ListAuditLogs failed: %v", err)
	}
	var statusChanges int
	for _, entry := range logs {
		if entry.Action == types.AuditStatusChanged {
			statusChanges++
		}
	}
	if statusChanges != 1 {
		t.Errorf("status_changed audit rows = %d, want 1", statusChanges)
	}
}

func TestStoryPointsRejectedOffScale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")

	bad := 7
	issue := &types.Issue{
		UserID:        user.ID,
		ProjectID:     project.ID,
		IssueTypeID:   globalTypeID(t, store, user.ID, "STORY"),
		ParentIssueID: &epic.ID,
		Title:         "Badly estimated",
		Priority:      2,
		StoryPoints:   &bad,
	}
	if err := store.CreateIssue(ctx, issue); err == nil {
		t.Error("expected story point rejection, got nil")
	}

	good := 8
	issue.StoryPoints = &good
	if err := store.CreateIssue(ctx, issue); err != nil {
		t.Errorf("CreateIssue with valid points failed: %v", err)
	}
}

func TestProjectStatusRollup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")

	// No epics yet: in progress
	got, err := store.GetProject(ctx, user.ID, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Status != types.ProjectInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", got.Status)
	}

	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	for _, status := range []types.Status{types.StatusSelected, types.StatusInProgress, types.StatusInReview, types.StatusDone} {
		if _, err := store.TransitionIssue(ctx, user.ID, epic.ID, status); err != nil {
			t.Fatalf("TransitionIssue to %s failed: %v", status, err)
		}
	}

	got, err = store.GetProject(ctx, user.ID, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Status != types.ProjectDone {
		t.Errorf("status after all epics done = %s, want DONE", got.Status)
	}
}

func TestListIssuesFilterAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	createTestStory(t, store, user.ID, project.ID, epic.ID, "Login form")
	createTestStory(t, store, user.ID, project.ID, epic.ID, "Signup form")
	createTestStory(t, store, user.ID, project.ID, epic.ID, "Password reset")

	issues, total, err := store.ListIssues(ctx, user.ID, types.IssueFilter{ParentID: &epic.ID}, types.Page{})
	if err != nil {
		t.Fatalf("ListIssues failed: %v", err)
	}
	if total != 3 || len(issues) != 3 {
		t.Errorf("filtered list = %d/%d, want 3/3", len(issues), total)
	}

	issues, total, err = store.ListIssues(ctx, user.ID, types.IssueFilter{}, types.Page{Search: "form"})
	if err != nil {
		t.Fatalf("ListIssues(search) failed: %v", err)
	}
	if total != 2 || len(issues) != 2 {
		t.Errorf("search list = %d/%d, want 2/2", len(issues), total)
	}

	issues, total, err = store.ListIssues(ctx, user.ID, types.IssueFilter{}, types.Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("ListIssues(page) failed: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if len(issues) != 2 {
		t.Errorf("page size = %d, want 2", len(issues))
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Story")

	comment := &types.Comment{UserID: user.ID, IssueID: story.ID, Content: "note"}
	if err := store.CreateComment(ctx, comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	if err := store.DeleteProject(ctx, user.ID, project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}

	if _, err := store.GetIssue(ctx, user.ID, story.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("GetIssue after cascade = %v, want ErrNotFound", err)
	}

	var comments int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&comments); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if comments != 0 {
		t.Errorf("comments after cascade = %d, want 0", comments)
	}
}
