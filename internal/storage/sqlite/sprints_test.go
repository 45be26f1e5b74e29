package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

func TestSprintActivation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Story 1")

	sprint := createTestSprint(t, store, user.ID, "Sprint 1")

	if _, err := store.AddIssuesToSprint(ctx, user.ID, sprint.ID, []int64{story.ID}); err != nil {
		t.Fatalf("AddIssuesToSprint failed: %v", err)
	}

	// Planned sprint leaves attached issues in BACKLOG
	got, err := store.GetIssue(ctx, user.ID, story.ID)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Status != types.StatusBacklog {
		t.Errorf("issue in planned sprint: status = %s, want BACKLOG", got.Status)
	}

	activated, movedIDs, err := store.ActivateSprint(ctx, user.ID, sprint.ID, nil, nil)
	if err != nil {
		t.Fatalf("ActivateSprint failed: %v", err)
	}
	if activated.Status != types.SprintActive {
		t.Errorf("sprint status = %s, want ACTIVE", activated.Status)
	}
	if len(movedIDs) != 1 || movedIDs[0] != story.ID {
		t.Errorf("movedIDs = %v, want [%d]", movedIDs, story.ID)
	}

	got, err = store.GetIssue(ctx, user.ID, story.ID)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Status != types.StatusSelected {
		t.Errorf("issue after activation: status = %s, want SELECTED_FOR_DEVELOPMENT", got.Status)
	}
}

func TestSprintActivationReplacementDates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	sprint := createTestSprint(t, store, user.ID, "Sprint 1")

	newStart := time.Now().AddDate(0, 0, 2)
	newEnd := newStart.AddDate(0, 0, 21)
	activated, _, err := store.ActivateSprint(ctx, user.ID, sprint.ID, &newStart, &newEnd)
	if err != nil {
		t.Fatalf("ActivateSprint failed: %v", err)
	}
	if !activated.StartDate.Equal(newStart) || !activated.EndDate.Equal(newEnd) {
		t.Errorf("dates = %v/%v, want %v/%v",
			activated.StartDate, activated.EndDate, newStart, newEnd)
	}
}

func TestSecondActivationRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	s1 := createTestSprint(t, store, user.ID, "Sprint 1")
	s2 := createTestSprint(t, store, user.ID, "Sprint 2")

	if _, _, err := store.ActivateSprint(ctx, user.ID, s1.ID, nil, nil); err != nil {
		t.Fatalf("ActivateSprint(s1) failed: %v", err)
	}
	_, _, err := store.ActivateSprint(ctx, user.ID, s2.ID, nil, nil)
	if !errors.Is(err, types.ErrActiveSprintExists) {
		t.Errorf("ActivateSprint(s2) = %v, want ErrActiveSprintExists", err)
	}

	// A different user is unaffected
	other := createTestUser(t, store, "other@example.com")
	s3 := createTestSprint(t, store, other.ID, "Sprint 3")
	if _, _, err := store.ActivateSprint(ctx, other.ID, s3.ID, nil, nil); err != nil {
		t.Errorf("ActivateSprint for other user failed: %v", err)
	}
}

func TestConcurrentActivation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	s1 := createTestSprint(t, store, user.ID, "Sprint 1")
	s2 := createTestSprint(t, store, user.ID, "Sprint 2")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for n, id := range []int64{s1.ID, s2.ID} {
		wg.Add(1)
		go func(n int, id int64) {
			defer wg.Done()
			_, _, errs[n] = store.ActivateSprint(ctx, user.ID, id, nil, nil)
		}(n, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, types.ErrActiveSprintExists) {
			t.Errorf("unexpected activation error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("concurrent activations succeeded = %d, want exactly 1", succeeded)
	}

	var active int
	err := store.db.QueryRow(`SELECT COUNT(*) FROM sprints WHERE user_id = ? AND status = 'ACTIVE'`, user.ID).Scan(&active)
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if active != 1 {
		t.Errorf("active sprint count = %d, want 1", active)
	}
}

func TestSprintCompletion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	done := createTestStory(t, store, user.ID, project.ID, epic.ID, "Finished")
	carried := createTestStory(t, store, user.ID, project.ID, epic.ID, "Unfinished")

	sprint := createTestSprint(t, store, user.ID, "Sprint 1")
	if _, err := store.AddIssuesToSprint(ctx, user.ID, sprint.ID, []int64{done.ID, carried.ID}); err != nil {
		t.Fatalf("AddIssuesToSprint failed: %v", err)
	}
	if _, _, err := store.ActivateSprint(ctx, user.ID, sprint.ID, nil, nil); err != nil {
		t.Fatalf("ActivateSprint failed: %v", err)
	}

	// Walk the finished issue to DONE
	for _, status := range []types.Status{types.StatusInProgress, types.StatusInReview, types.StatusDone} {
		if _, err := store.TransitionIssue(ctx, user.ID, done.ID, status); err != nil {
			t.Fatalf("TransitionIssue to %s failed: %v", status, err)
		}
	}

	completed, err := store.CompleteSprint(ctx, user.ID, sprint.ID)
	if err != nil {
		t.Fatalf("CompleteSprint failed: %v", err)
	}
	if completed.Status != types.SprintCompleted {
		t.Errorf("sprint status = %s, want COMPLETED", completed.Status)
	}

	gotDone, err := store.GetIssue(ctx, user.ID, done.ID)
	if err != nil {
		t.Fatalf("GetIssue(done) failed: %v", err)
	}
	if gotDone.SprintID == nil || *gotDone.SprintID != sprint.ID {
		t.Errorf("done issue sprint = %v, want %d", gotDone.SprintID, sprint.ID)
	}
	if gotDone.LastCompletedSprintID == nil || *gotDone.LastCompletedSprintID != sprint.ID {
		t.Errorf("done issue lastCompletedSprint = %v, want %d", gotDone.LastCompletedSprintID, sprint.ID)
	}
	if gotDone.Status != types.StatusDone {
		t.Errorf("done issue status = %s, want DONE", gotDone.Status)
	}

	gotCarried, err := store.GetIssue(ctx, user.ID, carried.ID)
	if err != nil {
		t.Fatalf("GetIssue(carried) failed: %v", err)
	}
	if gotCarried.SprintID != nil {
		t.Errorf("carried issue sprint = %v, want nil", gotCarried.SprintID)
	}
	if gotCarried.LastCompletedSprintID == nil || *gotCarried.LastCompletedSprintID != sprint.ID {
		t.Errorf("carried issue lastCompletedSprint = %v, want %d", gotCarried.LastCompletedSprintID, sprint.ID)
	}
	if gotCarried.Status != types.StatusBacklog {
		t.Errorf("carried issue status = %s, want BACKLOG", gotCarried.Status)
	}

	// Completed-sprint query unions attached and carried-over issues
	issues, err := store.SprintIssues(ctx, user.ID, sprint.ID)
	if err != nil {
		t.Fatalf("SprintIssues failed: %v", err)
	}
	if len(issues) != 2 {
		t.Errorf("SprintIssues returned %d issues, want 2", len(issues))
	}
}

func TestCompleteRequiresActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	sprint := createTestSprint(t, store, user.ID, "Sprint 1")

	_, err := store.CompleteSprint(ctx, user.ID, sprint.ID)
	if !errors.Is(err, types.ErrSprintNotActive) {
		t.Errorf("CompleteSprint(planned) = %v, want ErrSprintNotActive", err)
	}

	if _, _, err := store.ActivateSprint(ctx, user.ID, sprint.ID, nil, nil); err != nil {
		t.Fatalf("ActivateSprint failed: %v", err)
	}
	if _, err := store.CompleteSprint(ctx, user.ID, sprint.ID); err != nil {
		t.Fatalf("CompleteSprint failed: %v", err)
	}

	_, err = store.CompleteSprint(ctx, user.ID, sprint.ID)
	if !errors.Is(err, types.ErrSprintNotActive) {
		t.Errorf("CompleteSprint(completed) = %v, want ErrSprintNotActive", err)
	}
}

func TestAddIssuesToActiveSprint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Story")

	sprint := createTestSprint(t, store, user.ID, "Sprint 1")
	if _, _, err := store.ActivateSprint(ctx, user.ID, sprint.ID, nil, nil); err != nil {
		t.Fatalf("ActivateSprint failed: %v", err)
	}

	issues, err := store.AddIssuesToSprint(ctx, user.ID, sprint.ID, []int64{story.ID})
	if err != nil {
		t.Fatalf("AddIssuesToSprint failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].Status != types.StatusSelected {
		t.Errorf("issue status = %s, want SELECTED_FOR_DEVELOPMENT", issues[0].Status)
	}
}

func TestAddIssuesToCompletedSprintRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dev@example.com")
	project := createTestProject(t, store, user.ID, "AB")
	epic := createTestEpic(t, store, user.ID, project.ID, "Epic")
	story := createTestStory(t, store, user.ID, project.ID, epic.ID, "Story")

	sprint := createTestSprint(t, store, user.ID, "Sprint 1")
	if _, _, err := store.ActivateSprint(ctx, user.ID, sprint.ID, nil, nil); err != nil {
		t.Fatalf("ActivateSprint failed: %v", err)
	}
	if _, err := store.CompleteSprint(ctx, user.ID, sprint.ID); err != nil {
		t.Fatalf("CompleteSprint failed: %v", err)
	}

	_, err := store.AddIssuesToSprint(ctx, user.ID, sprint.ID, []int64{story.ID})
	if !errors.Is(err, types.ErrSprintCompleted) {
		t.Errorf("AddIssuesToSprint(completed) = %v, want ErrSprintCompleted", err)
	}
}
