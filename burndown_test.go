package burndown

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAndUse(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	user := &User{Email: "embed@example.com", PasswordHash: "x", Name: "Embedder"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	types, err := store.ListIssueTypes(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to list issue types: %v", err)
	}
	if len(types) != 4 {
		t.Errorf("expected the 4 seeded global issue types, got %d", len(types))
	}
}

func TestFindDatabasePathEnv(t *testing.T) {
	t.Setenv("BURNDOWN_DB", "/tmp/custom.db")
	if got := FindDatabasePath(); got != "/tmp/custom.db" {
		t.Errorf("expected env path, got %q", got)
	}
}

func TestFindDatabasePathTree(t *testing.T) {
	t.Setenv("BURNDOWN_DB", "")

	tmpDir := t.TempDir()
	appDir := filepath.Join(tmpDir, ".burndown")
	if err := os.MkdirAll(appDir, 0750); err != nil {
		t.Fatalf("failed to create .burndown directory: %v", err)
	}
	dbPath := filepath.Join(appDir, "tracker.db")
	if err := os.WriteFile(dbPath, []byte{}, 0600); err != nil {
		t.Fatalf("failed to create database file: %v", err)
	}

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	defer os.Chdir(origDir)

	// Discovery walks up from a subdirectory.
	subDir := filepath.Join(tmpDir, "sub", "dir")
	if err := os.MkdirAll(subDir, 0750); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}
	if err := os.Chdir(subDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}

	got := FindDatabasePath()
	// Resolve symlinks so macOS /private/var temp paths compare equal.
	wantReal, _ := filepath.EvalSymlinks(dbPath)
	gotReal, _ := filepath.EvalSymlinks(got)
	if gotReal != wantReal {
		t.Errorf("expected %q, got %q", dbPath, got)
	}
}
