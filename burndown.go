// Package burndown provides a minimal public API for embedding the
// tracker's storage layer in other Go programs.
//
// Most integrations should talk to the HTTP API instead. This package
// exports only the types and functions needed for programmatic access to
// a tracker database, such as reporting scripts or data migrations.
package burndown

import (
	"os"
	"path/filepath"

	"github.com/ahoskins/burndown/internal/storage"
	"github.com/ahoskins/burndown/internal/storage/sqlite"
	"github.com/ahoskins/burndown/internal/types"
)

// Core types for working with tracker data
type (
	User      = types.User
	Project   = types.Project
	Issue     = types.Issue
	IssueType = types.IssueType
	Sprint    = types.Sprint
	Label     = types.Label
	Comment   = types.Comment
	AuditLog  = types.AuditLog
	Status    = types.Status
)

// Workflow status constants
const (
	StatusBacklog    = types.StatusBacklog
	StatusSelected   = types.StatusSelected
	StatusInProgress = types.StatusInProgress
	StatusInReview   = types.StatusInReview
	StatusDone       = types.StatusDone
)

// Sprint lifecycle constants
const (
	SprintPlanned   = types.SprintPlanned
	SprintActive    = types.SprintActive
	SprintCompleted = types.SprintCompleted
)

// Storage is the persistence interface backing the server.
type Storage = storage.Storage

// Open opens a tracker SQLite database, creating the schema on first use.
func Open(dbPath string) (Storage, error) {
	return sqlite.New(dbPath)
}

// FindDatabasePath discovers the tracker database path using the standard
// search order:
//  1. $BURNDOWN_DB environment variable
//  2. .burndown/*.db in current directory or ancestors
//  3. ~/.burndown/burndown.db (fallback)
//
// Returns empty string if no database is found at (1) or (2) and (3)
// doesn't exist.
func FindDatabasePath() string {
	if envDB := os.Getenv("BURNDOWN_DB"); envDB != "" {
		return envDB
	}

	if foundDB := findDatabaseInTree(); foundDB != "" {
		return foundDB
	}

	if home, err := os.UserHomeDir(); err == nil {
		defaultDB := filepath.Join(home, ".burndown", "burndown.db")
		if _, err := os.Stat(defaultDB); err == nil {
			return defaultDB
		}
	}

	return ""
}

// findDatabaseInTree walks up the directory tree looking for .burndown/*.db
func findDatabaseInTree() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		appDir := filepath.Join(dir, ".burndown")
		if info, err := os.Stat(appDir); err == nil && info.IsDir() {
			matches, err := filepath.Glob(filepath.Join(appDir, "*.db"))
			if err == nil && len(matches) > 0 {
				return matches[0]
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
