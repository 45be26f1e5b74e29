// Package api exposes the tracker over HTTP. Routing uses Go 1.22
// method+pattern ServeMux handlers; every handler past the auth routes
// runs with an authenticated user resolved from a bearer token.
package api

import (
	"log"
	"net/http"

	"github.com/ahoskins/burndown/internal/auth"
	"github.com/ahoskins/burndown/internal/storage"
)

// Server holds the HTTP layer's dependencies.
type Server struct {
	store storage.Storage
	auth  *auth.Service
	log   *log.Logger
}

// NewServer wires the HTTP layer. logger may be nil, in which case
// requests are not logged.
func NewServer(store storage.Storage, authSvc *auth.Service, logger *log.Logger) *Server {
	return &Server{store: store, auth: authSvc, log: logger}
}

// Handler returns the fully routed http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	// Authenticated
	app := http.NewServeMux()
	app.HandleFunc("POST /auth/logout", s.handleLogout)
	app.HandleFunc("GET /auth/me", s.handleMe)

	app.HandleFunc("GET /projects", s.handleListProjects)
	app.HandleFunc("POST /projects", s.handleCreateProject)
	app.HandleFunc("GET /projects/{id}", s.handleGetProject)
	app.HandleFunc("PATCH /projects/{id}", s.handleUpdateProject)
	app.HandleFunc("DELETE /projects/{id}", s.handleDeleteProject)
	app.HandleFunc("GET /projects/{id}/issues", s.handleProjectIssues)

	app.HandleFunc("GET /issues", s.handleListIssues)
	app.HandleFunc("POST /issues", s.handleCreateIssue)
	app.HandleFunc("GET /issues/{id}", s.handleGetIssue)
	app.HandleFunc("PATCH /issues/{id}", s.handleUpdateIssue)
	app.HandleFunc("DELETE /issues/{id}", s.handleDeleteIssue)
	app.HandleFunc("POST /issues/{id}/transition", s.handleTransitionIssue)
	app.HandleFunc("GET /issues/{id}/comments", s.handleListComments)
	app.HandleFunc("POST /issues/{id}/comments", s.handleCreateComment)
	app.HandleFunc("GET /issues/{id}/audit-logs", s.handleListAuditLogs)
	app.HandleFunc("POST /issues/{id}/labels/{labelId}", s.handleAttachLabel)
	app.HandleFunc("DELETE /issues/{id}/labels/{labelId}", s.handleDetachLabel)

	app.HandleFunc("PATCH /comments/{id}", s.handleUpdateComment)
	app.HandleFunc("DELETE /comments/{id}", s.handleDeleteComment)

	app.HandleFunc("GET /labels", s.handleListLabels)
	app.HandleFunc("POST /labels", s.handleCreateLabel)
	app.HandleFunc("PATCH /labels/{id}", s.handleUpdateLabel)
	app.HandleFunc("DELETE /labels/{id}", s.handleDeleteLabel)

	app.HandleFunc("GET /sprints", s.handleListSprints)
	app.HandleFunc("POST /sprints", s.handleCreateSprint)
	app.HandleFunc("GET /sprints/{id}", s.handleGetSprint)
	app.HandleFunc("PATCH /sprints/{id}", s.handleUpdateSprint)
	app.HandleFunc("DELETE /sprints/{id}", s.handleDeleteSprint)
	app.HandleFunc("POST /sprints/{id}/activate", s.handleActivateSprint)
	app.HandleFunc("POST /sprints/{id}/complete", s.handleCompleteSprint)
	app.HandleFunc("GET /sprints/{id}/issues", s.handleSprintIssues)
	app.HandleFunc("POST /sprints/{id}/issues", s.handleAddIssuesToSprint)

	app.HandleFunc("GET /issue-types", s.handleListIssueTypes)
	app.HandleFunc("POST /issue-types", s.handleCreateIssueType)

	app.HandleFunc("GET /dashboard", s.handleDashboard)

	mux.Handle("/", s.requireAuth(app))

	return s.logRequests(mux)
}
