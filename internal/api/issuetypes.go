package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

type issueTypeRequest struct {
	Name      *string `json:"name"`
	ProjectID *int64  `json:"projectId"`
}

func (s *Server) handleListIssueTypes(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	out, err := s.store.ListIssueTypes(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*types.IssueType{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIssueType(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req issueTypeRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	name := ""
	if req.Name != nil {
		name = strings.ToUpper(strings.TrimSpace(*req.Name))
	}
	v := types.NewValidationError()
	if name == "" {
		v.Add("name", "is required")
	} else if len(name) > 50 {
		v.Add("name", "must be 50 characters or less")
	}
	if err := v.OrNil(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.ProjectID != nil {
		if _, err := s.store.GetProject(r.Context(), user.ID, *req.ProjectID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	it := &types.IssueType{Name: name, UserID: &user.ID, ProjectID: req.ProjectID}
	if err := s.store.CreateIssueType(r.Context(), it); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	dashboard, err := s.store.GetDashboard(r.Context(), user.ID, time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
