package api

import (
	"net/http"

	"github.com/ahoskins/burndown/internal/types"
)

type projectRequest struct {
	Name        *string `json:"name"`
	Key         *string `json:"key"`
	Description *string `json:"description"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	page := parsePage(r)
	projects, total, err := s.store.ListProjects(r.Context(), user.ID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*types.Project{}
	}
	writeJSON(w, http.StatusOK, newListResponse(projects, page, total))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req projectRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	project := &types.Project{UserID: user.ID}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Key != nil {
		project.Key = types.NormalizeProjectKey(*req.Key)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := validateProject(project); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateProject(r.Context(), project); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	project, err := s.store.GetProject(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req projectRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	project, err := s.store.GetProject(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Key != nil {
		project.Key = types.NormalizeProjectKey(*req.Key)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := validateProject(project); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateProject(r.Context(), project); err != nil {
		s.writeError(w, r, err)
		return
	}
	// Re-read for the derived status.
	project, err = s.store.GetProject(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	if err := s.store.DeleteProject(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProjectIssues(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	// 404 before an empty page for a project that is not the caller's.
	if _, err := s.store.GetProject(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	page := parsePage(r)
	filter := types.IssueFilter{ProjectID: &id}
	issues, total, err := s.store.ListIssues(r.Context(), user.ID, filter, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if issues == nil {
		issues = []*types.Issue{}
	}
	writeJSON(w, http.StatusOK, newListResponse(issues, page, total))
}

// validateProject runs the key and name rules, collecting all failures.
func validateProject(p *types.Project) error {
	v := types.NewValidationError()
	if verr := types.ValidateProjectKey(p.Key); verr != nil {
		for f, m := range verr.Fields {
			v.Add(f, m)
		}
	}
	if verr := types.ValidateProjectName(p.Name); verr != nil {
		for f, m := range verr.Fields {
			v.Add(f, m)
		}
	}
	return v.OrNil()
}
