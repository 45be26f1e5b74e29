package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ahoskins/burndown/internal/types"
)

type issueRequest struct {
	ProjectID   *int64 `json:"projectId"`
	IssueTypeID *int64 `json:"issueTypeId"`
	// Raw so an explicit null (detach from parent) can be told apart
	// from the field being absent.
	ParentIssueID json.RawMessage `json:"parentIssueId"`
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	Priority      *int            `json:"priority"`
	StoryPoints   *int            `json:"storyPoints"`
}

// parentID decodes the raw parentIssueId field. set is false when the
// request omitted it; id is nil when the request carried an explicit null.
func (req *issueRequest) parentID() (set bool, id *int64, err error) {
	trimmed := strings.TrimSpace(string(req.ParentIssueID))
	if trimmed == "" {
		return false, nil, nil
	}
	if trimmed == "null" {
		return true, nil, nil
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return false, nil, err
	}
	return true, &v, nil
}

// validateIssueFields mirrors Issue.Validate but attributes each failure
// to its JSON field for the error body.
func validateIssueFields(issue *types.Issue) error {
	v := types.NewValidationError()
	title := strings.TrimSpace(issue.Title)
	if title == "" {
		v.Add("title", "is required")
	} else if len(issue.Title) > 500 {
		v.Add("title", "must be 500 characters or less")
	}
	if issue.Priority < 0 || issue.Priority > 4 {
		v.Add("priority", "must be between 0 and 4")
	}
	if issue.StoryPoints != nil && !types.ValidStoryPoints(*issue.StoryPoints) {
		v.Add("storyPoints", "must be on the estimation scale (0,1,2,3,5,8,13,21,34,55,89)")
	}
	if issue.ProjectID == 0 {
		v.Add("projectId", "is required")
	}
	if issue.IssueTypeID == 0 {
		v.Add("issueTypeId", "is required")
	}
	return v.OrNil()
}

func issueFilterFromQuery(r *http.Request) types.IssueFilter {
	q := r.URL.Query()
	var f types.IssueFilter
	if v, err := strconv.ParseInt(q.Get("projectId"), 10, 64); err == nil {
		f.ProjectID = &v
	}
	if v := q.Get("status"); v != "" {
		st := types.Status(v)
		f.Status = &st
	}
	if v, err := strconv.Atoi(q.Get("priority")); err == nil {
		f.Priority = &v
	}
	if v, err := strconv.ParseInt(q.Get("sprintId"), 10, 64); err == nil {
		f.SprintID = &v
	}
	if v, err := strconv.ParseInt(q.Get("parentId"), 10, 64); err == nil {
		f.ParentID = &v
	}
	return f
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	page := parsePage(r)
	issues, total, err := s.store.ListIssues(r.Context(), user.ID, issueFilterFromQuery(r), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if issues == nil {
		issues = []*types.Issue{}
	}
	writeJSON(w, http.StatusOK, newListResponse(issues, page, total))
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req issueRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	issue := &types.Issue{UserID: user.ID, Status: types.StatusBacklog}
	if req.ProjectID != nil {
		issue.ProjectID = *req.ProjectID
	}
	if req.IssueTypeID != nil {
		issue.IssueTypeID = *req.IssueTypeID
	}
	_, parentID, err := req.parentID()
	if err != nil {
		s.badRequest(w, r, "parentIssueId", "must be an integer or null")
		return
	}
	issue.ParentIssueID = parentID
	if req.Title != nil {
		issue.Title = *req.Title
	}
	if req.Description != nil {
		issue.Description = *req.Description
	}
	if req.Priority != nil {
		issue.Priority = *req.Priority
	}
	issue.StoryPoints = req.StoryPoints

	if err := validateIssueFields(issue); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateIssue(r.Context(), issue); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	issue, err := s.store.GetIssue(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req issueRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}
	if req.ProjectID != nil {
		s.badRequest(w, r, "projectId", "an issue cannot move between projects")
		return
	}

	issue, err := s.store.GetIssue(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.IssueTypeID != nil {
		issue.IssueTypeID = *req.IssueTypeID
	}
	if set, parentID, perr := req.parentID(); perr != nil {
		s.badRequest(w, r, "parentIssueId", "must be an integer or null")
		return
	} else if set {
		issue.ParentIssueID = parentID
	}
	if req.Title != nil {
		issue.Title = *req.Title
	}
	if req.Description != nil {
		issue.Description = *req.Description
	}
	if req.Priority != nil {
		issue.Priority = *req.Priority
	}
	if req.StoryPoints != nil {
		issue.StoryPoints = req.StoryPoints
	}

	if err := validateIssueFields(issue); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateIssue(r.Context(), issue); err != nil {
		s.writeError(w, r, err)
		return
	}
	issue, err = s.store.GetIssue(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	if err := s.store.DeleteIssue(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransitionIssue(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req struct {
		Status types.Status `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}
	if !req.Status.IsValid() {
		s.badRequest(w, r, "status", "unknown workflow status")
		return
	}
	issue, err := s.store.TransitionIssue(r.Context(), user.ID, id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	limit := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	logs, err := s.store.ListAuditLogs(r.Context(), user.ID, id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*types.AuditLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleAttachLabel(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	issueID, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	labelID, err := pathID(r, "labelId")
	if err != nil {
		s.badRequest(w, r, "labelId", "must be an integer")
		return
	}
	if err := s.store.AttachLabel(r.Context(), user.ID, issueID, labelID); err != nil {
		s.writeError(w, r, err)
		return
	}
	issue, err := s.store.GetIssue(r.Context(), user.ID, issueID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleDetachLabel(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	issueID, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	labelID, err := pathID(r, "labelId")
	if err != nil {
		s.badRequest(w, r, "labelId", "must be an integer")
		return
	}
	if err := s.store.DetachLabel(r.Context(), user.ID, issueID, labelID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
