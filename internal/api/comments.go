package api

import (
	"net/http"
	"strings"

	"github.com/ahoskins/burndown/internal/types"
)

type commentRequest struct {
	Content *string `json:"content"`
}

func validateCommentContent(content string) error {
	v := types.NewValidationError()
	if strings.TrimSpace(content) == "" {
		v.Add("content", "is required")
	} else if len(content) > 5000 {
		v.Add("content", "must be 5000 characters or less")
	}
	return v.OrNil()
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	issueID, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	comments, err := s.store.ListComments(r.Context(), user.ID, issueID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []*types.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	issueID, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}
	content := ""
	if req.Content != nil {
		content = *req.Content
	}
	if err := validateCommentContent(content); err != nil {
		s.writeError(w, r, err)
		return
	}

	comment := &types.Comment{UserID: user.ID, IssueID: issueID, Content: content}
	if err := s.store.CreateComment(r.Context(), comment); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}
	comment, err := s.store.GetComment(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Content != nil {
		comment.Content = *req.Content
	}
	if err := validateCommentContent(comment.Content); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateComment(r.Context(), comment); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	if err := s.store.DeleteComment(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
