package api

import (
	"net/http"

	"github.com/ahoskins/burndown/internal/types"
)

type labelRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	page := parsePage(r)
	labels, total, err := s.store.ListLabels(r.Context(), user.ID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if labels == nil {
		labels = []*types.Label{}
	}
	writeJSON(w, http.StatusOK, newListResponse(labels, page, total))
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req labelRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	label := &types.Label{UserID: user.ID}
	if req.Name != nil {
		label.Name = *req.Name
	}
	if req.Color != nil {
		label.Color = *req.Color
	}
	if verr := types.ValidateLabel(label.Name, label.Color); verr != nil {
		s.writeError(w, r, verr)
		return
	}
	if err := s.store.CreateLabel(r.Context(), label); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req labelRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	label, err := s.store.GetLabel(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name != nil {
		label.Name = *req.Name
	}
	if req.Color != nil {
		label.Color = *req.Color
	}
	if verr := types.ValidateLabel(label.Name, label.Color); verr != nil {
		s.writeError(w, r, verr)
		return
	}
	if err := s.store.UpdateLabel(r.Context(), label); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	if err := s.store.DeleteLabel(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
