package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ahoskins/burndown/internal/types"
)

type sprintRequest struct {
	Name      *string    `json:"name"`
	Goal      *string    `json:"goal"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type activateSprintRequest struct {
	NewStartDate *time.Time `json:"newStartDate"`
	NewEndDate   *time.Time `json:"newEndDate"`
}

// activateSprintResponse reports which issues the activation moved out of
// the backlog.
type activateSprintResponse struct {
	Sprint           *types.Sprint `json:"sprint"`
	UpdatedIssueIDs  []int64       `json:"updatedIssueIds"`
	MovedIssuesCount int           `json:"movedIssuesCount"`
}

func validateSprintFields(sprint *types.Sprint, now time.Time) error {
	v := types.NewValidationError()
	if strings.TrimSpace(sprint.Name) == "" {
		v.Add("name", "is required")
	} else if len(sprint.Name) > 200 {
		v.Add("name", "must be 200 characters or less")
	}
	if verr := types.ValidateSprintDates(sprint.StartDate, sprint.EndDate, now); verr != nil {
		for f, m := range verr.Fields {
			v.Add(f, m)
		}
	}
	return v.OrNil()
}

func (s *Server) handleListSprints(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	page := parsePage(r)
	sprints, total, err := s.store.ListSprints(r.Context(), user.ID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sprints == nil {
		sprints = []*types.Sprint{}
	}
	writeJSON(w, http.StatusOK, newListResponse(sprints, page, total))
}

func (s *Server) handleCreateSprint(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req sprintRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	sprint := &types.Sprint{UserID: user.ID, Status: types.SprintPlanned}
	if req.Name != nil {
		sprint.Name = *req.Name
	}
	if req.Goal != nil {
		sprint.Goal = *req.Goal
	}
	if req.StartDate != nil {
		sprint.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		sprint.EndDate = *req.EndDate
	}

	if err := validateSprintFields(sprint, time.Now()); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateSprint(r.Context(), sprint); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sprint)
}

func (s *Server) handleGetSprint(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	sprint, err := s.store.GetSprint(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sprint)
}

func (s *Server) handleUpdateSprint(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req sprintRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}

	sprint, err := s.store.GetSprint(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sprint.Status == types.SprintCompleted {
		s.writeError(w, r, types.ErrSprintCompleted)
		return
	}
	if req.Name != nil {
		sprint.Name = *req.Name
	}
	if req.Goal != nil {
		sprint.Goal = *req.Goal
	}
	if req.StartDate != nil {
		sprint.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		sprint.EndDate = *req.EndDate
	}

	v := types.NewValidationError()
	if strings.TrimSpace(sprint.Name) == "" {
		v.Add("name", "is required")
	} else if len(sprint.Name) > 200 {
		v.Add("name", "must be 200 characters or less")
	}
	// The not-in-the-past rule only covers a start date this request is
	// changing; an active sprint legitimately started in the past and its
	// end date must stay extendable.
	if req.StartDate != nil || req.EndDate != nil {
		if verr := types.ValidateSprintReschedule(sprint.StartDate, sprint.EndDate, time.Now(), req.StartDate != nil); verr != nil {
			for f, m := range verr.Fields {
				v.Add(f, m)
			}
		}
	}
	if err := v.OrNil(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateSprint(r.Context(), sprint); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sprint)
}

func (s *Server) handleDeleteSprint(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	if err := s.store.DeleteSprint(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateSprint(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	// The body is optional and ContentLength is -1 under chunked transfer
	// encoding, so read it before deciding whether there is one to decode.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}
	var req activateSprintRequest
	if len(body) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			s.badRequest(w, r, "body", "invalid JSON body")
			return
		}
	}

	if req.NewStartDate != nil || req.NewEndDate != nil {
		sprint, err := s.store.GetSprint(r.Context(), user.ID, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		start, end := sprint.StartDate, sprint.EndDate
		if req.NewStartDate != nil {
			start = *req.NewStartDate
		}
		if req.NewEndDate != nil {
			end = *req.NewEndDate
		}
		if verr := types.ValidateSprintDates(start, end, time.Now()); verr != nil {
			s.writeError(w, r, verr)
			return
		}
	}

	sprint, movedIDs, err := s.store.ActivateSprint(r.Context(), user.ID, id, req.NewStartDate, req.NewEndDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if movedIDs == nil {
		movedIDs = []int64{}
	}
	writeJSON(w, http.StatusOK, activateSprintResponse{
		Sprint:           sprint,
		UpdatedIssueIDs:  movedIDs,
		MovedIssuesCount: len(movedIDs),
	})
}

func (s *Server) handleCompleteSprint(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	sprint, err := s.store.CompleteSprint(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sprint)
}

func (s *Server) handleSprintIssues(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	issues, err := s.store.SprintIssues(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if issues == nil {
		issues = []*types.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleAddIssuesToSprint(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.badRequest(w, r, "id", "must be an integer")
		return
	}
	var req struct {
		IssueIDs []int64 `json:"issueIds"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, r, "body", "invalid JSON body")
		return
	}
	if len(req.IssueIDs) == 0 {
		s.badRequest(w, r, "issueIds", "must not be empty")
		return
	}
	issues, err := s.store.AddIssuesToSprint(r.Context(), user.ID, id, req.IssueIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}
