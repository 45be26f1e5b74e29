package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ahoskins/burndown/internal/auth"
	"github.com/ahoskins/burndown/internal/types"
)

// Error codes returned in error bodies.
const (
	codeValidationFailed   = "VALIDATION_FAILED"
	codeUnauthorized       = "UNAUTHORIZED"
	codeNotFound           = "RESOURCE_NOT_FOUND"
	codeDuplicate          = "DUPLICATE_RESOURCE"
	codeWorkflowTransition = "INVALID_WORKFLOW_TRANSITION"
	codeSprintOperation    = "INVALID_SPRINT_OPERATION"
	codeInternal           = "INTERNAL_ERROR"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Path      string            `json:"path"`
}

// listResponse wraps paginated collections.
type listResponse struct {
	Items      any `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

func newListResponse(items any, page types.Page, total int) listResponse {
	pages := 0
	if page.Size > 0 {
		pages = (total + page.Size - 1) / page.Size
	}
	return listResponse{
		Items:      items,
		Page:       page.Number,
		Size:       page.Size,
		TotalItems: total,
		TotalPages: pages,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (s *Server) writeErrorBody(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	if status >= 500 && s.log != nil {
		s.log.Printf("%s %s: %s", r.Method, r.URL.Path, message)
	}
	writeJSON(w, status, errorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// writeError maps a domain error to its HTTP status and error code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *types.ValidationError
	var dup *types.DuplicateError
	var wfe *types.WorkflowTransitionError

	switch {
	case errors.As(err, &verr):
		s.writeErrorBody(w, r, http.StatusBadRequest, codeValidationFailed, "validation failed", verr.Fields)
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeErrorBody(w, r, http.StatusUnauthorized, codeUnauthorized, "invalid credentials", nil)
	case errors.Is(err, types.ErrNotFound):
		s.writeErrorBody(w, r, http.StatusNotFound, codeNotFound, "resource not found", nil)
	case errors.As(err, &dup):
		s.writeErrorBody(w, r, http.StatusConflict, codeDuplicate, dup.Error(), nil)
	case errors.As(err, &wfe):
		s.writeErrorBody(w, r, http.StatusConflict, codeWorkflowTransition, wfe.Error(), nil)
	case errors.Is(err, types.ErrActiveSprintExists),
		errors.Is(err, types.ErrSprintNotActive),
		errors.Is(err, types.ErrSprintCompleted):
		s.writeErrorBody(w, r, http.StatusConflict, codeSprintOperation, err.Error(), nil)
	default:
		s.writeErrorBody(w, r, http.StatusInternalServerError, codeInternal, "internal error", nil)
	}
}

// badRequest reports a malformed request body or parameter.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, field, message string) {
	s.writeErrorBody(w, r, http.StatusBadRequest, codeValidationFailed, "validation failed",
		map[string]string{field: message})
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathID parses the {id} (or other named) path segment as an int64.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// parsePage reads page/size/sort/search list parameters.
func parsePage(r *http.Request) types.Page {
	q := r.URL.Query()
	page := types.Page{Number: 1, Size: 20}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page.Number = n
	}
	if n, err := strconv.Atoi(q.Get("size")); err == nil && n > 0 {
		page.Size = n
	}
	if page.Size > 100 {
		page.Size = 100
	}
	page.Sort = q.Get("sort")
	page.Search = q.Get("search")
	return page
}
