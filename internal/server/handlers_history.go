package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/nfa-builder/internal/db"
)

// maxHistoryLimit caps the limit query parameter.
const maxHistoryLimit = 200

// StatusUpdateRequest is the body of PATCH /api/history/{id}/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// handleListHistory lists recorded builds, newest first.
// Query parameters: status, approval_status, limit.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, s.logger, &ErrUnavailable{Feature: "history"})
		return
	}

	filters := db.RunFilters{
		Status:         r.URL.Query().Get("status"),
		ApprovalStatus: r.URL.Query().Get("approval_status"),
	}
	if filters.ApprovalStatus != "" && !db.IsValidApprovalStatus(filters.ApprovalStatus) {
		writeError(w, s.logger, &ErrValidation{Field: "approval_status", Message: "must be pending, approved or rejected"})
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, s.logger, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		filters.Limit = min(limit, maxHistoryLimit)
	}

	runs, err := s.history.ListRuns(r.Context(), filters)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetHistory returns one recorded build.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, s.logger, &ErrUnavailable{Feature: "history"})
		return
	}
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.history.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if run == nil {
		writeError(w, s.logger, &ErrNotFound{Resource: "run", ID: runID.String()})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, run)
}

// handleUpdateStatus records an approval decision for a build.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, s.logger, &ErrUnavailable{Feature: "history"})
		return
	}
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var req StatusUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, s.logger, &ErrValidation{Message: "invalid request body"})
		return
	}
	if !db.IsValidApprovalStatus(req.Status) {
		writeError(w, s.logger, &ErrValidation{Field: "status", Message: "must be pending, approved or rejected"})
		return
	}

	if err := s.history.UpdateApprovalStatus(r.Context(), runID, req.Status); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success": true,
		"id":      runID,
		"status":  req.Status,
	})
}

func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return uuid.Nil, false
	}
	return runID, true
}
