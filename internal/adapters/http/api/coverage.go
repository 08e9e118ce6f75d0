// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/fieldray/kanvass/internal/domain/model"
)

// CoverageHandler handles per-representative coverage requests.
type CoverageHandler struct {
	deps Dependencies
}

// NewCoverageHandler creates a new coverage handler.
func NewCoverageHandler(deps Dependencies) *CoverageHandler {
	return &CoverageHandler{deps: deps}
}

// coverageResponse carries the daily buckets plus the rep-level summary.
type coverageResponse struct {
	RepID    string                   `json:"rep_id"`
	Days     []model.DailyPerformance `json:"days"`
	Summary  model.RepSummary         `json:"summary"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// HandleGetCoverage handles GET /reps/{rep_id}/coverage?from=&to= requests.
func (h *CoverageHandler) HandleGetCoverage(w http.ResponseWriter, r *http.Request, repID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")

	days, warnings := h.deps.Coverage(r.Context(), repID)
	summary, err := h.deps.Summary(r.Context(), repID, from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if days == nil {
		days = []model.DailyPerformance{}
	}
	writeJSON(w, http.StatusOK, coverageResponse{
		RepID:    repID,
		Days:     days,
		Summary:  summary,
		Warnings: warningMessages(warnings),
	})
}
