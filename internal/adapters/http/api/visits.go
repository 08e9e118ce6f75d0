// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fieldray/kanvass/internal/adapters/remote"
	"github.com/fieldray/kanvass/internal/domain/filter"
	"github.com/fieldray/kanvass/internal/domain/model"
)

// maxIngestBytes bounds a single ingest payload.
const maxIngestBytes = 16 << 20

// VisitsHandler handles visit ingest and list requests.
type VisitsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewVisitsHandler creates a new visits handler.
func NewVisitsHandler(deps Dependencies, maxLimit int) *VisitsHandler {
	return &VisitsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleVisits dispatches POST /visits (batch ingest) and
// GET /visits (filtered list).
func (h *VisitsHandler) HandleVisits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleIngest(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

// ingestResponse acknowledges a batch ingest.
type ingestResponse struct {
	Applied        int      `json:"applied"`
	DecodeWarnings []string `json:"decode_warnings,omitempty"`
	DateWarnings   []string `json:"date_warnings,omitempty"`
}

// handleIngest accepts a batch payload in either of the collaborator's
// shapes, a bare array or an object wrapping the array under "data", and
// upserts the decoded records.
func (h *VisitsHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("read body: %w", err))
		return
	}

	records, decodeWarnings, err := remote.UnwrapRecords(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	applied, dateWarnings := h.deps.IngestBatch(r.Context(), records)

	resp := ingestResponse{
		Applied:      applied,
		DateWarnings: warningMessages(dateWarnings),
	}
	for _, warning := range decodeWarnings {
		resp.DecodeWarnings = append(resp.DecodeWarnings, warning.Message)
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handleList handles GET /visits?rep=&status=&date=&from=&to=&q=&sort=
// requests. All filter dimensions compose as AND.
func (h *VisitsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	criteria := filter.Criteria{
		Date:   q.Get("date"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Search: q.Get("q"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		criteria.Status = &status
	}

	chronological := false
	switch strings.ToLower(q.Get("sort")) {
	case "", "none":
	case "chrono", "chronological":
		chronological = true
	default:
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("unknown sort %q", q.Get("sort")))
		return
	}

	records, err := h.deps.Visits(r.Context(), q.Get("rep"), criteria, chronological)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if h.maxLimit > 0 && len(records) > h.maxLimit {
		records = records[:h.maxLimit]
	}
	if records == nil {
		records = []model.VisitRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
