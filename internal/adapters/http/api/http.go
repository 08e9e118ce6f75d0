// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fieldray/kanvass/internal/domain/aggregate"
	"github.com/fieldray/kanvass/internal/domain/filter"
	"github.com/fieldray/kanvass/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// IngestBatch upserts decoded records and returns the applied count
	// plus normalization warnings.
	IngestBatch(ctx context.Context, records []model.VisitRecord) (int, []aggregate.Warning)

	// Coverage returns per-day buckets for one representative, most
	// recent day first.
	Coverage(ctx context.Context, repID string) ([]model.DailyPerformance, []aggregate.Warning)

	// Summary reduces a representative's buckets, optionally bounded to
	// a day range, into overall stats.
	Summary(ctx context.Context, repID, from, to string) (model.RepSummary, error)

	// Visits applies the filter engine over the record set.
	Visits(ctx context.Context, repID string, criteria filter.Criteria, chronological bool) ([]model.VisitRecord, error)

	// Markers projects completed, geotagged visits into map markers.
	Markers(ctx context.Context, repID string) []model.Marker

	// RequestTransition moves a visit through the status state machine.
	RequestTransition(ctx context.Context, visitID int64, next model.Status) (model.VisitRecord, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	visitsHandler     *VisitsHandler
	coverageHandler   *CoverageHandler
	markersHandler    *MarkersHandler
	transitionHandler *TransitionHandler
	dashboardHandler  *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		visitsHandler:     NewVisitsHandler(deps, maxLimit),
		coverageHandler:   NewCoverageHandler(deps),
		markersHandler:    NewMarkersHandler(deps),
		transitionHandler: NewTransitionHandler(deps),
		dashboardHandler:  newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/visits", MetricsMiddleware(s.visitsHandler.HandleVisits, "visits"))
	mux.HandleFunc("/visits/", MetricsMiddleware(s.transitionHandler.HandlePostStatus, "visit_status"))
	mux.HandleFunc("/reps/", MetricsMiddleware(s.handleReps, "reps"))
}

// handleReps dispatches /reps/{rep_id}/coverage and /reps/{rep_id}/markers.
func (s *Server) handleReps(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/reps/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	repID := parts[0]
	switch parts[1] {
	case "coverage":
		s.coverageHandler.HandleGetCoverage(w, r, repID)
	case "markers":
		s.markersHandler.HandleGetMarkers(w, r, repID)
	default:
		http.NotFound(w, r)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// warningMessages flattens aggregation warnings into response strings.
func warningMessages(warnings []aggregate.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, warning.Message)
	}
	return out
}
