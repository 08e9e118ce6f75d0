// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/fieldray/kanvass/internal/domain/model"
)

// MarkersHandler handles map marker requests.
type MarkersHandler struct {
	deps Dependencies
}

// NewMarkersHandler creates a new markers handler.
func NewMarkersHandler(deps Dependencies) *MarkersHandler {
	return &MarkersHandler{deps: deps}
}

// HandleGetMarkers handles GET /reps/{rep_id}/markers requests.
func (h *MarkersHandler) HandleGetMarkers(w http.ResponseWriter, r *http.Request, repID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	markers := h.deps.Markers(r.Context(), repID)
	if markers == nil {
		markers = []model.Marker{}
	}
	writeJSON(w, http.StatusOK, markers)
}
