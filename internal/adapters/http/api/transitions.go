// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fieldray/kanvass/internal/adapters/repository"
	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/internal/domain/transition"
)

// TransitionHandler handles visit status transition requests.
type TransitionHandler struct {
	deps Dependencies
}

// NewTransitionHandler creates a new transition handler.
func NewTransitionHandler(deps Dependencies) *TransitionHandler {
	return &TransitionHandler{deps: deps}
}

// transitionRequest mirrors the OpenAPI schema for POST /visits/{id}/status.
type transitionRequest struct {
	Status string `json:"status"`
}

// transitionResponse returns the settled record after the remote outcome.
type transitionResponse struct {
	Status string            `json:"status"`
	Visit  model.VisitRecord `json:"visit"`
}

// HandlePostStatus handles POST /visits/{id}/status requests. The call
// blocks until the remote mutation settles; a remote failure means the
// optimistic local update was already rolled back.
func (h *TransitionHandler) HandlePostStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/visits/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "status" {
		http.NotFound(w, r)
		return
	}
	visitID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid visit id %q", parts[0]))
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	next, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	visit, err := h.deps.RequestTransition(r.Context(), visitID, next)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, transition.ErrIllegalTransition):
			writeError(w, http.StatusConflict, "illegal_transition", err)
		case errors.Is(err, transition.ErrInFlight):
			writeError(w, http.StatusConflict, "transition_in_flight", err)
		case errors.Is(err, repository.ErrStatusConflict):
			writeError(w, http.StatusConflict, "status_conflict", err)
		case errors.Is(err, transition.ErrBackpressure):
			writeError(w, http.StatusTooManyRequests, "backpressure", err)
		case errors.Is(err, transition.ErrRemoteMutation):
			writeError(w, http.StatusBadGateway, "remote_mutation_failed", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Status: "committed", Visit: visit})
}
