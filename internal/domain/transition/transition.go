// Package transition enforces the visit status state machine and runs the
// optimistic-update/revert protocol against the remote mutation endpoint.
package transition

import (
	"context"
	"fmt"

	"github.com/fieldray/kanvass/internal/domain/inflight"
	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/pkg/logger"
	"github.com/fieldray/kanvass/pkg/metrics"
)

// legal holds every defined transition. Completed and Cancelled are
// terminal: nothing leads out of them.
var legal = map[model.Status]map[model.Status]bool{
	model.StatusPending: {
		model.StatusInProgress: true,
		model.StatusCancelled:  true,
	},
	model.StatusInProgress: {
		model.StatusCompleted: true,
	},
}

// Validate rejects any transition the state machine does not define. It
// runs before any remote effect, so an illegal request has no side
// effects at all.
func Validate(from, to model.Status) error {
	if legal[from][to] {
		return nil
	}
	return &IllegalTransitionError{From: from, To: to}
}

// Job is one transition request in flight through the dispatch queue.
// Done receives the outcome exactly once; it must be buffered so the
// worker never blocks on a caller that gave up.
type Job struct {
	VisitID int64
	From    model.Status
	To      model.Status
	Done    chan error
}

// Store is the slice of the repository the manager needs.
type Store interface {
	Get(ctx context.Context, id int64) (model.VisitRecord, error)
	CompareAndSetStatus(ctx context.Context, id int64, expected, next model.Status) (model.VisitRecord, error)
}

// Dispatcher hands a job to the asynchronous mutation pipeline. Returns
// false on backpressure.
type Dispatcher interface {
	Enqueue(ctx context.Context, job Job) bool
}

// Manager validates transition requests, applies the optimistic local
// update, and waits for the remote outcome. Same-visit requests are
// serialized through the in-flight tracker; requests for different visits
// proceed in parallel across the worker pool.
type Manager struct {
	store    Store
	tracker  inflight.Tracker
	dispatch Dispatcher
	logger   logger.Logger
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager wires the manager to its collaborators.
func NewManager(store Store, tracker inflight.Tracker, dispatch Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		tracker:  tracker,
		dispatch: dispatch,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("transition")
	}
	return m
}

// Request moves a visit to next. On success the returned record carries
// the new status. On remote failure the local copy has already been
// reverted to its prior status and the failure is surfaced; nothing is
// swallowed or retried.
func (m *Manager) Request(ctx context.Context, visitID int64, next model.Status) (model.VisitRecord, error) {
	v, err := m.store.Get(ctx, visitID)
	if err != nil {
		return model.VisitRecord{}, fmt.Errorf("transition lookup: %w", err)
	}
	prior := v.Status

	// Reject before any remote effect.
	if err := Validate(prior, next); err != nil {
		metrics.RecordTransitionRejected()
		return model.VisitRecord{}, err
	}

	// Serialize per visit: a second request while one is unresolved is
	// rejected pending, not queued behind it.
	if m.tracker.Begin(ctx, visitID) {
		metrics.RecordTransitionRejected()
		return model.VisitRecord{}, &InFlightError{VisitID: visitID}
	}

	// Optimistic local update. A CAS miss means another writer slipped in
	// between Get and here; give up cleanly.
	updated, err := m.store.CompareAndSetStatus(ctx, visitID, prior, next)
	if err != nil {
		m.tracker.Finish(ctx, visitID)
		metrics.RecordTransitionRejected()
		return model.VisitRecord{}, fmt.Errorf("optimistic update: %w", err)
	}

	job := Job{
		VisitID: visitID,
		From:    prior,
		To:      next,
		Done:    make(chan error, 1),
	}
	if !m.dispatch.Enqueue(ctx, job) {
		// Roll the optimistic update back; the request never left.
		if _, revertErr := m.store.CompareAndSetStatus(ctx, visitID, next, prior); revertErr != nil {
			m.logger.Error(ctx, "revert after enqueue failure",
				logger.Int("visitID", int(visitID)), logger.Error(revertErr))
		}
		m.tracker.Finish(ctx, visitID)
		metrics.RecordTransitionRejected()
		return model.VisitRecord{}, ErrBackpressure
	}

	// The worker resolves the job: it commits or reverts the store and
	// releases the in-flight claim. There is no cancellation for the
	// remote call itself; transport timeouts surface as a failure here.
	select {
	case err := <-job.Done:
		if err != nil {
			return model.VisitRecord{}, err
		}
		return updated, nil
	case <-ctx.Done():
		return model.VisitRecord{}, fmt.Errorf("transition wait: %w", ctx.Err())
	}
}
