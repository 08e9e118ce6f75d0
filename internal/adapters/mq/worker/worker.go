// Package worker executes transition jobs against the remote status
// mutation endpoint and settles local state.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/fieldray/kanvass/internal/domain/inflight"
	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/internal/domain/transition"
	"github.com/fieldray/kanvass/pkg/logger"
	"github.com/fieldray/kanvass/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 8
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = transition.Job

// Mutator issues the remote status mutation. Apply-once semantics: no
// built-in retry, a timeout is just another failure.
type Mutator interface {
	MutateStatus(ctx context.Context, visitID int64, next model.Status) error
}

// Store is the slice of the repository workers need for the revert path.
type Store interface {
	CompareAndSetStatus(ctx context.Context, id int64, expected, next model.Status) (model.VisitRecord, error)
}

// Invalidator is told about committed transitions so the affected day
// bucket is recomputed, not just the record mutated in isolation.
type Invalidator interface {
	InvalidateVisitDay(ctx context.Context, visitID int64)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes transition jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for settling transition jobs.
type InMemoryWorker struct {
	queue       Queue
	mutator     Mutator
	store       Store
	tracker     inflight.Tracker
	invalidator Invalidator
	name        string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, mutator Mutator, store Store, tracker inflight.Tracker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		mutator:  mutator,
		store:    store,
		tracker:  tracker,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				return
			}
			w.settle(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// settle runs the remote call for one job and resolves local state: the
// optimistic update stays on success and is reverted on failure. The
// in-flight claim is released only after the store has settled, then the
// caller is answered through job.Done.
func (w *InMemoryWorker) settle(ctx context.Context, job Job) {
	start := time.Now()
	err := w.mutator.MutateStatus(ctx, job.VisitID, job.To)
	metrics.RecordRemoteMutationLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordRemoteMutationError()
		metrics.RecordTransitionReverted()
		metrics.RecordErrorByComponent("worker", "remote_mutation")
		if _, revertErr := w.store.CompareAndSetStatus(ctx, job.VisitID, job.To, job.From); revertErr != nil {
			// The record moved under us while in flight; the tracker is
			// supposed to make this impossible.
			metrics.RecordWorkerError()
			w.logger.Error(ctx, "revert failed after remote mutation failure",
				logger.Int("visitID", int(job.VisitID)),
				logger.Error(revertErr),
			)
		}
		w.tracker.Finish(ctx, job.VisitID)
		job.Done <- &transition.RemoteMutationError{VisitID: job.VisitID, To: job.To, Err: err}
		return
	}

	metrics.RecordTransitionCommitted()
	w.tracker.Finish(ctx, job.VisitID)
	if w.invalidator != nil {
		w.invalidator.InvalidateVisitDay(ctx, job.VisitID)
	}
	job.Done <- nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker

	logger logger.Logger
}

// NewPool creates a worker pool of the given size.
func NewPool(workerCount int, queue Queue, mutator Mutator, store Store, tracker inflight.Tracker, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = min(defaultWorkerCount, runtime.NumCPU()*2)
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, mutator, store, tracker, workerOpts...)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.signalShutdown()
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// signalShutdown closes the shutdown channel exactly once.
func (w *InMemoryWorker) signalShutdown() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

// Shutdown closes the queue and waits for the workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		w.signalShutdown()
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
