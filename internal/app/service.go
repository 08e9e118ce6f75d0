// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	jobqueue "github.com/fieldray/kanvass/internal/adapters/mq/queue"
	workerpool "github.com/fieldray/kanvass/internal/adapters/mq/worker"
	"github.com/fieldray/kanvass/internal/adapters/remote"
	"github.com/fieldray/kanvass/internal/adapters/repository"
	"github.com/fieldray/kanvass/internal/domain/aggregate"
	"github.com/fieldray/kanvass/internal/domain/filter"
	"github.com/fieldray/kanvass/internal/domain/inflight"
	"github.com/fieldray/kanvass/internal/domain/mapprep"
	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/internal/domain/normalize"
	"github.com/fieldray/kanvass/internal/domain/rollup"
	"github.com/fieldray/kanvass/internal/domain/transition"
	"github.com/fieldray/kanvass/pkg/logger"
	"github.com/fieldray/kanvass/pkg/metrics"
)

// Source supplies per-representative visit batches from the external
// visit-record source.
type Source interface {
	FetchBatches(ctx context.Context, repIDs []string) (map[string][]model.VisitRecord, []remote.DecodeWarning, error)
}

// coverageEntry caches one representative's derived aggregates. Entries
// are views over the store; any ingest or committed transition for the
// rep recomputes them wholesale.
type coverageEntry struct {
	buckets  []model.DailyPerformance
	warnings []aggregate.Warning
}

// Service implements the API dependencies for the coverage engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	tracker    inflight.Tracker
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool
	manager    *transition.Manager
	source     Source
	mutator    workerpool.Mutator

	// Derived aggregates, keyed by rep id.
	coverage map[string]coverageEntry

	// Configuration
	workerCount      int
	queueSize        int
	inflightCapacity int
	storeCapacity    int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of transition dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the transition job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithInflightCapacity pre-sizes the in-flight transition tracker.
func WithInflightCapacity(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.inflightCapacity = size
		}
	}
}

// WithStoreCapacity pre-sizes the visit record store.
func WithStoreCapacity(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.storeCapacity = size
		}
	}
}

// WithSource sets the visit-record source collaborator.
func WithSource(src Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithMutator sets the status mutation collaborator.
func WithMutator(m workerpool.Mutator) Option {
	return func(s *Service) {
		if m != nil {
			s.mutator = m
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        4096,
		inflightCapacity: 1024,
		storeCapacity:    4096,
		coverage:         make(map[string]coverageEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.mutator == nil {
		return fmt.Errorf("start service: status mutation collaborator is required")
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting coverage service...")

	s.store = repository.NewMemStore(ctx, repository.WithInitialCapacity(s.storeCapacity))
	s.tracker = inflight.NewInMemoryTracker(inflight.WithCapacityHint(s.inflightCapacity))
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.manager = transition.NewManager(s.store, s.tracker, s.jobQueue,
		transition.WithLogger(s.logger.Named("transition")),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s.mutator, s.store, s.tracker,
		workerpool.WithInvalidator(s),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "coverage service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping coverage service...")

	if s.jobQueue != nil {
		_ = s.jobQueue.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	s.started = false
	s.logger.Info(ctx, "coverage service stopped")
}

// IngestBatch upserts a batch of already-decoded records and recomputes
// the affected representatives' aggregates. Returns the number of records
// applied and the normalization warnings for the affected reps.
func (s *Service) IngestBatch(ctx context.Context, records []model.VisitRecord) (int, []aggregate.Warning) {
	for _, v := range records {
		if _, err := normalize.Day(v.ScheduledDate); err != nil {
			metrics.RecordMalformedDate()
		}
	}

	applied := s.store.UpsertBatch(ctx, records)
	metrics.RecordVisitsIngested(applied)

	var warnings []aggregate.Warning
	for repID := range aggregate.ByRep(records) {
		entry := s.recomputeRep(ctx, repID)
		warnings = append(warnings, entry.warnings...)
	}
	return applied, warnings
}

// RefreshFromSource pulls fresh batches for the given representatives
// from the visit-record source and re-derives their aggregates. This is
// the explicit batch-refresh entry point; the host decides when to call
// it (startup, filter change, after a transition).
func (s *Service) RefreshFromSource(ctx context.Context, repIDs []string) (int, []remote.DecodeWarning, error) {
	if s.source == nil {
		return 0, nil, fmt.Errorf("refresh: no visit-record source configured")
	}

	batches, decodeWarnings, err := s.source.FetchBatches(ctx, repIDs)
	if err != nil {
		return 0, decodeWarnings, fmt.Errorf("refresh: %w", err)
	}

	total := 0
	for repID, records := range batches {
		applied, _ := s.IngestBatch(ctx, records)
		total += applied
		s.logger.Debug(ctx, "refreshed rep batch",
			logger.String("repID", repID),
			logger.Int("records", applied),
		)
	}
	return total, decodeWarnings, nil
}

// Coverage returns one representative's daily performance buckets, most
// recent day first, with completion metrics computed, plus the
// normalization warnings for excluded records.
func (s *Service) Coverage(ctx context.Context, repID string) ([]model.DailyPerformance, []aggregate.Warning) {
	s.mu.RLock()
	entry, ok := s.coverage[repID]
	s.mu.RUnlock()
	if !ok {
		entry = s.recomputeRep(ctx, repID)
	}
	return entry.buckets, entry.warnings
}

// Summary reduces a representative's buckets, optionally bounded to a
// canonical-day range, into rep-level overall stats.
func (s *Service) Summary(ctx context.Context, repID, from, to string) (model.RepSummary, error) {
	buckets, _ := s.Coverage(ctx, repID)

	if from != "" || to != "" {
		bounded := make([]model.DailyPerformance, 0, len(buckets))
		for _, b := range buckets {
			keep, err := dayInRange(b, from, to)
			if err != nil {
				return model.RepSummary{}, err
			}
			if keep {
				bounded = append(bounded, b)
			}
		}
		buckets = bounded
	}
	return rollup.Summarize(buckets), nil
}

// dayInRange checks a bucket's canonical day against raw bounds, pushing
// both bounds through the normalizer so mixed encodings cannot shift a
// boundary.
func dayInRange(b model.DailyPerformance, from, to string) (bool, error) {
	if from != "" {
		fromDay, err := normalize.Day(from)
		if err != nil {
			return false, fmt.Errorf("summary from bound: %w", err)
		}
		if b.Date.Before(fromDay) {
			return false, nil
		}
	}
	if to != "" {
		toDay, err := normalize.Day(to)
		if err != nil {
			return false, fmt.Errorf("summary to bound: %w", err)
		}
		if b.Date.After(toDay) {
			return false, nil
		}
	}
	return true, nil
}

// Visits applies the filter engine over the record set, scoped to one
// rep when repID is non-empty. Chronological ordering is for list views;
// otherwise insertion order is preserved for the rollup table.
func (s *Service) Visits(ctx context.Context, repID string, criteria filter.Criteria, chronological bool) ([]model.VisitRecord, error) {
	var records []model.VisitRecord
	if repID != "" {
		records = s.store.ListByRep(ctx, repID)
	} else {
		records = s.store.List(ctx)
	}

	filtered, err := filter.Apply(records, criteria)
	if err != nil {
		return nil, fmt.Errorf("filter visits: %w", err)
	}
	if chronological {
		filtered = filter.SortChronological(filtered)
	}
	return filtered, nil
}

// Markers projects one representative's completed, geotagged visits into
// the map marker model.
func (s *Service) Markers(ctx context.Context, repID string) []model.Marker {
	return mapprep.PrepareMarkers(s.store.ListByRep(ctx, repID))
}

// RequestTransition moves a visit through the status state machine.
func (s *Service) RequestTransition(ctx context.Context, visitID int64, next model.Status) (model.VisitRecord, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.VisitRecord{}, fmt.Errorf("transition: service not started")
	}
	return s.manager.Request(ctx, visitID, next)
}

// InvalidateVisitDay recomputes the day buckets containing the given
// visit after its transition committed; the count and rate change, not
// just the record.
func (s *Service) InvalidateVisitDay(ctx context.Context, visitID int64) {
	v, err := s.store.Get(ctx, visitID)
	if err != nil {
		s.logger.Warn(ctx, "invalidate for unknown visit", logger.Int64("visitID", visitID))
		return
	}
	s.recomputeRep(ctx, v.RepID)
}

// recomputeRep re-derives one representative's aggregates from the store
// and refreshes the cache.
func (s *Service) recomputeRep(ctx context.Context, repID string) coverageEntry {
	buckets, warnings := aggregate.Aggregate(s.store.ListByRep(ctx, repID))
	entry := coverageEntry{buckets: buckets, warnings: warnings}

	s.mu.Lock()
	s.coverage[repID] = entry
	s.mu.Unlock()

	metrics.RecordCoverageRefresh()
	return entry
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(ctx)
		stats["visitsTracked"] = s.store.Count(ctx)
		stats["repsTracked"] = s.store.Reps(ctx)
		stats["transitionsInFlight"] = s.tracker.Size()
	}
	return stats
}
