package repository

import (
	"context"
	"sync"
	"time"

	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/pkg/metrics"
)

// MemStore is the in-memory Store implementation backing a session.
// Insertion order is preserved globally and per representative so that
// aggregation and chronological re-sorts are deterministic.
type MemStore struct {
	mu       sync.RWMutex
	byID     map[int64]model.VisitRecord
	order    []int64
	repOrder map[string][]int64

	initialCapacity int
}

// NewMemStore creates an empty store with configuration options.
func NewMemStore(_ context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		initialCapacity: defaultInitialCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[int64]model.VisitRecord, s.initialCapacity)
	s.repOrder = make(map[string][]int64)
	return s
}

// UpsertBatch inserts or replaces records by id.
func (s *MemStore) UpsertBatch(_ context.Context, records []model.VisitRecord) int {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range records {
		prev, exists := s.byID[v.ID]
		s.byID[v.ID] = v
		if !exists {
			s.order = append(s.order, v.ID)
			s.repOrder[v.RepID] = append(s.repOrder[v.RepID], v.ID)
			continue
		}
		if prev.RepID != v.RepID {
			s.repOrder[prev.RepID] = removeID(s.repOrder[prev.RepID], v.ID)
			if len(s.repOrder[prev.RepID]) == 0 {
				delete(s.repOrder, prev.RepID)
			}
			s.repOrder[v.RepID] = append(s.repOrder[v.RepID], v.ID)
		}
	}

	metrics.UpdateVisitsTracked(len(s.byID))
	metrics.UpdateRepsTracked(len(s.repOrder))
	return len(records)
}

// Get returns the record with the given id.
func (s *MemStore) Get(_ context.Context, id int64) (model.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[id]
	if !ok {
		return model.VisitRecord{}, ErrNotFound
	}
	return v, nil
}

// ListByRep returns one representative's records in insertion order.
func (s *MemStore) ListByRep(_ context.Context, repID string) []model.VisitRecord {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.repOrder[repID]
	out := make([]model.VisitRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}

// List returns every record in insertion order.
func (s *MemStore) List(_ context.Context) []model.VisitRecord {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.VisitRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// CompareAndSetStatus moves a record's status from expected to next.
func (s *MemStore) CompareAndSetStatus(_ context.Context, id int64, expected, next model.Status) (model.VisitRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.byID[id]
	if !ok {
		return model.VisitRecord{}, ErrNotFound
	}
	if v.Status != expected {
		return model.VisitRecord{}, ErrStatusConflict
	}
	v.Status = next
	s.byID[id] = v
	return v, nil
}

// Count returns the number of records tracked.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Reps returns the number of distinct representatives tracked.
func (s *MemStore) Reps(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.repOrder)
}

func removeID(ids []int64, id int64) []int64 {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
