// Package repository defines the visit record store interface and errors.
package repository

import (
	"context"

	"github.com/fieldray/kanvass/internal/domain/model"
)

// Store provides read/write access to the in-memory visit record set.
// Records are created externally and supplied in batches; the store never
// invents or deletes them, it only holds the latest known copy and applies
// the transition manager's documented status updates.
type Store interface {
	// UpsertBatch inserts or replaces records by id and returns the
	// number of records applied.
	UpsertBatch(ctx context.Context, records []model.VisitRecord) int

	// Get returns the record with the given id.
	// Returns ErrNotFound if the visit is unknown.
	Get(ctx context.Context, id int64) (model.VisitRecord, error)

	// ListByRep returns the records owned by one representative in
	// insertion order.
	ListByRep(ctx context.Context, repID string) []model.VisitRecord

	// List returns every record in insertion order.
	List(ctx context.Context) []model.VisitRecord

	// CompareAndSetStatus moves a record's status from expected to next.
	// Returns the updated record, ErrNotFound for an unknown id, or
	// ErrStatusConflict when the current status is not expected. Both the
	// optimistic apply and the revert path go through this.
	CompareAndSetStatus(ctx context.Context, id int64, expected, next model.Status) (model.VisitRecord, error)

	// Count returns the number of records tracked.
	Count(ctx context.Context) int

	// Reps returns the number of distinct representatives tracked.
	Reps(ctx context.Context) int
}
