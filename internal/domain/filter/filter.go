// Package filter applies status, date and text-search predicates to visit
// record sets.
//
// The engine is a pure, synchronous function: debouncing of search input
// is the host's concern, never this package's.
package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/internal/domain/normalize"
)

// Criteria describes the predicates to apply. Zero values pass everything
// through.
type Criteria struct {
	// Status matches the resolved status exactly; nil means all statuses.
	Status *model.Status

	// Date is an exact-day substring match against the raw scheduled-date
	// field, mirroring the rollup-table call site.
	Date string

	// From and To bound canonical days inclusively. Either side may be
	// empty for an open end. Both bounds run through the same normalizer
	// as record dates, so mixed encodings cannot shift a boundary.
	From string
	To   string

	// Search is a case-insensitive substring matched against rep name,
	// client name, route name, or the stringified record id; a record
	// matches if any field contains the term.
	Search string
}

// Apply filters records by the given criteria. Records whose scheduled
// date cannot be normalized are excluded only when a range bound needs to
// compare against them. Malformed criteria bounds are an error.
func Apply(records []model.VisitRecord, c Criteria) ([]model.VisitRecord, error) {
	var from, to time.Time
	var hasFrom, hasTo bool
	if c.From != "" {
		day, err := normalize.Day(c.From)
		if err != nil {
			return nil, fmt.Errorf("from bound: %w", err)
		}
		from, hasFrom = day, true
	}
	if c.To != "" {
		day, err := normalize.Day(c.To)
		if err != nil {
			return nil, fmt.Errorf("to bound: %w", err)
		}
		to, hasTo = day, true
	}

	term := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]model.VisitRecord, 0, len(records))
	for _, v := range records {
		if c.Status != nil && v.Status != *c.Status {
			continue
		}
		if c.Date != "" && !strings.Contains(v.ScheduledDate, c.Date) {
			continue
		}
		if hasFrom || hasTo {
			day, err := normalize.Day(v.ScheduledDate)
			if err != nil {
				continue
			}
			if hasFrom && day.Before(from) {
				continue
			}
			if hasTo && day.After(to) {
				continue
			}
		}
		if term != "" && !matchesSearch(v, term) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func matchesSearch(v model.VisitRecord, term string) bool {
	for _, field := range []string{
		v.RepName,
		v.ClientName,
		v.RouteName,
		strconv.FormatInt(v.ID, 10),
	} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// SortChronological orders records by (canonical day, scheduled time)
// ascending for list views. Records with an unparseable date sort last,
// by raw date string. The sort is stable so aggregator order survives
// within ties. Rollup-table consumers keep aggregator output order and
// never call this.
func SortChronological(records []model.VisitRecord) []model.VisitRecord {
	out := make([]model.VisitRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		di, ei := normalize.Day(out[i].ScheduledDate)
		dj, ej := normalize.Day(out[j].ScheduledDate)
		switch {
		case ei != nil && ej != nil:
			return out[i].ScheduledDate < out[j].ScheduledDate
		case ei != nil:
			return false
		case ej != nil:
			return true
		}
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].ScheduledTime < out[j].ScheduledTime
	})
	return out
}
