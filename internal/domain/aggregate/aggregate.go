// Package aggregate groups a representative's visit records into
// per-day performance buckets.
package aggregate

import (
	"sort"
	"time"

	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/internal/domain/normalize"
	"github.com/fieldray/kanvass/internal/domain/rollup"
)

// Warning reports a record that was excluded from aggregation because its
// scheduled date could not be normalized. The batch continues without it.
type Warning struct {
	VisitID int64  `json:"visit_id"`
	Raw     string `json:"raw"`
	Err     error  `json:"-"`
	Message string `json:"message"`
}

// ByRep partitions a mixed record set by owning representative in a single
// pass. Callers aggregate each partition separately; building the map once
// per refresh keeps grouping O(n) instead of filtering per rep.
func ByRep(records []model.VisitRecord) map[string][]model.VisitRecord {
	byRep := make(map[string][]model.VisitRecord)
	for _, v := range records {
		byRep[v.RepID] = append(byRep[v.RepID], v)
	}
	return byRep
}

// Aggregate groups one representative's records into day buckets keyed by
// canonical day, most recent day first. Records whose date cannot be
// normalized are excluded and reported as warnings. Buckets come back with
// completion metrics already computed.
func Aggregate(records []model.VisitRecord) ([]model.DailyPerformance, []Warning) {
	var warnings []Warning

	byDay := make(map[time.Time]*model.DailyPerformance)
	var order []time.Time
	for _, v := range records {
		day, err := normalize.Day(v.ScheduledDate)
		if err != nil {
			warnings = append(warnings, Warning{
				VisitID: v.ID,
				Raw:     v.ScheduledDate,
				Err:     err,
				Message: err.Error(),
			})
			continue
		}
		bucket, ok := byDay[day]
		if !ok {
			bucket = &model.DailyPerformance{Date: day}
			byDay[day] = bucket
			order = append(order, day)
		}
		bucket.AllVisits = append(bucket.AllVisits, v)
	}

	buckets := make([]model.DailyPerformance, 0, len(order))
	for _, day := range order {
		buckets = append(buckets, *byDay[day])
	}

	// Mandatory even though grouping above cannot currently produce two
	// buckets for one key: the merge pass is the last line of defense
	// against normalization paths disagreeing on equivalent encodings.
	buckets = MergeDuplicateDays(buckets)

	for i := range buckets {
		buckets[i] = rollup.Compute(buckets[i])
	}

	// Most recent day first; consumers select the first bucket on load.
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.After(buckets[j].Date)
	})
	return buckets, warnings
}

// MergeDuplicateDays collapses buckets that carry an identical day key,
// concatenating their visit lists in encounter order. Counts are not
// touched here; callers re-derive them from the merged visit lists.
func MergeDuplicateDays(buckets []model.DailyPerformance) []model.DailyPerformance {
	seen := make(map[string]int, len(buckets))
	merged := make([]model.DailyPerformance, 0, len(buckets))
	for _, b := range buckets {
		key := b.DayKey()
		if i, dup := seen[key]; dup {
			merged[i].AllVisits = append(merged[i].AllVisits, b.AllVisits...)
			continue
		}
		seen[key] = len(merged)
		merged = append(merged, b)
	}
	return merged
}
