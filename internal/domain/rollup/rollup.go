// Package rollup computes completion metrics for day buckets.
//
// All functions are pure: counts and rate are recomputed from the visit
// list every time so a stale cached rate can never disagree with the
// underlying counts.
package rollup

import (
	"fmt"
	"time"

	"github.com/fieldray/kanvass/internal/domain/model"
)

// Compute returns a copy of bucket with CompletedVisits, TotalCount,
// CompletedCount and CompletionRate filled in. A visit counts as completed
// on its resolved status alone; check-in/checkout timestamps are
// informational and never imply completion.
func Compute(bucket model.DailyPerformance) model.DailyPerformance {
	completed := make([]model.VisitRecord, 0, len(bucket.AllVisits))
	for _, v := range bucket.AllVisits {
		if v.Status == model.StatusCompleted {
			completed = append(completed, v)
		}
	}

	bucket.CompletedVisits = completed
	bucket.TotalCount = len(bucket.AllVisits)
	bucket.CompletedCount = len(completed)
	if bucket.TotalCount > 0 {
		bucket.CompletionRate = float64(bucket.CompletedCount) / float64(bucket.TotalCount)
	} else {
		// Exactly zero for an empty bucket, never NaN.
		bucket.CompletionRate = 0
	}
	return bucket
}

// Summarize reduces a set of day buckets into rep-level overall stats.
// The rate is the ratio of summed counts; averaging per-day rates would
// misweight low-volume days.
func Summarize(buckets []model.DailyPerformance) model.RepSummary {
	s := model.RepSummary{Days: len(buckets)}
	for i := range buckets {
		b := Compute(buckets[i])
		s.TotalVisits += b.TotalCount
		s.CompletedTotal += b.CompletedCount
	}
	if s.TotalVisits > 0 {
		s.CompletionRate = float64(s.CompletedTotal) / float64(s.TotalVisits)
	}
	return s
}

// ElapsedOnSite returns the on-site duration between a visit's check-in
// and checkout. ok is false when either timestamp is missing (no interval,
// not an error). A checkout earlier than check-in is invalid input and
// yields ErrInvalidInterval rather than a clamped or negative duration.
func ElapsedOnSite(v model.VisitRecord) (time.Duration, bool, error) {
	if v.CheckInTime == nil || v.CheckoutTime == nil {
		return 0, false, nil
	}
	d := v.CheckoutTime.Sub(*v.CheckInTime)
	if d < 0 {
		return 0, false, &InvalidIntervalError{
			VisitID:  v.ID,
			CheckIn:  *v.CheckInTime,
			Checkout: *v.CheckoutTime,
		}
	}
	return d, true, nil
}

// ElapsedLabel formats ElapsedOnSite for display. It returns "" when no
// interval is available and reports an invalid interval so callers can
// show a data error instead of a blank field.
func ElapsedLabel(v model.VisitRecord) (string, error) {
	d, ok, err := ElapsedOnSite(v)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return FormatElapsed(d), nil
}

// FormatElapsed renders a duration as hours and minutes, e.g. "1h 23m",
// or just minutes when under an hour, e.g. "45m".
func FormatElapsed(d time.Duration) string {
	minutes := int(d.Minutes())
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
