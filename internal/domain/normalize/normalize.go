// Package normalize canonicalizes raw scheduled-date encodings into
// calendar days used as grouping keys.
//
// Source data is inconsistent: the same field may arrive as a bare date
// ("2025-03-14"), an ISO datetime ("2025-03-14T09:30:00Z"), or a
// space-separated datetime ("2025-03-14 09:30:00"). Grouping must be
// timezone-naive: any embedded time-of-day or offset is discarded.
package normalize

import (
	"strings"
	"time"
)

// dayLayout is the canonical calendar-day encoding.
const dayLayout = "2006-01-02"

// Day extracts the canonical calendar day from a raw scheduled-date value.
// The date portion is everything before the first 'T' or space; the result
// is midnight UTC of that day. A value whose date portion does not parse
// into a valid calendar date yields a MalformedDateError; callers exclude
// the record and continue the batch.
func Day(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, &MalformedDateError{Raw: raw}
	}
	day, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &MalformedDateError{Raw: raw, Err: err}
	}
	return day, nil
}

// Key returns the canonical day formatted as a grouping key.
func Key(raw string) (string, error) {
	day, err := Day(raw)
	if err != nil {
		return "", err
	}
	return day.Format(dayLayout), nil
}

// FormatDay renders a canonical day back into its key form.
func FormatDay(day time.Time) string {
	return day.Format(dayLayout)
}
