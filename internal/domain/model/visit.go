// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the resolved workflow state of a visit.
type Status int

// Workflow states. Pending is the initial state; Completed and Cancelled
// are terminal.
const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
	StatusCancelled
)

// legacyCompletedCode is the historical duplicate of the completed code.
// Source data encodes completion as either 2 or 3; both resolve to
// StatusCompleted and the raw code is preserved on the record.
const legacyCompletedCode = 3

// String returns the symbolic name used on the wire.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalJSON emits the symbolic form.
func (s Status) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(s.String())
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return b, nil
}

// Terminal reports whether no transition is defined out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus resolves a symbolic status name.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "pending":
		return StatusPending, nil
	case "in_progress", "inprogress", "in-progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return StatusPending, fmt.Errorf("unknown status %q", v)
	}
}

// ResolveStatusCode maps a legacy integer status code (0-3) to its
// symbolic status. Codes >= 2 both mean completed; callers keep the raw
// code alongside the resolved status so the distinction is not lost.
func ResolveStatusCode(code int) (Status, error) {
	switch {
	case code == 0:
		return StatusPending, nil
	case code == 1:
		return StatusInProgress, nil
	case code == 2 || code == legacyCompletedCode:
		return StatusCompleted, nil
	default:
		return StatusPending, fmt.Errorf("unknown status code %d", code)
	}
}

// ResolveStatus decodes a status field as it arrives from source data:
// either a legacy integer code or a symbolic string. The returned raw
// code is non-nil only for the integer form.
func ResolveStatus(v any) (Status, *int, error) {
	switch t := v.(type) {
	case nil:
		return StatusPending, nil, nil
	case float64: // JSON numbers decode as float64
		code := int(t)
		st, err := ResolveStatusCode(code)
		if err != nil {
			return StatusPending, nil, err
		}
		return st, &code, nil
	case int:
		st, err := ResolveStatusCode(t)
		if err != nil {
			return StatusPending, nil, err
		}
		return st, &t, nil
	case string:
		st, err := ParseStatus(t)
		if err != nil {
			return StatusPending, nil, err
		}
		return st, nil, nil
	default:
		return StatusPending, nil, fmt.Errorf("unsupported status type %T", v)
	}
}

// VisitRecord is one planned client visit by one representative
// (a "journey plan" entry). The engine never creates or deletes records;
// it re-derives aggregates from them and requests status mutations.
type VisitRecord struct {
	ID       int64  `json:"id"`
	RepID    string `json:"rep_id"`
	ClientID string `json:"client_id"`

	// Denormalized display names, opaque to the engine.
	RepName    string `json:"rep_name,omitempty"`
	ClientName string `json:"client_name,omitempty"`
	RouteName  string `json:"route_name,omitempty"`

	// ScheduledDate is kept in its raw textual encoding; grouping always
	// goes through the normalizer.
	ScheduledDate string `json:"scheduled_date"`
	// ScheduledTime is display-only and never used in aggregation.
	ScheduledTime string `json:"scheduled_time,omitempty"`

	Status Status `json:"status"`
	// RawStatusCode preserves the legacy integer code (2 vs 3) when the
	// record arrived with one.
	RawStatusCode *int `json:"raw_status_code,omitempty"`

	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckoutTime *time.Time `json:"checkout_time,omitempty"`

	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	CheckoutLatitude  *float64 `json:"checkout_latitude,omitempty"`
	CheckoutLongitude *float64 `json:"checkout_longitude,omitempty"`

	Notes string `json:"notes,omitempty"`
}

// DailyPerformance is the derived aggregate for one representative on one
// canonical day. Counts and rate are always recomputed from AllVisits,
// never stored independently.
type DailyPerformance struct {
	// Date is the canonical day at midnight UTC.
	Date            time.Time     `json:"date"`
	AllVisits       []VisitRecord `json:"all_visits"`
	CompletedVisits []VisitRecord `json:"completed_visits"`
	TotalCount      int           `json:"total_count"`
	CompletedCount  int           `json:"completed_count"`
	CompletionRate  float64       `json:"completion_rate"`
}

// DayKey returns the grouping key for the bucket's canonical day.
func (d DailyPerformance) DayKey() string {
	return d.Date.Format("2006-01-02")
}

// Marker is the minimal projection of a completed, geotagged visit handed
// to the external map renderer. Viewport math is the renderer's concern.
type Marker struct {
	ID            int64      `json:"id"`
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	Label         string     `json:"label"`
	CheckInTime   *time.Time `json:"check_in_time,omitempty"`
	CheckoutTime  *time.Time `json:"checkout_time,omitempty"`
	ElapsedOnSite string     `json:"elapsed_on_site,omitempty"`
}

// RepSummary is the second-order reduction over a set of day buckets used
// for rep-level summary cards: ratio of sums, not an average of per-day
// rates.
type RepSummary struct {
	Days           int     `json:"days"`
	TotalVisits    int     `json:"total_visits"`
	CompletedTotal int     `json:"completed_visits"`
	CompletionRate float64 `json:"completion_rate"`
}
