package remote

import (
	"errors"
	"fmt"
)

// Sentinel kinds for collaborator errors.
var (
	ErrSource   = errors.New("visit-record source request failed")
	ErrMutation = errors.New("status mutation request failed")
)

// SourceError reports a failed batch fetch for one representative.
type SourceError struct {
	RepID      string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source fetch for rep %s failed: %v", e.RepID, e.Err)
	}
	return fmt.Sprintf("source fetch for rep %s failed: status %d", e.RepID, e.StatusCode)
}

// Unwrap links the error to the ErrSource sentinel and its cause.
func (e *SourceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSource, e.Err}
	}
	return []error{ErrSource}
}

// MutationError reports a failed or non-2xx status mutation.
type MutationError struct {
	VisitID    int64
	StatusCode int
	Err        error
}

func (e *MutationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status mutation for visit %d failed: %v", e.VisitID, e.Err)
	}
	return fmt.Sprintf("status mutation for visit %d failed: status %d", e.VisitID, e.StatusCode)
}

// Unwrap links the error to the ErrMutation sentinel and its cause.
func (e *MutationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMutation, e.Err}
	}
	return []error{ErrMutation}
}
