package transition

import (
	"errors"
	"fmt"

	"github.com/fieldray/kanvass/internal/domain/model"
)

// Sentinel kinds for transition errors.
var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrInFlight          = errors.New("transition already in flight")
	ErrRemoteMutation    = errors.New("remote status mutation failed")
	ErrBackpressure      = errors.New("transition queue full")
)

// IllegalTransitionError names the current and requested states.
type IllegalTransitionError struct {
	VisitID int64
	From    model.Status
	To      model.Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// Unwrap links the error to the ErrIllegalTransition sentinel.
func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// InFlightError reports a visit that already has an unresolved request.
type InFlightError struct {
	VisitID int64
}

func (e *InFlightError) Error() string {
	return fmt.Sprintf("visit %d already has a transition in flight", e.VisitID)
}

// Unwrap links the error to the ErrInFlight sentinel.
func (e *InFlightError) Unwrap() error {
	return ErrInFlight
}

// RemoteMutationError reports a failed or timed-out remote call. By the
// time callers see it, the local optimistic update has been reverted.
type RemoteMutationError struct {
	VisitID int64
	To      model.Status
	Err     error
}

func (e *RemoteMutationError) Error() string {
	return fmt.Sprintf("remote mutation to %s failed for visit %d: %v", e.To, e.VisitID, e.Err)
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *RemoteMutationError) Unwrap() []error {
	return []error{ErrRemoteMutation, e.Err}
}
