package rollup

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is the sentinel kind for a checkout timestamp that
// precedes its check-in.
var ErrInvalidInterval = errors.New("invalid on-site interval")

// InvalidIntervalError identifies the offending visit and timestamps so
// callers can report a data error distinctly from "no interval".
type InvalidIntervalError struct {
	VisitID  int64
	CheckIn  time.Time
	Checkout time.Time
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid on-site interval for visit %d: checkout %s precedes check-in %s",
		e.VisitID, e.Checkout.Format(time.RFC3339), e.CheckIn.Format(time.RFC3339))
}

// Unwrap links the error to the ErrInvalidInterval sentinel.
func (e *InvalidIntervalError) Unwrap() error {
	return ErrInvalidInterval
}
