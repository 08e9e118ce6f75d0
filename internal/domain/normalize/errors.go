package normalize

import (
	"errors"
	"fmt"
)

// ErrMalformedDate is the sentinel kind for unparseable scheduled dates.
// Use errors.Is against this and errors.As for the carrying type.
var ErrMalformedDate = errors.New("malformed scheduled date")

// MalformedDateError carries the offending raw value so callers can
// surface a per-record warning without aborting the batch.
type MalformedDateError struct {
	Raw string
	Err error
}

func (e *MalformedDateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed scheduled date %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("malformed scheduled date %q", e.Raw)
}

// Unwrap links the error to the ErrMalformedDate sentinel.
func (e *MalformedDateError) Unwrap() error {
	return ErrMalformedDate
}
