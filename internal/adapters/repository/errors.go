package repository

import "errors"

// Sentinel kinds for visit store errors.
var (
	ErrNotFound       = errors.New("visit not found")
	ErrStatusConflict = errors.New("visit status conflict")
)
