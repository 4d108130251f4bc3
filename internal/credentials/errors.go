package credentials

import "errors"

var (
	// ErrInvalidPair is returned when a pair violates the length limits.
	ErrInvalidPair = errors.New("credentials: invalid pair")

	// ErrReadOnly is returned when Put or Clear is called inside View.
	ErrReadOnly = errors.New("credentials: handle is read-only")
)
