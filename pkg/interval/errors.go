package interval

import "errors"

var (
	// ErrNonPositiveLength is returned when an interval length is zero or negative.
	ErrNonPositiveLength = errors.New("interval length must be greater than zero")

	// ErrUnknownUnit is returned when an interval unit is not a supported calendar unit.
	ErrUnknownUnit = errors.New("unknown interval unit")
)
