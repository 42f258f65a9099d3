package loadcheck

import "errors"

// Sentinel kinds for check failures.
var (
	ErrUnhealthy = errors.New("service unhealthy")
	ErrMismatch  = errors.New("read-back mismatch")
	ErrFailed    = errors.New("requests failed")
)
