package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrClosed         = errors.New("store closed")
	ErrEmptyKey       = errors.New("empty key")
	ErrPathRequired   = errors.New("store path required")
)
