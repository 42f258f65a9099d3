package dom

import "errors"

// Sentinel kinds for query errors.
var (
	ErrInvalidSelector = errors.New("invalid selector")
	ErrInvalidArgs     = errors.New("invalid query arguments")
	ErrNilRoot         = errors.New("search root is nil")
	ErrNoBody          = errors.New("document has no body element")
)
