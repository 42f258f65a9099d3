package persist

import "errors"

// Sentinel kinds for persist errors. Errors returned by the client match
// both the kind and the underlying cause with errors.Is.
var (
	ErrEncode    = errors.New("encode payload failed")
	ErrTransport = errors.New("request failed")
	ErrDecode    = errors.New("decode response failed")
)

// Error carries the failed operation and its kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind without a cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns an error of the given kind wrapping err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
