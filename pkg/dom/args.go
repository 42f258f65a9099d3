package dom

import "fmt"

// ResolveArgs applies the shorthand argument rule shared by every query
// backend. With one argument, target is the selector and scoped is false so
// the caller searches its default root. With a non-empty second argument,
// target is the search root of type N and selector[0] is the selector.
func ResolveArgs[N any](target any, selector ...string) (root N, sel string, scoped bool, err error) {
	if len(selector) > 1 {
		return root, "", false, fmt.Errorf("%w: want at most 2 arguments, got %d", ErrInvalidArgs, len(selector)+1)
	}

	if len(selector) == 1 && selector[0] != "" {
		if target == nil {
			return root, "", false, ErrNilRoot
		}
		r, ok := target.(N)
		if !ok {
			return root, "", false, fmt.Errorf("%w: root must be %T, got %T", ErrInvalidArgs, root, target)
		}
		return r, selector[0], true, nil
	}

	s, ok := target.(string)
	if !ok {
		return root, "", false, fmt.Errorf("%w: selector must be a string, got %T", ErrInvalidArgs, target)
	}
	return root, s, false, nil
}
