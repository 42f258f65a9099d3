// Package types contains common types used across the application
package types

// Payload is the key/value mapping carried by /get and /set.
type Payload map[string]any

// Keys returns the payload keys in no particular order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}

// Envelope is the response body of a persistence call. Clients read Data
// and ignore everything else.
type Envelope struct {
	Data any `json:"data"`
}

// ErrorBody is returned on failed requests. It has no data field, so
// clients resolve it to nil.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
