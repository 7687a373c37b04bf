package core

import (
	"encoding/json"
	"fmt"
)

// HttpMethod is the closed set of request methods a collection may hold.
type HttpMethod string

const (
	MethodGet     HttpMethod = "GET"
	MethodPost    HttpMethod = "POST"
	MethodPut     HttpMethod = "PUT"
	MethodPatch   HttpMethod = "PATCH"
	MethodDelete  HttpMethod = "DELETE"
	MethodOptions HttpMethod = "OPTIONS"
	MethodHead    HttpMethod = "HEAD"
)

// Methods returns every supported method in display order.
func Methods() []HttpMethod {
	return []HttpMethod{
		MethodGet,
		MethodPost,
		MethodPut,
		MethodPatch,
		MethodDelete,
		MethodOptions,
		MethodHead,
	}
}

// ParseMethod converts s into an HttpMethod. Matching is exact: "get" is
// rejected just like "FETCH".
func ParseMethod(s string) (HttpMethod, error) {
	for _, m := range Methods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

// String returns the wire form of the method.
func (m HttpMethod) String() string {
	return string(m)
}

// UnmarshalJSON rejects methods outside the supported set.
func (m *HttpMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: method must be a string", ErrParse)
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
