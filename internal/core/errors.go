package core

import "errors"

// Error taxonomy shared by every layer. Callers match with errors.Is; the
// wrapping layer adds context with fmt.Errorf("...: %w", err).
var (
	// ErrParse reports malformed import JSON or a malformed persisted blob.
	ErrParse = errors.New("parse error")

	// ErrPersistence reports a failure of the underlying store.
	ErrPersistence = errors.New("persistence error")

	// ErrNetwork reports an HTTP dispatch failure.
	ErrNetwork = errors.New("network error")

	// ErrUnsupportedResponse reports a content type that cannot be
	// classified. It is logged, never returned: classification degrades to
	// ResponseUnknown instead.
	ErrUnsupportedResponse = errors.New("unsupported response type")

	// ErrNotFound reports a missing collection, folder, request or row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidMethod reports an HTTP method outside the supported set.
	ErrInvalidMethod = errors.New("invalid http method")
)
