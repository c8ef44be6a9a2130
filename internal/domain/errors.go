package domain

import "errors"

var (
	// ErrUnsupportedURL marks article URLs and sources no provider handles.
	ErrUnsupportedURL = errors.New("unsupported article url")
	// ErrNotFound marks articles the provider does not know.
	ErrNotFound = errors.New("article not found")
	// ErrInvalidQuery marks empty or malformed search requests.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrFeatureDisabled is returned when an optional backend is not configured.
	ErrFeatureDisabled = errors.New("feature is not configured")
)
