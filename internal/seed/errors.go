package seed

import "errors"

var (
	// ErrInvalidFixture is returned when a fixture cannot be used.
	ErrInvalidFixture = errors.New("invalid fixture")
	// ErrServiceUnavailable is returned when the server fails its health check.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrMismatch is returned when served awards disagree with the fixture.
	ErrMismatch = errors.New("award mismatch")
)
