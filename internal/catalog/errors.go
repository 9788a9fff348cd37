package catalog

import "errors"

var (
	// ErrInvalidFilter marks malformed search input supplied by the caller.
	ErrInvalidFilter = errors.New("invalid card filter")
	// ErrUpstreamUnavailable marks catalog failures: 5xx, transport errors,
	// an open circuit or an unexpected payload.
	ErrUpstreamUnavailable = errors.New("card catalog unavailable")
)
