package httpcache

import "errors"

// ErrNoDateHeader indicates that the HTTP headers contained no Date header.
var ErrNoDateHeader = errors.New("httpcache: no Date header")

// ErrInvariantViolation is wrapped around errors surfaced when a stored
// record is found to violate one of the data-model invariants (e.g. a
// Vary: * record, or a metadata record with no backing content entry that
// cannot be safely treated as a simple miss). These are programming errors
// in a cache backend, not ordinary cache-absence conditions.
var ErrInvariantViolation = errors.New("httpcache: cache invariant violation")
