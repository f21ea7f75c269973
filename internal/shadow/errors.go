package shadow

import "errors"

// ErrInvariantViolation is returned when a shadow mutation would break an
// ECMAScript-style proxy invariant (spec.md §7 InvariantViolation).
var ErrInvariantViolation = errors.New("shadow: invariant violation")
