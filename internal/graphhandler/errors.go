package graphhandler

import "errors"

// ErrTrapDisabled is returned when disableTraps has turned off the trap
// being invoked for this proxy (spec.md §7 TrapDisabled).
var ErrTrapDisabled = errors.New("graphhandler: trap disabled")

// ErrRevoked is returned by every trap once the handler's graph, or the
// target's origin graph, has been revoked (spec.md §7 Revoked).
var ErrRevoked = errors.New("graphhandler: proxy is revoked")

// ErrUnknownShadow is returned when a shadow target cannot be resolved back
// to a cylinder; this indicates a bug in the engine, never caller error.
var ErrUnknownShadow = errors.New("graphhandler: shadow target has no cylinder")

// ErrRuleConflict mirrors spec.md §7 RuleConflict.
var ErrRuleConflict = errors.New("graphhandler: rule conflict")

// shadowInvariant is raised when a reconciliation step would violate a
// host-language proxy invariant pinned onto the shadow.
var shadowInvariant = errors.New("graphhandler: shadow invariant violation")

func errIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
