package membrane

import "errors"

// Error kinds from spec.md §7. Several trap-level failures are defined in
// their owning packages (cylinder, graphhandler, rules, shadow) and
// propagate through membrane operations unwrapped; the sentinels below are
// specific to operations the facade itself performs.
var (
	// ErrPrimitiveWrap is returned when a caller attempts to wrap or bind a
	// primitive where an object was required.
	ErrPrimitiveWrap = errors.New("membrane: cannot wrap or bind a primitive value")

	// ErrGraphOwnershipViolation is returned when a proxy/handler pair does
	// not belong to this membrane.
	ErrGraphOwnershipViolation = errors.New("membrane: proxy or handler does not belong to this membrane")

	// ErrValidationFailure mirrors spec.md §7 ValidationFailure: a
	// non-function listener, a bad argument type, and similar contract
	// violations.
	ErrValidationFailure = errors.New("membrane: validation failure")

	// ErrUnknownGraph is returned by GetHandlerByName when mustCreate is
	// false and the graph has never been registered.
	ErrUnknownGraph = errors.New("membrane: unknown graph")

	// ErrGraphAlreadyRegistered guards RegisterGraph against silently
	// re-admitting an already-registered graph.
	ErrGraphAlreadyRegistered = errors.New("membrane: graph already registered")
)
