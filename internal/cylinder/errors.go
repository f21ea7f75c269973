package cylinder

import "errors"

// Error kinds from spec.md §7, scoped to cylinder lookups and mutation.
var (
	ErrDeadGraph      = errors.New("cylinder: dead graph")
	ErrUnknownGraph   = errors.New("cylinder: unknown graph")
	ErrOriginalNotSet = errors.New("cylinder: original value not set")
	ErrDuplicateGraph = errors.New("cylinder: duplicate graph")
	ErrValidation     = errors.New("cylinder: validation failure")
)
