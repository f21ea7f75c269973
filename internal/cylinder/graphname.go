package cylinder

import (
	"fmt"
	"sync/atomic"
)

// GraphName identifies one object graph. It is string-backed, matching
// spec.md §3's "named namespace (identifier: string or opaque symbol)", but
// NewAnonymousGraph covers the opaque-symbol case for callers that want a
// collision-proof identity instead of a human-chosen string.
type GraphName string

var anonymousSeq atomic.Uint64

// NewAnonymousGraph returns a GraphName guaranteed not to collide with any
// other name minted by this process, the Go stand-in for an opaque symbol.
func NewAnonymousGraph(hint string) GraphName {
	n := anonymousSeq.Add(1)
	if hint == "" {
		hint = "graph"
	}
	return GraphName(fmt.Sprintf("%s#%d", hint, n))
}
