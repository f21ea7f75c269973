package graphhandler

import (
	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/realvalue"
)

// getOnAny performs Get against v regardless of whether v is a proxy (a
// value already crossed into this graph) or a bare RealObject (a
// pass-through value, e.g. a primordial, that was never wrapped).
func getOnAny(v any, key, receiver any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *cylinder.Proxy:
		return t.Get(key, receiver)
	case realvalue.RealObject:
		return t.Get(key, receiver)
	default:
		return nil, nil
	}
}

func hasOnAny(v any, key any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case *cylinder.Proxy:
		return t.Has(key)
	case realvalue.RealObject:
		return t.Has(key)
	default:
		return false, nil
	}
}
