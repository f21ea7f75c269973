package main

import (
	"github.com/brinklayer/membrane/internal/realvalue"
)

// DemoRecord is the sample real value exposed across the demo's "wet" and
// "dry" graphs: a thin wrapper over realvalue.PlainObject so it satisfies
// the RealObject meta-object protocol without re-implementing it.
type DemoRecord struct {
	*realvalue.PlainObject
}

// NewDemoRecord builds a record with the given fields pre-populated.
func NewDemoRecord(fields map[string]any) *DemoRecord {
	o := realvalue.NewPlainObject()
	for k, v := range fields {
		o.Put(k, v)
	}
	return &DemoRecord{PlainObject: o}
}

// DemoGreeter is the sample callable real value, exercising the apply trap
// across the membrane.
type DemoGreeter struct {
	*realvalue.PlainFunction
}

// NewDemoGreeter builds a one-argument greeter: greet(name) -> "hello, name".
func NewDemoGreeter() *DemoGreeter {
	fn := realvalue.NewPlainFunction(1, func(thisArg any, args []any) (any, error) {
		name := "world"
		if len(args) > 0 {
			if s, ok := args[0].(string); ok && s != "" {
				name = s
			}
		}
		return "hello, " + name, nil
	})
	return &DemoGreeter{PlainFunction: fn}
}
