package fieldtype

// Core type definitions for the field-type registry.

import (
	"errors"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
)

// ExtractFn tries to consume one value starting at offset.
// n is the number of bytes consumed; ok=false means no match at this position.
// Implementations must be pure: same input, same output, no shared mutable state.
type ExtractFn func(line string, offset int) (n int, v ir.Value, ok bool)

// FactoryFn compiles the raw params of a placeholder into an ExtractFn.
// It is called once per distinct placeholder at load time.
type FactoryFn func(rawParams string) (ExtractFn, error)

// ErrInvalidParams is wrapped by factories that reject their params.
var ErrInvalidParams = errors.New("invalid field params")

// TypeInfo describes one registered field type.
type TypeInfo struct {
	Name    string
	Factory FactoryFn
	// Requires lists context options that must be set to use the type.
	Requires ir.CtxOpt
}

// Extractor is a field type resolved for a given set of context options.
type Extractor struct {
	info TypeInfo
}

func (e *Extractor) Type() string { return e.info.Name }

// Compile binds args to the extractor.
func (e *Extractor) Compile(args string) (ExtractFn, error) {
	return e.info.Factory(args)
}

// TryExtract compiles args and runs one extraction. Hot paths should Compile once instead.
func (e *Extractor) TryExtract(line string, offset int, args string) (int, ir.Value, bool) {
	if offset < 0 || offset > len(line) {
		return 0, ir.Value{}, false
	}
	fn, err := e.info.Factory(args)
	if err != nil {
		return 0, ir.Value{}, false
	}
	return fn(line, offset)
}
