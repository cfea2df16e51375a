package fieldtype

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
)

// Registry maps type names to factories. Register everything before the
// registry is shared with contexts; after that it is only read.
type Registry struct {
	types map[string]TypeInfo
	mu    sync.RWMutex
}

// NewRegistry returns a registry with every built-in type.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	registerBuiltins(r)
	return r
}

func NewEmptyRegistry() *Registry {
	return &Registry{types: make(map[string]TypeInfo)}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default is the process-wide built-in registry shared by contexts that do not bring their own.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Register adds or replaces a type. Names are case-insensitive.
func (r *Registry) Register(name string, factory FactoryFn, requires ir.CtxOpt) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	r.types[key] = TypeInfo{Name: key, Factory: factory, Requires: requires}
	return r
}

// Lookup resolves typeName under opts.
func (r *Registry) Lookup(typeName string, opts ir.CtxOpt) (*Extractor, error) {
	r.mu.RLock()
	info, ok := r.types[strings.ToLower(typeName)]
	r.mu.RUnlock()
	if !ok {
		return nil, &ir.FieldTypeError{Type: typeName, Err: ir.ErrUnknownFieldType}
	}
	if info.Requires != 0 && !opts.Has(info.Requires) {
		return nil, &ir.FieldTypeError{Type: typeName, Err: ir.ErrDisabledFieldType}
	}
	return &Extractor{info: info}, nil
}

// CompileField resolves and compiles a placeholder in one step.
func (r *Registry) CompileField(f ir.Field, opts ir.CtxOpt) (ExtractFn, error) {
	ex, err := r.Lookup(f.Type, opts)
	if err != nil {
		return nil, err
	}
	fn, err := ex.Compile(f.RawParams)
	if err != nil {
		return nil, fmt.Errorf("field %q of type %s: %w", f.Name, f.Type, err)
	}
	return fn, nil
}

func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[strings.ToLower(typeName)]
	return ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for k := range r.types {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
