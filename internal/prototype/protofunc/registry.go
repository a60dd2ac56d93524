package protofunc

import (
	"context"
	"sort"
)

// ObjFunc is the reserved reference-resolving function; bare #N tokens are
// rewritten into calls to it before parsing.
const ObjFunc = "obj"

// CallContext carries per-parse state into protofunctions.
type CallContext struct {
	Context context.Context
	// Prototype is the map form of the prototype the value belongs to.
	Prototype map[string]any
	// Key is the attribute key whose value is being parsed.
	Key string
	// Testing marks diagnostic runs; functions with side effects may stub
	// themselves out when set.
	Testing bool
}

// Func is a named protofunction. Arguments arrive as strings with nested
// calls already evaluated; the return value replaces the call in the parsed
// output.
type Func func(call CallContext, args ...string) (any, error)

// Registry maps protofunction names to callables. Registration order
// matters only for collisions: the last registration wins, matching
// last-module-wins semantics for configured function modules.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces a named function.
func (r *Registry) Register(name string, fn Func) {
	if name == "" || fn == nil {
		return
	}
	r.funcs[name] = fn
}

// RegisterAll adds every function in funcs, replacing earlier names.
func (r *Registry) RegisterAll(funcs map[string]Func) {
	for name, fn := range funcs {
		r.Register(name, fn)
	}
}

// Lookup returns the named function.
func (r *Registry) Lookup(name string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
