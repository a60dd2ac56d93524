package prototype

// TypeclassRegistry resolves typeclass names against the set of known runtime
// base types. The construction side of a typeclass is outside this engine;
// validation only needs existence.
type TypeclassRegistry interface {
	ResolveTypeclass(name string) bool
}

// TypeclassSet is a TypeclassRegistry backed by a fixed name set.
type TypeclassSet map[string]bool

// ResolveTypeclass reports whether name is a known base type.
func (s TypeclassSet) ResolveTypeclass(name string) bool {
	return s[name]
}
