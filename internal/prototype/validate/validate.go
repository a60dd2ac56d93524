// Package validate checks prototype structure before spawning: key presence,
// typeclass resolution, and the full parent chain (missing parents,
// self-parenting, cycles, base-type completeness).
//
// The walk threads one accumulator through the recursion and reports nothing
// until it returns to the caller, so every defect in the chain surfaces in a
// single pass. Hard defects come back as a *prototype.ValidationError;
// usability issues alone come back as a *Warning.
package validate

import (
	"fmt"
	"strings"

	"github.com/louisbranch/protoforge/internal/prototype"
)

// unsetKey stands in for a missing prototype_key so chain-walking can
// continue after recording the error.
const unsetKey = "[UNSET]"

// Warning reports non-fatal usability issues, such as a prototype only
// usable as a mixin. It satisfies error so callers can propagate or ignore
// it explicitly.
type Warning struct {
	Issues []string
}

func (w *Warning) Error() string {
	if w == nil || len(w.Issues) == 0 {
		return "prototype validation warning"
	}
	return "Warning: " + strings.Join(w.Issues, "\nWarning: ")
}

// Config controls one validation run.
type Config struct {
	// Pool holds every known parent candidate, keyed by lower-cased key.
	// Callers that have no pool at hand pass nil and supply one through
	// PoolFunc.
	Pool map[string]*prototype.Prototype
	// PoolFunc resolves the default pool lazily when Pool is nil. The
	// service wires this to its merged search.
	PoolFunc func() map[string]*prototype.Prototype
	// Typeclasses resolves declared typeclass names. A nil registry skips
	// the resolution check.
	Typeclasses prototype.TypeclassRegistry
	// KeyOverride names the prototype when the definition itself lacks a
	// prototype_key.
	KeyOverride string
	// AsMixin validates the prototype as a mixin fragment rather than a
	// spawn base: a missing typeclass/parent is then a warning, not an
	// error.
	AsMixin bool
}

type accumulator struct {
	visited   map[*prototype.Prototype]bool
	errors    []string
	warnings  []string
	typeclass string
}

// Prototype validates p and reports the consolidated outcome: nil on
// success, *Warning when only usability issues were found, and
// *prototype.ValidationError when the structure is defective.
func Prototype(p *prototype.Prototype, cfg Config) error {
	if p == nil {
		return prototype.NewValidationError("no prototype supplied")
	}
	pool := cfg.Pool
	if pool == nil && cfg.PoolFunc != nil {
		pool = cfg.PoolFunc()
	}
	acc := &accumulator{visited: make(map[*prototype.Prototype]bool)}
	walk(p, cfg.KeyOverride, pool, cfg, acc, 0)
	if !cfg.AsMixin && acc.typeclass == "" {
		key := effectiveKey(p, cfg.KeyOverride)
		acc.errors = append(acc.errors, fmt.Sprintf(
			"prototype %s has no typeclass defined anywhere in its parent chain; "+
				"add a typeclass or a prototype_parent pointing to a prototype with one", key))
	}
	if len(acc.errors) > 0 {
		return &prototype.ValidationError{Problems: acc.errors}
	}
	if len(acc.warnings) > 0 {
		return &Warning{Issues: acc.warnings}
	}
	return nil
}

func effectiveKey(p *prototype.Prototype, override string) string {
	if override != "" {
		return strings.ToLower(override)
	}
	if p != nil && p.Key != "" {
		return strings.ToLower(p.Key)
	}
	return unsetKey
}

// walk descends one prototype, recording problems into acc. depth tracks the
// distance from the validation root; sub-walks never report on their own.
func walk(p *prototype.Prototype, keyOverride string, pool map[string]*prototype.Prototype, cfg Config, acc *accumulator, depth int) {
	key := effectiveKey(p, keyOverride)
	if keyOverride == "" && p.Key == "" {
		acc.errors = append(acc.errors, "prototype lacks a prototype_key")
	}

	if p.Typeclass == "" && len(p.Parents) == 0 {
		if cfg.AsMixin || depth > 0 {
			acc.warnings = append(acc.warnings, fmt.Sprintf(
				"prototype %s can only be used as a mixin since it lacks a typeclass and a prototype_parent", key))
		} else {
			acc.errors = append(acc.errors, fmt.Sprintf(
				"prototype %s requires a typeclass or a prototype_parent", key))
		}
	}

	if p.Typeclass != "" && cfg.Typeclasses != nil && !cfg.Typeclasses.ResolveTypeclass(p.Typeclass) {
		acc.errors = append(acc.errors, fmt.Sprintf(
			"prototype %s is based on unknown typeclass %s", key, p.Typeclass))
	}

	// identity-based, tolerates duplicate keys on distinct definitions
	if acc.visited[p] {
		acc.errors = append(acc.errors, fmt.Sprintf("prototype %s has infinite nesting of prototypes", key))
		return
	}
	acc.visited[p] = true
	defer delete(acc.visited, p)

	for _, parentKey := range p.Parents {
		parentKey = strings.ToLower(parentKey)
		if parentKey == key {
			acc.errors = append(acc.errors, fmt.Sprintf("prototype %s tries to parent itself", key))
			continue
		}
		parent, ok := pool[parentKey]
		if !ok || parent == nil {
			acc.errors = append(acc.errors, fmt.Sprintf(
				"prototype %s's prototype_parent %q was not found", key, parentKey))
			continue
		}
		walk(parent, parentKey, pool, cfg, acc, depth+1)
	}

	if p.Typeclass != "" && acc.typeclass == "" {
		acc.typeclass = p.Typeclass
	}
}
