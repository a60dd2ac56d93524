// Package objref resolves object-reference identifiers (#123 style) into
// entity handles and coerces nested data structures into entity form.
package objref

import (
	"regexp"
	"strconv"
)

// Entity is a handle to a constructed runtime entity. Construction itself is
// outside this engine; the handle only needs identity.
type Entity interface {
	ID() string
}

// Resolver looks up an entity by identifier. A missing entity resolves to
// (nil, false).
type Resolver interface {
	Resolve(id string) (Entity, bool)
}

var refPattern = regexp.MustCompile(`^#?[0-9]+$`)

// ParseRef extracts the numeric identifier from a reference token such as
// "#12" or "12". It returns false when the value is not a reference.
func ParseRef(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		if !refPattern.MatchString(v) {
			return "", false
		}
		if v[0] == '#' {
			return v[1:], true
		}
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return "", false
	default:
		return "", false
	}
}

// ToEntity coerces every leaf of value into an entity handle. Leaves that are
// not valid identifiers, or that do not resolve, become nil. Container shape
// is preserved: sequences stay sequences, mappings stay mappings, and mapping
// keys are coerced as well.
func ToEntity(value any, resolver Resolver) any {
	return coerce(value, resolver, true)
}

// ToEntityOrKeep coerces every leaf of value into an entity handle when the
// leaf looks like a valid identifier and an entity exists; otherwise the
// original leaf is kept.
func ToEntityOrKeep(value any, resolver Resolver) any {
	return coerce(value, resolver, false)
}

func coerce(value any, resolver Resolver, strict bool) any {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = coerce(item, resolver, strict)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = coerce(item, resolver, strict)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for key, item := range v {
			out[coerce(key, resolver, strict)] = coerce(item, resolver, strict)
		}
		return out
	default:
		return leaf(v, resolver, strict)
	}
}

func leaf(value any, resolver Resolver, strict bool) any {
	id, ok := ParseRef(value)
	if !ok {
		if strict {
			return nil
		}
		return value
	}
	if resolver != nil {
		if entity, found := resolver.Resolve(id); found {
			return entity
		}
	}
	if strict {
		return nil
	}
	return value
}
