// Package resolve turns raw prototype attribute values into the values
// applied at entity construction time.
//
// A raw value, after protofunction parsing, falls into exactly one of three
// shapes: a literal, a zero-argument deferred computation, or a computation
// bundled with positional arguments. The shapes form a closed variant so
// resolution is an exhaustive switch, not runtime type guessing.
package resolve

import (
	"context"
	"fmt"

	"github.com/louisbranch/protoforge/internal/prototype/protofunc"
)

// Thunk is a deferred spawn-time computation. Resolution calls it with the
// positional arguments bundled alongside it (none for the zero-argument
// form).
type Thunk func(args ...any) (any, error)

// Kind discriminates the spawn-value variant.
type Kind int

const (
	// KindLiteral is a plain value applied as-is.
	KindLiteral Kind = iota
	// KindThunk is a zero-argument deferred computation.
	KindThunk
	// KindThunkWithArgs is a computation with positional arguments.
	KindThunkWithArgs
)

// SpawnValue is a classified attribute value.
type SpawnValue struct {
	Kind    Kind
	Literal any
	Thunk   Thunk
	Args    []any
}

// Validator checks (and may coerce) a resolved value. Errors propagate to
// the caller unmodified.
type Validator func(value any) (any, error)

// Classify sorts an already-parsed value into the spawn-value variant: a
// Thunk is a deferred call, a non-empty sequence whose first element is a
// Thunk is a call with the remainder as arguments, anything else is literal.
func Classify(value any) SpawnValue {
	switch v := value.(type) {
	case Thunk:
		return SpawnValue{Kind: KindThunk, Thunk: v}
	case func(args ...any) (any, error):
		return SpawnValue{Kind: KindThunk, Thunk: v}
	case []any:
		if len(v) > 0 {
			if thunk, ok := asThunk(v[0]); ok {
				return SpawnValue{Kind: KindThunkWithArgs, Thunk: thunk, Args: v[1:]}
			}
		}
		return SpawnValue{Kind: KindLiteral, Literal: value}
	default:
		return SpawnValue{Kind: KindLiteral, Literal: value}
	}
}

func asThunk(value any) (Thunk, bool) {
	switch v := value.(type) {
	case Thunk:
		return v, true
	case func(args ...any) (any, error):
		return v, true
	default:
		return nil, false
	}
}

// Eval executes the spawn value and applies the validator to the outcome.
func (v SpawnValue) Eval(validator Validator) (any, error) {
	var result any
	switch v.Kind {
	case KindThunk:
		value, err := v.Thunk()
		if err != nil {
			return nil, err
		}
		result = value
	case KindThunkWithArgs:
		value, err := v.Thunk(v.Args...)
		if err != nil {
			return nil, err
		}
		result = value
	case KindLiteral:
		result = v.Literal
	default:
		return nil, fmt.Errorf("unknown spawn value kind %d", v.Kind)
	}
	if validator == nil {
		return result, nil
	}
	return validator(result)
}

// Spawn parses one raw attribute value through the protofunction
// registry, classifies it, executes any deferred computation, and validates
// the final value. Repeated calls re-run callables; nothing is memoized.
func Spawn(ctx context.Context, registry *protofunc.Registry, raw any, proto map[string]any, key string, validator Validator) (any, error) {
	parsed := raw
	if registry != nil {
		parsed = registry.Parse(protofunc.CallContext{
			Context:   ctx,
			Prototype: proto,
			Key:       key,
		}, raw)
	}
	return Classify(parsed).Eval(validator)
}
