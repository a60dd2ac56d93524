package protofunc

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/louisbranch/protoforge/internal/objref"
)

// BuiltinConfig wires the default protofunctions. Nil random funcs fall back
// to math/rand; tests inject fixed ones.
type BuiltinConfig struct {
	Resolver objref.Resolver
	IntN     func(n int) int
	Float    func() float64
}

// Builtins returns the stock protofunction set:
//
//	$obj(#N)         resolve an object reference to an entity handle
//	$random()        uniform float in [0, 1)
//	$randint(a, b)   uniform integer in [a, b]
//	$choice(a, b, c) pick one argument at random
//	$key()           the attribute key this value is stored under
func Builtins(cfg BuiltinConfig) map[string]Func {
	intN := cfg.IntN
	if intN == nil {
		intN = rand.IntN
	}
	float := cfg.Float
	if float == nil {
		float = rand.Float64
	}
	return map[string]Func{
		ObjFunc: func(call CallContext, args ...string) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("expected one object reference, got %d args", len(args))
			}
			id, ok := objref.ParseRef(strings.TrimSpace(args[0]))
			if !ok {
				return nil, fmt.Errorf("%q is not an object reference", args[0])
			}
			if cfg.Resolver == nil {
				return nil, fmt.Errorf("no object resolver configured")
			}
			entity, found := cfg.Resolver.Resolve(id)
			if !found {
				return nil, fmt.Errorf("object #%s not found", id)
			}
			return entity, nil
		},
		"random": func(call CallContext, args ...string) (any, error) {
			return float(), nil
		},
		"randint": func(call CallContext, args ...string) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("expected two bounds, got %d args", len(args))
			}
			low, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return nil, fmt.Errorf("lower bound: %w", err)
			}
			high, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return nil, fmt.Errorf("upper bound: %w", err)
			}
			if high < low {
				return nil, fmt.Errorf("bounds out of order: %d > %d", low, high)
			}
			return low + intN(high-low+1), nil
		},
		"choice": func(call CallContext, args ...string) (any, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("nothing to choose from")
			}
			return strings.TrimSpace(args[intN(len(args))]), nil
		},
		"key": func(call CallContext, args ...string) (any, error) {
			return call.Key, nil
		},
	}
}
