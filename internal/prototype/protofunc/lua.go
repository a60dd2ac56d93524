package protofunc

import (
	"fmt"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/protoforge/internal/luaconv"
)

const luaFuncTable = "__protofuncs"

// LuaModule exposes the functions of one Lua source file as protofunctions.
// The file must return a table mapping function names to functions:
//
//	return {
//	    shout = function(text) return string.upper(text) .. "!" end,
//	}
//
// Arguments cross into Lua as strings; return values come back as nil,
// booleans, numbers, strings, or (possibly nested) tables decoded into
// sequences and mappings.
type LuaModule struct {
	mu    sync.Mutex // lua.State is not safe for concurrent use
	state *lua.State
	names []string
}

// LoadLuaModule runs the Lua file at path and collects its exported
// functions.
func LoadLuaModule(path string) (*LuaModule, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua module %s: %w", path, err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua module %s: %w", path, err)
	}
	if state.TypeOf(-1) != lua.TypeTable {
		state.Pop(1)
		return nil, fmt.Errorf("lua module %s must return a table of functions", path)
	}

	module := &LuaModule{state: state}
	state.PushNil()
	for state.Next(-2) {
		if state.TypeOf(-2) == lua.TypeString && state.TypeOf(-1) == lua.TypeFunction {
			if name, ok := state.ToString(-2); ok {
				module.names = append(module.names, name)
			}
		}
		state.Pop(1)
	}
	state.SetGlobal(luaFuncTable)
	return module, nil
}

// Names lists the exported function names.
func (m *LuaModule) Names() []string {
	return append([]string(nil), m.names...)
}

// Funcs returns the exported functions keyed by name, ready for
// Registry.RegisterAll.
func (m *LuaModule) Funcs() map[string]Func {
	funcs := make(map[string]Func, len(m.names))
	for _, name := range m.names {
		funcs[name] = m.call(name)
	}
	return funcs
}

func (m *LuaModule) call(name string) Func {
	return func(call CallContext, args ...string) (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.state.Global(luaFuncTable)
		m.state.Field(-1, name)
		if m.state.TypeOf(-1) != lua.TypeFunction {
			m.state.Pop(2)
			return nil, fmt.Errorf("lua function %s is gone", name)
		}
		for _, arg := range args {
			m.state.PushString(arg)
		}
		if err := m.state.ProtectedCall(len(args), 1, 0); err != nil {
			m.state.Pop(2)
			return nil, fmt.Errorf("lua %s: %w", name, err)
		}
		result := luaconv.ToGo(m.state, -1)
		m.state.Pop(2)
		return result, nil
	}
}
