package registry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/protoforge/internal/luaconv"
)

// LoadLuaModule reads prototype declarations from a Lua file. The file must
// return a table mapping declaration names to prototype tables:
//
//	return {
//	    goblin = {
//	        typeclass = "creature",
//	        prototype_desc = "a goblin",
//	        prototype_tags = { "mob" },
//	    },
//	}
//
// The module name is the file name without extension.
func LoadLuaModule(path string) (Module, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return Module{}, fmt.Errorf("load prototype module %s: %w", path, err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return Module{}, fmt.Errorf("run prototype module %s: %w", path, err)
	}
	if state.TypeOf(-1) != lua.TypeTable {
		state.Pop(1)
		return Module{}, fmt.Errorf("prototype module %s must return a table", path)
	}

	decoded := luaconv.ToGo(state, -1)
	state.Pop(1)
	table, ok := decoded.(map[string]any)
	if !ok {
		return Module{}, fmt.Errorf("prototype module %s must return a table of prototype tables", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	module := Module{Name: name, Prototypes: make(map[string]map[string]any, len(table))}
	for declName, value := range table {
		if value == nil {
			module.Prototypes[declName] = nil
			continue
		}
		// an empty Lua table decodes as an empty sequence; it means removal
		if seq, isSeq := value.([]any); isSeq && len(seq) == 0 {
			module.Prototypes[declName] = nil
			continue
		}
		proto, ok := value.(map[string]any)
		if !ok {
			return Module{}, fmt.Errorf("prototype module %s: %s is not a table", path, declName)
		}
		module.Prototypes[declName] = proto
	}
	return module, nil
}

// LoadLuaModules loads every path in order, ready to hand to Load. Blank
// paths are skipped.
func LoadLuaModules(paths ...string) ([]Module, error) {
	modules := make([]Module, 0, len(paths))
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		module, err := LoadLuaModule(path)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}
