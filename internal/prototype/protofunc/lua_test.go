package protofunc

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func loadLuaFuncs(t *testing.T, content string) *LuaModule {
	t.Helper()
	path := filepath.Join(t.TempDir(), "funcs.lua")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write lua module: %v", err)
	}
	module, err := LoadLuaModule(path)
	if err != nil {
		t.Fatalf("LoadLuaModule() error = %v", err)
	}
	return module
}

func TestLoadLuaModule(t *testing.T) {
	module := loadLuaFuncs(t, `
return {
    shout = function(text) return string.upper(text) .. "!" end,
    pair = function(a, b) return { a, b } end,
    stats = function() return { hp = 4, name = "grunt" } end,
    seven = function() return 7 end,
    ratio = function() return 1.5 end,
}
`)

	names := module.Names()
	sort.Strings(names)
	want := []string{"pair", "ratio", "seven", "shout", "stats"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}

	registry := NewRegistry()
	registry.RegisterAll(module.Funcs())

	tests := []struct {
		name string
		in   string
		want any
	}{
		{"string result", "$shout(hi)", "HI!"},
		{"interpolated", "loud: $shout(ok)", "loud: OK!"},
		{"sequence result", "$pair(sword, shield)", []any{"sword", "shield"}},
		{"mapping result", "$stats()", map[string]any{"hp": 4, "name": "grunt"}},
		{"whole number", "$seven()", 7},
		{"fraction", "$ratio()", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := registry.ParseForTest(CallContext{}, tt.in)
			if diag != "" {
				t.Fatalf("ParseForTest(%q) diagnostic = %q, want none", tt.in, diag)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseForTest(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLuaFuncError(t *testing.T) {
	module := loadLuaFuncs(t, `
return {
    shout = function(text) return string.upper(text) .. "!" end,
}
`)
	registry := NewRegistry()
	registry.RegisterAll(module.Funcs())

	// string.upper(nil) raises inside Lua; the raw call text is kept and
	// the failure surfaces as a diagnostic
	got, diag := registry.ParseForTest(CallContext{}, "$shout()")
	if got != "$shout()" {
		t.Errorf("ParseForTest() = %v, want the call kept verbatim", got)
	}
	if diag == "" {
		t.Error("ParseForTest() diagnostic = \"\", want the lua error reported")
	}
}

func TestLoadLuaModuleErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"returns a string", `return "not a table"`},
		{"syntax error", `return {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.lua")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write lua module: %v", err)
			}
			if _, err := LoadLuaModule(path); err == nil {
				t.Error("LoadLuaModule() error = nil, want error")
			}
		})
	}
}
