package protofunc

import (
	"reflect"
	"testing"

	"github.com/louisbranch/protoforge/internal/objref"
)

type fakeEntity string

func (e fakeEntity) ID() string { return string(e) }

type fakeResolver map[string]objref.Entity

func (r fakeResolver) Resolve(id string) (objref.Entity, bool) {
	e, ok := r[id]
	return e, ok
}

func testRegistry(resolver objref.Resolver) *Registry {
	r := NewRegistry()
	r.RegisterAll(Builtins(BuiltinConfig{
		Resolver: resolver,
		IntN:     func(n int) int { return 0 },
		Float:    func() float64 { return 0.5 },
	}))
	return r
}

func TestRewriteObjRefs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare ref", "#12", "$obj(#12)"},
		{"embedded ref", "give to #12 now", "give to $obj(#12) now"},
		{"two refs", "#1 and #2", "$obj(#1) and $obj(#2)"},
		{"already wrapped", "$obj(#12)", "$obj(#12)"},
		{"no refs", "plain text", "plain text"},
		{"hash alone", "#", "#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteObjRefs(tt.in)
			if got != tt.want {
				t.Errorf("RewriteObjRefs(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// rewriting again must change nothing
			if again := RewriteObjRefs(got); again != got {
				t.Errorf("RewriteObjRefs not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestParse(t *testing.T) {
	registry := testRegistry(fakeResolver{"12": fakeEntity("12")})
	call := CallContext{Key: "hp"}

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"non-string passthrough", 42, 42},
		{"plain string", "hello there", "hello there"},
		{"integer literal", "42", 42},
		{"list literal", "[1, 2, 3]", []any{1, 2, 3}},
		{"true word", "True", true},
		{"none word", "None", nil},
		{"quoted string literal", `"hello"`, "hello"},
		{"whole-string call native", "$randint(2, 6)", 2},
		{"key function", "$key()", "hp"},
		{"choice", "$choice(a, b, c)", "a"},
		{"interpolated call", "rolled $randint(2, 2)", "rolled 2"},
		{"escaped dollar", `\$key()`, "$key()"},
		{"unknown function verbatim", "$nope(1)", "$nope(1)"},
		{"object reference", "#12", fakeEntity("12")},
		{"unbalanced paren verbatim", "$key(", "$key("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := registry.Parse(call, tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%v) = %#v, want %#v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParse_NestedCalls(t *testing.T) {
	registry := testRegistry(nil)
	got := registry.Parse(CallContext{}, "$randint($randint(3, 3), 5)")
	if got != 3 {
		t.Errorf("Parse() = %v, want 3", got)
	}
}

func TestParseForTest_Diagnostics(t *testing.T) {
	registry := testRegistry(nil)

	got, diag := registry.ParseForTest(CallContext{}, "$randint(5, 1)")
	if got != "$randint(5, 1)" {
		t.Errorf("value = %v, want the raw call kept verbatim", got)
	}
	if diag == "" {
		t.Error("diagnostic = \"\", want bounds error recorded")
	}

	got, diag = registry.ParseForTest(CallContext{}, "plain")
	if got != "plain" || diag != "" {
		t.Errorf("clean parse = (%v, %q), want (plain, \"\")", got, diag)
	}
}

func TestParse_UnresolvedObjRef(t *testing.T) {
	registry := testRegistry(fakeResolver{})
	got, diag := registry.ParseForTest(CallContext{}, "#99")
	if got != "$obj(#99)" {
		t.Errorf("value = %v, want the rewritten call kept verbatim", got)
	}
	if diag == "" {
		t.Error("diagnostic = \"\", want not-found error recorded")
	}
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register("f", func(CallContext, ...string) (any, error) { return "first", nil })
	r.Register("f", func(CallContext, ...string) (any, error) { return "second", nil })

	got := r.Parse(CallContext{}, "$f()")
	if got != "second" {
		t.Errorf("Parse($f()) = %v, want second", got)
	}

	names := r.Names()
	if len(names) != 1 || names[0] != "f" {
		t.Errorf("Names() = %v, want [f]", names)
	}
}
