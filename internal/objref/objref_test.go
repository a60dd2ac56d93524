package objref

import (
	"reflect"
	"testing"
)

type fakeEntity string

func (e fakeEntity) ID() string { return string(e) }

type fakeResolver map[string]Entity

func (r fakeResolver) Resolve(id string) (Entity, bool) {
	e, ok := r[id]
	return e, ok
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		wantID string
		wantOK bool
	}{
		{"hash ref", "#12", "12", true},
		{"bare digits", "12", "12", true},
		{"int", 7, "7", true},
		{"int64", int64(9), "9", true},
		{"whole float", float64(3), "3", true},
		{"fractional float", 3.5, "", false},
		{"word", "goblin", "", false},
		{"hash only", "#", "", false},
		{"embedded ref", "see #12 there", "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseRef(tt.value)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("ParseRef(%v) = (%q, %v), want (%q, %v)", tt.value, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestToEntity(t *testing.T) {
	resolver := fakeResolver{"12": fakeEntity("12"), "7": fakeEntity("7")}

	got := ToEntity([]any{"#12", "7", "goblin", "#99"}, resolver)
	want := []any{fakeEntity("12"), fakeEntity("7"), nil, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToEntity() = %v, want %v", got, want)
	}
}

func TestToEntity_NestedShape(t *testing.T) {
	resolver := fakeResolver{"1": fakeEntity("1")}

	got := ToEntity(map[string]any{
		"direct": "#1",
		"nested": []any{"#1", "nope"},
	}, resolver)

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("ToEntity() = %T, want map", got)
	}
	if m["direct"] != fakeEntity("1") {
		t.Errorf("direct = %v", m["direct"])
	}
	nested, ok := m["nested"].([]any)
	if !ok || len(nested) != 2 {
		t.Fatalf("nested = %v", m["nested"])
	}
	if nested[0] != fakeEntity("1") || nested[1] != nil {
		t.Errorf("nested = %v, want [entity nil]", nested)
	}
}

func TestToEntityOrKeep(t *testing.T) {
	resolver := fakeResolver{"1": fakeEntity("1")}

	got := ToEntityOrKeep([]any{"#1", "goblin", "#99"}, resolver)
	want := []any{fakeEntity("1"), "goblin", "#99"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToEntityOrKeep() = %v, want %v", got, want)
	}
}
