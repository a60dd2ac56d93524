package registry

import (
	"testing"

	"github.com/louisbranch/protoforge/internal/prototype"
)

func TestLoad_Normalization(t *testing.T) {
	lib, err := Load(Module{
		Name: "mobs",
		Prototypes: map[string]map[string]any{
			"Goblin": {
				"typeclass": "thing",
				"hp":        4,
			},
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	proto, ok := lib.Get("goblin")
	if !ok {
		t.Fatal("Get(goblin) = false, want the lower-cased key to match")
	}
	if proto.Desc != "mobs" {
		t.Errorf("Desc = %q, want the module name as default", proto.Desc)
	}
	if proto.Locks != prototype.ModuleLocks {
		t.Errorf("Locks = %q, want %q", proto.Locks, prototype.ModuleLocks)
	}
	if !proto.HasTag(prototype.TagModule) {
		t.Errorf("Tags = %v, want the implicit module tag", proto.Tags)
	}
	if lib.Source("Goblin") != "mobs" {
		t.Errorf("Source() = %q, want mobs", lib.Source("Goblin"))
	}
}

func TestLoad_DeclaredMetaSurvives(t *testing.T) {
	lib, err := Load(Module{
		Name: "mobs",
		Prototypes: map[string]map[string]any{
			"goblin": {
				"prototype_desc":  "a goblin",
				"prototype_locks": "use:all();edit:perm(Admin)",
				"typeclass":       "thing",
			},
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	proto, _ := lib.Get("goblin")
	if proto.Desc != "a goblin" {
		t.Errorf("Desc = %q, want declared value kept", proto.Desc)
	}
	if proto.Locks != "use:all();edit:perm(Admin)" {
		t.Errorf("Locks = %q, want declared value kept", proto.Locks)
	}
}

func TestLoad_EmptyDeclarationRetires(t *testing.T) {
	lib, err := Load(
		Module{
			Name: "defaults",
			Prototypes: map[string]map[string]any{
				"goblin": {"typeclass": "thing"},
			},
		},
		Module{
			Name: "overrides",
			Prototypes: map[string]map[string]any{
				"goblin": nil,
			},
		},
	)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if lib.Has("goblin") {
		t.Error("Has(goblin) = true, want the empty declaration to retire it")
	}
}

func TestLoad_LaterModuleWins(t *testing.T) {
	lib, err := Load(
		Module{Name: "first", Prototypes: map[string]map[string]any{
			"goblin": {"typeclass": "thing", "hp": 1},
		}},
		Module{Name: "second", Prototypes: map[string]map[string]any{
			"goblin": {"typeclass": "thing", "hp": 9},
		}},
	)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	proto, _ := lib.Get("goblin")
	if proto.Attrs["hp"] != 9 {
		t.Errorf("Attrs[hp] = %v, want the later module's value", proto.Attrs["hp"])
	}
	if lib.Source("goblin") != "second" {
		t.Errorf("Source() = %q, want second", lib.Source("goblin"))
	}
}

func TestLoad_BadDeclaration(t *testing.T) {
	_, err := Load(Module{
		Name: "broken",
		Prototypes: map[string]map[string]any{
			"bad": {"prototype_key": 42},
		},
	})
	if err == nil {
		t.Error("Load() error = nil, want declaration error")
	}
}

func testLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Load(Module{
		Name: "mobs",
		Prototypes: map[string]map[string]any{
			"goblin":       {"typeclass": "thing", "prototype_tags": "mob"},
			"goblin_elite": {"typeclass": "thing", "prototype_tags": "mob"},
			"dragon":       {"typeclass": "thing", "prototype_tags": []any{"mob", "boss"}},
			"portal":       {"typeclass": "exit"},
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return lib
}

func TestSearch_ExactBeatsPartial(t *testing.T) {
	lib := testLibrary(t)

	got := lib.Search("goblin", nil)
	if len(got) != 1 || got[0].Key != "goblin" {
		t.Fatalf("Search(goblin) = %v, want the exact match alone", keys(got))
	}

	got = lib.Search("gobl", nil)
	if len(got) != 2 {
		t.Errorf("Search(gobl) = %v, want both goblin keys", keys(got))
	}
}

func TestSearch_Tags(t *testing.T) {
	lib := testLibrary(t)

	got := lib.Search("", []string{"boss"})
	if len(got) != 1 || got[0].Key != "dragon" {
		t.Errorf("Search(boss) = %v, want [dragon]", keys(got))
	}

	// the implicit module tag matches everything declared here
	got = lib.Search("", []string{prototype.TagModule})
	if len(got) != 4 {
		t.Errorf("Search(module tag) = %v, want all four", keys(got))
	}

	got = lib.Search("", []string{"nothing"})
	if len(got) != 0 {
		t.Errorf("Search(nothing) = %v, want none", keys(got))
	}
}

func TestSearch_KeyAndTags(t *testing.T) {
	lib := testLibrary(t)

	got := lib.Search("dragon", []string{"boss"})
	if len(got) != 1 || got[0].Key != "dragon" {
		t.Errorf("Search(dragon, boss) = %v, want [dragon]", keys(got))
	}

	got = lib.Search("portal", []string{"mob"})
	if len(got) != 0 {
		t.Errorf("Search(portal, mob) = %v, want none", keys(got))
	}
}

func TestAll_Sorted(t *testing.T) {
	lib := testLibrary(t)
	all := lib.All()
	if len(all) != 4 {
		t.Fatalf("All() returned %d prototypes, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key > all[i].Key {
			t.Errorf("All() not sorted: %v", keys(all))
			break
		}
	}
}

func keys(protos []*prototype.Prototype) []string {
	out := make([]string, len(protos))
	for i, proto := range protos {
		out[i] = proto.Key
	}
	return out
}
