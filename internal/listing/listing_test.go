package listing

import (
	"strings"
	"testing"

	"github.com/louisbranch/protoforge/internal/lock"
	"github.com/louisbranch/protoforge/internal/prototype"
	"github.com/louisbranch/protoforge/internal/registry"
)

func testInputs(t *testing.T) ([]prototype.Prototype, *registry.Library) {
	t.Helper()
	library, err := registry.Load(registry.Module{
		Name: "mobs",
		Prototypes: map[string]map[string]any{
			"goblin": {"typeclass": "thing"},
		},
	})
	if err != nil {
		t.Fatalf("registry.Load() error = %v", err)
	}
	fromLibrary, _ := library.Get("goblin")
	prototypes := []prototype.Prototype{
		*fromLibrary,
		{
			Key:   "orc",
			Desc:  "an orc",
			Locks: "spawn:all();edit:perm(Admin)",
			Tags:  []prototype.Tag{{Name: "mob", Category: prototype.TagCategoryDB}},
		},
		{
			Key:   "secret",
			Desc:  "hidden",
			Locks: "spawn:false();use:false();edit:perm(Admin)",
		},
	}
	return prototypes, library
}

func TestFormat(t *testing.T) {
	prototypes, library := testInputs(t)

	out := Format(prototypes, lock.Perms{"Admin"}, lock.BasicChecker{}, library, Options{
		ShowNonEditable: true,
	})

	if !strings.Contains(out, "Key") || !strings.Contains(out, "Spawn/Edit") {
		t.Errorf("Format() missing header:\n%s", out)
	}
	if !strings.Contains(out, "goblin") {
		t.Errorf("Format() missing usable library prototype:\n%s", out)
	}
	if !strings.Contains(out, "orc") {
		t.Errorf("Format() missing persisted prototype:\n%s", out)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("Format() shows non-usable prototype without ShowNonUsable:\n%s", out)
	}
	if !strings.Contains(out, "mob (category: db_prototype)") {
		t.Errorf("Format() missing categorized tag:\n%s", out)
	}
}

func TestFormat_ShowNonUsable(t *testing.T) {
	prototypes, library := testInputs(t)

	out := Format(prototypes, lock.Perms{"Admin"}, lock.BasicChecker{}, library, Options{
		ShowNonUsable:   true,
		ShowNonEditable: true,
	})
	if !strings.Contains(out, "secret") {
		t.Errorf("Format() hides the prototype despite ShowNonUsable:\n%s", out)
	}
}

func TestFormat_LibraryNeverEditable(t *testing.T) {
	prototypes, library := testInputs(t)

	// only editable rows survive; the library prototype must not be one of
	// them even for an admin
	out := Format(prototypes, lock.Perms{"Admin"}, lock.BasicChecker{}, library, Options{})
	if strings.Contains(out, "goblin") {
		t.Errorf("Format() lists a code-declared prototype as editable:\n%s", out)
	}
	if !strings.Contains(out, "orc") {
		t.Errorf("Format() dropped the admin-editable prototype:\n%s", out)
	}
}

func TestFormat_Empty(t *testing.T) {
	if out := Format(nil, nil, lock.BasicChecker{}, nil, Options{}); out != "" {
		t.Errorf("Format(nil) = %q, want empty", out)
	}
}

func TestFormat_SortedByKey(t *testing.T) {
	prototypes := []prototype.Prototype{
		{Key: "zebra", Locks: "spawn:all()"},
		{Key: "ant", Locks: "spawn:all()"},
	}
	out := Format(prototypes, nil, lock.BasicChecker{}, nil, Options{ShowNonEditable: true})
	if strings.Index(out, "ant") > strings.Index(out, "zebra") {
		t.Errorf("Format() not sorted:\n%s", out)
	}
}
