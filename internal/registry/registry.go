// Package registry materializes read-only prototypes from configured source
// modules at process start.
//
// A module contributes prototype declarations either as Go maps or as a Lua
// file returning a table of tables. Declarations are normalized on load
// (lower-cased key, description defaulting to the module name, usable-by-all
// uneditable locks, an implicit "module" tag) and held immutably for the
// process lifetime. Declaring an empty prototype under an existing key
// removes the earlier declaration, which lets later modules retire defaults.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/protoforge/internal/prototype"
)

// Module is one source of read-only prototype declarations.
type Module struct {
	// Name identifies the module; it becomes the default description and
	// the source reported for its prototypes.
	Name string
	// Prototypes maps declaration names to prototype maps. A nil or empty
	// map removes a previously declared prototype with the same key.
	Prototypes map[string]map[string]any
}

// Library is the immutable registry of code-declared prototypes, keyed by
// lower-cased prototype key.
type Library struct {
	prototypes map[string]*prototype.Prototype
	sources    map[string]string
}

// Load builds the library from modules in order. Later modules win key
// collisions.
func Load(modules ...Module) (*Library, error) {
	lib := &Library{
		prototypes: make(map[string]*prototype.Prototype),
		sources:    make(map[string]string),
	}
	for _, module := range modules {
		if err := lib.addModule(module); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *Library) addModule(module Module) error {
	names := make([]string, 0, len(module.Prototypes))
	for name := range module.Prototypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		raw := module.Prototypes[name]
		key := strings.ToLower(strings.TrimSpace(name))
		if len(raw) == 0 {
			// an empty declaration retires an earlier prototype
			delete(l.prototypes, key)
			delete(l.sources, key)
			continue
		}
		proto, err := prototype.FromMap(raw)
		if err != nil {
			return fmt.Errorf("module %s prototype %s: %w", module.Name, name, err)
		}
		if proto.Key == "" {
			proto.Key = key
		}
		proto = normalize(proto, module.Name)
		l.prototypes[proto.Key] = &proto
		l.sources[proto.Key] = module.Name
	}
	return nil
}

// normalize fills the meta defaults for a module-declared prototype.
func normalize(proto prototype.Prototype, moduleName string) prototype.Prototype {
	proto = proto.Normalize()
	if proto.Desc == "" {
		proto.Desc = moduleName
	}
	if proto.Locks == "" {
		proto.Locks = prototype.ModuleLocks
	}
	if !proto.HasTag(prototype.TagModule) {
		proto.Tags = append(proto.Tags, prototype.Tag{Name: prototype.TagModule})
	}
	return proto
}

// Get returns the prototype stored under key (case-insensitive).
func (l *Library) Get(key string) (*prototype.Prototype, bool) {
	proto, ok := l.prototypes[strings.ToLower(strings.TrimSpace(key))]
	return proto, ok
}

// Has reports whether key names a code-declared prototype.
func (l *Library) Has(key string) bool {
	_, ok := l.Get(key)
	return ok
}

// Source returns the module name a prototype was declared in.
func (l *Library) Source(key string) string {
	return l.sources[strings.ToLower(strings.TrimSpace(key))]
}

// All returns every prototype, sorted by key.
func (l *Library) All() []*prototype.Prototype {
	keys := make([]string, 0, len(l.prototypes))
	for key := range l.prototypes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]*prototype.Prototype, len(keys))
	for i, key := range keys {
		out[i] = l.prototypes[key]
	}
	return out
}

// Search filters the library per the store-adapter rules: a tag filter keeps
// prototypes whose tag names intersect tags (tagless prototypes never
// match); a key filter returns the exact match alone when one exists,
// otherwise every prototype whose key contains key as a substring.
func (l *Library) Search(key string, tags []string) []*prototype.Prototype {
	pool := l.All()
	if len(tags) > 0 {
		var tagged []*prototype.Prototype
		for _, proto := range pool {
			if intersects(proto.Tags, tags) {
				tagged = append(tagged, proto)
			}
		}
		pool = tagged
	}
	if key == "" {
		return pool
	}
	key = strings.ToLower(strings.TrimSpace(key))
	var partial []*prototype.Prototype
	for _, proto := range pool {
		if proto.Key == key {
			return []*prototype.Prototype{proto}
		}
		if strings.Contains(proto.Key, key) {
			partial = append(partial, proto)
		}
	}
	return partial
}

func intersects(tags []prototype.Tag, names []string) bool {
	for _, tag := range tags {
		for _, name := range names {
			if tag.Name == name {
				return true
			}
		}
	}
	return false
}
