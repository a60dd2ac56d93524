package prototype

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved meta-field names used in the map form of a prototype.
const (
	FieldKey       = "prototype_key"
	FieldDesc      = "prototype_desc"
	FieldTags      = "prototype_tags"
	FieldLocks     = "prototype_locks"
	FieldParent    = "prototype_parent"
	FieldTypeclass = "typeclass"
)

// Tag categories attached by the engine.
const (
	// TagCategoryDB marks tags stored on persisted prototypes.
	TagCategoryDB = "db_prototype"
	// TagCategorySpawn marks entities with the prototype that spawned them.
	TagCategorySpawn = "from_prototype"
	// TagModule is the implicit tag added to module-declared prototypes.
	TagModule = "module"
)

// Default lock strings for the two prototype sources.
const (
	// ModuleLocks makes module prototypes usable by all and uneditable.
	ModuleLocks = "use:all();edit:false()"
	// DBLocks makes persisted prototypes spawnable by all, editable by admins.
	DBLocks = "spawn:all();edit:perm(Admin)"
)

// Tag is a prototype tag, optionally paired with a category.
type Tag struct {
	Name     string
	Category string
}

// Prototype is a named, inheritable attribute template.
type Prototype struct {
	Key       string
	Desc      string
	Locks     string
	Tags      []Tag
	Parents   []string
	Typeclass string
	// Attrs holds the non-meta attributes. Values may be literals, nested
	// sequences/mappings, spawn-time callables, or strings still carrying
	// protofunction syntax.
	Attrs map[string]any
}

// Normalize lower-cases and trims the key and parent references and drops
// empty parent entries. It returns the normalized copy.
func (p Prototype) Normalize() Prototype {
	p.Key = strings.ToLower(strings.TrimSpace(p.Key))
	parents := make([]string, 0, len(p.Parents))
	for _, parent := range p.Parents {
		parent = strings.ToLower(strings.TrimSpace(parent))
		if parent != "" {
			parents = append(parents, parent)
		}
	}
	if len(parents) == 0 {
		parents = nil
	}
	p.Parents = parents
	return p
}

// HasTag reports whether the prototype carries a tag with the given name,
// regardless of category.
func (p Prototype) HasTag(name string) bool {
	for _, tag := range p.Tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

// Merge layers overlay on top of base: set meta fields on the overlay replace
// the base's, overlay attributes replace base attributes key by key, and
// untouched base attributes survive. Neither input is mutated.
func Merge(base, overlay Prototype) Prototype {
	merged := base
	if overlay.Key != "" {
		merged.Key = overlay.Key
	}
	if overlay.Desc != "" {
		merged.Desc = overlay.Desc
	}
	if overlay.Locks != "" {
		merged.Locks = overlay.Locks
	}
	if len(overlay.Tags) > 0 {
		merged.Tags = append([]Tag(nil), overlay.Tags...)
	}
	if len(overlay.Parents) > 0 {
		merged.Parents = append([]string(nil), overlay.Parents...)
	}
	if overlay.Typeclass != "" {
		merged.Typeclass = overlay.Typeclass
	}
	attrs := make(map[string]any, len(base.Attrs)+len(overlay.Attrs))
	for key, value := range base.Attrs {
		attrs[key] = value
	}
	for key, value := range overlay.Attrs {
		attrs[key] = value
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	merged.Attrs = attrs
	return merged
}

// Flatten resolves the prototype's parent chain against pool and returns the
// effective prototype: ancestor attributes first, later parents overriding
// earlier ones, the prototype itself overriding all. The typeclass is the
// nearest one found walking the chain bottom-up. Flatten assumes the chain
// has already been validated; unknown parents are skipped.
func Flatten(p Prototype, pool map[string]Prototype) Prototype {
	return flatten(p, pool, map[string]bool{})
}

func flatten(p Prototype, pool map[string]Prototype, seen map[string]bool) Prototype {
	merged := Prototype{}
	for _, parentKey := range p.Parents {
		parentKey = strings.ToLower(parentKey)
		if seen[parentKey] {
			continue
		}
		seen[parentKey] = true
		parent, ok := pool[parentKey]
		if !ok {
			continue
		}
		merged = Merge(merged, flatten(parent, pool, seen))
	}
	merged = Merge(merged, p)
	// the flattened result describes the original prototype, not a blend of
	// identities: meta fields other than typeclass stay the child's own.
	merged.Key = p.Key
	merged.Desc = p.Desc
	merged.Locks = p.Locks
	merged.Tags = p.Tags
	merged.Parents = p.Parents
	return merged
}

// String renders the prototype in the form used by the CLI show command:
// a meta header followed by the sorted non-meta attributes.
func (p Prototype) String() string {
	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		if tag.Category != "" {
			tags = append(tags, fmt.Sprintf("%s (category: %s)", tag.Name, tag.Category))
		} else {
			tags = append(tags, tag.Name)
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "prototype key: %s, tags: %s, locks: %s\n",
		p.Key, strings.Join(tags, ", "), p.Locks)
	fmt.Fprintf(&sb, "desc: %s\n", p.Desc)
	if p.Typeclass != "" {
		fmt.Fprintf(&sb, "typeclass: %s\n", p.Typeclass)
	}
	if len(p.Parents) > 0 {
		fmt.Fprintf(&sb, "parents: %s\n", strings.Join(p.Parents, ", "))
	}
	keys := make([]string, 0, len(p.Attrs))
	for key := range p.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	sb.WriteString("prototype: {\n")
	for _, key := range keys {
		fmt.Fprintf(&sb, "  %q: %v,\n", key, p.Attrs[key])
	}
	sb.WriteString("}")
	return sb.String()
}
