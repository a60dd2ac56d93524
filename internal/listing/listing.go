// Package listing renders prototype search results as a permission-filtered
// table.
package listing

import (
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/louisbranch/protoforge/internal/lock"
	"github.com/louisbranch/protoforge/internal/prototype"
	"github.com/louisbranch/protoforge/internal/registry"
)

// Options controls which rows survive the permission filter.
type Options struct {
	// ShowNonUsable keeps prototypes the caller may not spawn.
	ShowNonUsable bool
	// ShowNonEditable keeps prototypes the caller may not edit.
	ShowNonEditable bool
}

// Format renders prototypes as a Key/Desc/Spawn-Edit/Tags table, sorted by
// key. Rows the caller may not use are dropped unless ShowNonUsable is set;
// likewise for editing. Code-declared prototypes never show as editable. An
// empty string means nothing survived the filter.
func Format(prototypes []prototype.Prototype, caller lock.Subject, checker lock.Checker, library *registry.Library, opts Options) string {
	if checker == nil {
		checker = lock.BasicChecker{}
	}

	sorted := append([]prototype.Prototype(nil), prototypes...)
	collator := collate.New(language.English, collate.Loose)
	sort.SliceStable(sorted, func(i, j int) bool {
		return collator.CompareString(sorted[i].Key, sorted[j].Key) < 0
	})

	type row struct {
		key, desc, access, tags string
	}
	var rows []row
	for _, proto := range sorted {
		canUse := checker.Check(caller, proto.Locks, "spawn", true) ||
			checker.Check(caller, proto.Locks, "use", false)
		if !canUse && !opts.ShowNonUsable {
			continue
		}
		canEdit := false
		if library == nil || !library.Has(proto.Key) {
			canEdit = checker.Check(caller, proto.Locks, "edit", false)
		}
		if !canEdit && !opts.ShowNonEditable {
			continue
		}
		rows = append(rows, row{
			key:    orUnset(proto.Key),
			desc:   orUnset(proto.Desc),
			access: flag(canUse) + "/" + flag(canEdit),
			tags:   tagList(proto.Tags),
		})
	}
	if len(rows) == 0 {
		return ""
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 2, 0, 2, ' ', 0)
	w.Write([]byte("Key\tDesc\tSpawn/Edit\tTags\n"))
	for _, r := range rows {
		w.Write([]byte(r.key + "\t" + r.desc + "\t" + r.access + "\t" + r.tags + "\n"))
	}
	w.Flush()
	return sb.String()
}

func orUnset(s string) string {
	if strings.TrimSpace(s) == "" {
		return "<unset>"
	}
	return s
}

func flag(ok bool) string {
	if ok {
		return "Y"
	}
	return "N"
}

func tagList(tags []prototype.Tag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Category != "" {
			parts = append(parts, tag.Name+" (category: "+tag.Category+")")
		} else {
			parts = append(parts, tag.Name)
		}
	}
	return strings.Join(parts, ",")
}
