package prototype

import (
	"fmt"
	"strings"
)

// FromMap builds a Prototype from its map form, the shape used by prototype
// module declarations, YAML definition files, and the storage payload. Meta
// fields are picked out of the reserved keys; everything else lands in Attrs.
//
// prototype_parent accepts a single key or a sequence of keys.
// prototype_tags accepts bare tag names or (name, category) pairs.
func FromMap(raw map[string]any) (Prototype, error) {
	var p Prototype
	attrs := make(map[string]any)
	for key, value := range raw {
		switch key {
		case FieldKey:
			s, ok := value.(string)
			if !ok {
				return Prototype{}, fmt.Errorf("%s must be a string, got %T", FieldKey, value)
			}
			p.Key = s
		case FieldDesc:
			s, ok := value.(string)
			if !ok {
				return Prototype{}, fmt.Errorf("%s must be a string, got %T", FieldDesc, value)
			}
			p.Desc = s
		case FieldLocks:
			s, ok := value.(string)
			if !ok {
				return Prototype{}, fmt.Errorf("%s must be a string, got %T", FieldLocks, value)
			}
			p.Locks = s
		case FieldTypeclass:
			s, ok := value.(string)
			if !ok {
				return Prototype{}, fmt.Errorf("%s must be a string, got %T", FieldTypeclass, value)
			}
			p.Typeclass = s
		case FieldParent:
			parents, err := parentList(value)
			if err != nil {
				return Prototype{}, err
			}
			p.Parents = parents
		case FieldTags:
			tags, err := TagList(value)
			if err != nil {
				return Prototype{}, err
			}
			p.Tags = tags
		default:
			attrs[key] = value
		}
	}
	if len(attrs) > 0 {
		p.Attrs = attrs
	}
	return p.Normalize(), nil
}

// ToMap is the inverse of FromMap. Unset meta fields are omitted.
func (p Prototype) ToMap() map[string]any {
	out := make(map[string]any, len(p.Attrs)+6)
	for key, value := range p.Attrs {
		out[key] = value
	}
	if p.Key != "" {
		out[FieldKey] = p.Key
	}
	if p.Desc != "" {
		out[FieldDesc] = p.Desc
	}
	if p.Locks != "" {
		out[FieldLocks] = p.Locks
	}
	if p.Typeclass != "" {
		out[FieldTypeclass] = p.Typeclass
	}
	if len(p.Parents) > 0 {
		parents := make([]any, len(p.Parents))
		for i, parent := range p.Parents {
			parents[i] = parent
		}
		out[FieldParent] = parents
	}
	if len(p.Tags) > 0 {
		tags := make([]any, len(p.Tags))
		for i, tag := range p.Tags {
			if tag.Category == "" {
				tags[i] = tag.Name
			} else {
				tags[i] = []any{tag.Name, tag.Category}
			}
		}
		out[FieldTags] = tags
	}
	return out
}

func parentList(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		parents := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings, got %T", FieldParent, item)
			}
			parents = append(parents, s)
		}
		return parents, nil
	default:
		return nil, fmt.Errorf("%s must be a string or a sequence of strings, got %T", FieldParent, value)
	}
}

// TagList normalizes the wire form of prototype tags: a bare string, a
// (name, category) pair, or a sequence of either.
func TagList(value any) ([]Tag, error) {
	var items []any
	switch v := value.(type) {
	case string:
		items = []any{v}
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("%s must be a tag or a sequence of tags, got %T", FieldTags, value)
	}
	tags := make([]Tag, 0, len(items))
	for _, item := range items {
		switch tag := item.(type) {
		case string:
			if strings.TrimSpace(tag) == "" {
				continue
			}
			tags = append(tags, Tag{Name: tag})
		case []any:
			if len(tag) == 0 {
				continue
			}
			name, ok := tag[0].(string)
			if !ok {
				return nil, fmt.Errorf("tag name must be a string, got %T", tag[0])
			}
			out := Tag{Name: name}
			if len(tag) > 1 {
				category, ok := tag[1].(string)
				if !ok {
					return nil, fmt.Errorf("tag category must be a string, got %T", tag[1])
				}
				out.Category = category
			}
			tags = append(tags, out)
		case Tag:
			tags = append(tags, tag)
		default:
			return nil, fmt.Errorf("unsupported tag form %T", item)
		}
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}
