package entity

import (
	"strings"
	"time"

	"github.com/oksasatya/linkfolio-api/internal/domain/schema"
)

const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record is one persisted entity instance as a flat document. The store fills
// "id"; the repository stamps createdAt/updatedAt.
type Record map[string]any

func (r Record) ID() string {
	s, _ := r[FieldID].(string)
	return s
}

func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

func (r Record) Time(field string) time.Time {
	switch t := r[field].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Strings reads a list field regardless of how the store decoded it.
func (r Record) Strings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone copies the top level and nested maps so callers can mutate freely.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		switch x := v.(type) {
		case map[string]any:
			out[k] = map[string]any(Record(x).Clone())
		case []string:
			out[k] = append([]string{}, x...)
		default:
			out[k] = v
		}
	}
	return out
}

// ImageField names a field that holds uploaded image references.
type ImageField struct {
	Name string
	// Multi marks a list of references instead of a single one.
	Multi    bool
	MaxFiles int
	// Placeholder is the reference used when nothing was uploaded.
	Placeholder string
}

// Kind describes one entity type to the generic repository and handler.
type Kind struct {
	// Name is the route segment and the store collection.
	Name     string
	Singular string
	Fields   []schema.Field
	// SearchFields are matched case-insensitively and OR-ed together.
	SearchFields []string
	// UniqueFields are backed by a unique index in every store.
	UniqueFields []string
	Images       []ImageField
	// Derive adds computed, never-stored values to an outgoing record.
	Derive func(Record)
}

// ImageField returns the image field named name, if any.
func (k Kind) ImageField(name string) (ImageField, bool) {
	for _, f := range k.Images {
		if f.Name == name {
			return f, true
		}
	}
	return ImageField{}, false
}

// IsPlaceholder reports whether ref is one of this kind's default images.
func (k Kind) IsPlaceholder(ref string) bool {
	for _, f := range k.Images {
		if f.Placeholder != "" && f.Placeholder == ref {
			return true
		}
	}
	return false
}

// References lists every non-placeholder image reference held by r.
func (k Kind) References(r Record) []string {
	var out []string
	for _, f := range k.Images {
		var refs []string
		if f.Multi {
			refs = r.Strings(f.Name)
		} else if s := r.String(f.Name); s != "" {
			refs = []string{s}
		}
		for _, ref := range refs {
			if ref != "" && !k.IsPlaceholder(ref) {
				out = append(out, ref)
			}
		}
	}
	return out
}

// Present applies Derive to a copy of r.
func (k Kind) Present(r Record) Record {
	if r == nil {
		return nil
	}
	out := r.Clone()
	if k.Derive != nil {
		k.Derive(out)
	}
	return out
}

// Kinds lists every entity exposed by the API.
func Kinds() []Kind {
	return []Kind{User(), Service(), Workshop(), Product(), About()}
}

func joinNonEmpty(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, " ")
}

// Placeholders lists the default image references of every kind. They are
// shipped with the deployment and never deleted.
func Placeholders() []string {
	var out []string
	for _, k := range Kinds() {
		for _, f := range k.Images {
			if f.Placeholder != "" {
				out = append(out, f.Placeholder)
			}
		}
	}
	return out
}
