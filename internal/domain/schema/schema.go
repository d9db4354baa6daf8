package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
	"github.com/oksasatya/linkfolio-api/pkg/validation"
)

// Type is the stored shape of a field.
type Type int

const (
	String Type = iota
	Bool
	StringList
	Object
)

// Mode selects create-time or update-time sanitizing.
type Mode int

const (
	// Full requires every required field and fills defaults for the rest.
	Full Mode = iota
	// Partial validates only the fields that are present.
	Partial
)

// Field declares the rules for one input key.
type Field struct {
	Name      string
	Type      Type
	Required  bool
	NoTrim    bool
	Lowercase bool
	MaxLen    int
	MaxItems  int
	Pattern   *regexp.Regexp
	// PatternMsg replaces the generic "is invalid" message on pattern mismatch.
	PatternMsg string
	// Tag is a go-playground/validator tag applied to non-empty strings.
	Tag         string
	Default     any
	DefaultFunc func() any
	Fields      []Field
}

// Names lists the top-level field names.
func Names(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

// Sanitize normalizes raw into a clean document. In Full mode missing required
// fields are errors and missing optional fields get their default; in Partial
// mode missing fields are left out. Nested objects in Partial mode are emitted
// as dotted paths so that untouched siblings survive an update. Keys not in
// fields are dropped. All problems are returned together as one validation
// error.
func Sanitize(fields []Field, raw map[string]any, mode Mode) (map[string]any, error) {
	out := map[string]any{}
	var errs []string
	sanitizeInto(out, "", fields, raw, mode, &errs)
	if len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}
	return out, nil
}

func sanitizeInto(out map[string]any, prefix string, fields []Field, raw map[string]any, mode Mode, errs *[]string) {
	for _, f := range fields {
		name := prefix + f.Name
		v, present := raw[f.Name]

		if f.Type == Object {
			sub := map[string]any{}
			if present && v != nil {
				m, ok := v.(map[string]any)
				if !ok {
					*errs = append(*errs, name+" must be an object")
					continue
				}
				sub = m
			} else if mode == Partial {
				continue
			}
			if mode == Partial {
				sanitizeInto(out, name+".", f.Fields, sub, mode, errs)
				continue
			}
			nested := map[string]any{}
			sanitizeInto(nested, name+".", f.Fields, sub, mode, errs)
			out[f.Name] = unprefix(nested, name+".")
			continue
		}

		val, ok, msg := coerce(f, name, v, present)
		if msg != "" {
			*errs = append(*errs, msg)
			continue
		}
		if !ok {
			if mode == Partial {
				continue
			}
			if f.Required {
				*errs = append(*errs, name+" is required")
				continue
			}
			out[name] = defaultOf(f)
			continue
		}
		if m := check(f, name, val); len(m) > 0 {
			*errs = append(*errs, m...)
			continue
		}
		out[name] = val
	}
}

// unprefix strips the dotted prefix that nested sanitizing adds to keys.
func unprefix(m map[string]any, prefix string) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[strings.TrimPrefix(k, prefix)] = v
	}
	return res
}

func defaultOf(f Field) any {
	if f.DefaultFunc != nil {
		return f.DefaultFunc()
	}
	switch d := f.Default.(type) {
	case []string:
		return append([]string{}, d...)
	case nil:
		switch f.Type {
		case String:
			return ""
		case Bool:
			return false
		case StringList:
			return []string{}
		}
	}
	return f.Default
}

// coerce converts v to the field's type. ok is false when the value counts as
// absent; msg is set when the value cannot be converted at all.
func coerce(f Field, name string, v any, present bool) (val any, ok bool, msg string) {
	if !present || v == nil {
		return nil, false, ""
	}
	switch f.Type {
	case StringList:
		items, isList := toList(v)
		if !isList {
			return nil, false, name + " must be a list"
		}
		res := make([]string, 0, len(items))
		for _, it := range items {
			s := normalize(f, toText(it))
			if s != "" {
				res = append(res, s)
			}
		}
		if len(res) == 0 {
			return nil, false, ""
		}
		return res, true, ""
	case Bool:
		if b, isBool := v.(bool); isBool {
			return b, true, ""
		}
		s := strings.ToLower(strings.TrimSpace(toText(v)))
		if s == "" {
			return nil, false, ""
		}
		b, err := parseBool(s)
		if err != nil {
			return nil, false, name + " must be a boolean"
		}
		return b, true, ""
	default:
		if _, isMap := v.(map[string]any); isMap {
			return nil, false, name + " must be a string"
		}
		s := normalize(f, toText(v))
		if s == "" {
			return nil, false, ""
		}
		return s, true, ""
	}
}

func normalize(f Field, s string) string {
	if !f.NoTrim {
		s = strings.TrimSpace(s)
	}
	if f.Lowercase {
		s = strings.ToLower(s)
	}
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func check(f Field, name string, val any) []string {
	var msgs []string
	switch x := val.(type) {
	case string:
		msgs = append(msgs, checkString(f, name, x)...)
	case []string:
		if f.MaxItems > 0 && len(x) > f.MaxItems {
			msgs = append(msgs, fmt.Sprintf("%s must contain at most %d items", name, f.MaxItems))
		}
		for _, s := range x {
			msgs = append(msgs, checkString(f, name, s)...)
		}
	}
	return msgs
}

func checkString(f Field, name, s string) []string {
	var msgs []string
	if f.MaxLen > 0 && utf8.RuneCountInString(s) > f.MaxLen {
		msgs = append(msgs, fmt.Sprintf("%s must be at most %d characters long", name, f.MaxLen))
	}
	if f.Pattern != nil && !f.Pattern.MatchString(s) {
		if f.PatternMsg != "" {
			msgs = append(msgs, name+" "+f.PatternMsg)
		} else {
			msgs = append(msgs, name+" is invalid")
		}
	}
	if f.Tag != "" {
		for _, m := range validation.CheckVar(s, f.Tag) {
			msgs = append(msgs, name+" "+m)
		}
	}
	return msgs
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		if len(x) == 0 {
			return ""
		}
		return x[0]
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		res := make([]any, len(x))
		for i, s := range x {
			res[i] = s
		}
		return res, true
	case string:
		return []any{x}, true
	}
	return nil, false
}

func parseBool(s string) (bool, error) {
	switch s {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
