package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	standalone     *validator.Validate
	standaloneOnce sync.Once
)

// Init configures the global validator used by Gin's binding.
// - Uses json/form tag names in errors.
// - Registers alias tags used by the record schemas.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	v.RegisterAlias("weburl", "url,startswith=http")
}

func engine() *validator.Validate {
	standaloneOnce.Do(func() {
		standalone = validator.New()
		configure(standalone)
	})
	return standalone
}

// CheckVar validates a single value against a validator tag and returns the
// human-friendly messages, or nil when the value passes.
func CheckVar(value any, tag string) []string {
	err := engine().Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"is invalid"}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, formatFieldError(fe))
	}
	return out
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	// Query strings that fail numeric conversion
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return map[string]string{"query": "must be numeric"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

// ToMessages flattens ToDetails into "field message" strings, sorted by field.
func ToMessages(err error) []string {
	details := ToDetails(err)
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+" "+details[k])
	}
	return out
}

// messages maps a validator tag to its client message; %s is the tag param.
var messages = map[string]string{
	"required":   "is required",
	"email":      "must be a valid email",
	"url":        "must be a valid URL",
	"weburl":     "must be a valid URL",
	"startswith": "must start with '%s'",
	"gte":        "must be greater than or equal to %s",
	"lte":        "must be less than or equal to %s",
	"numeric":    "must be numeric",
}

func formatFieldError(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()
	switch tag {
	case "min", "max":
		bound := map[string]string{"min": "at least", "max": "at most"}[tag]
		if isNumberKind(fe.Kind()) {
			return "must be " + bound + " " + param
		}
		return "must be " + bound + " " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	}
	if msg, ok := messages[tag]; ok {
		if strings.Contains(msg, "%s") {
			return fmt.Sprintf(msg, param)
		}
		return msg
	}
	if param != "" {
		return fmt.Sprintf("failed %s=%s", tag, param)
	}
	return "failed " + tag
}

func isNumberKind(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}
