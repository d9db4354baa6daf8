package schema

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
)

var profileFields = []Field{
	{Name: "name", Required: true, MaxLen: 10},
	{Name: "email", Required: true, Lowercase: true, Tag: "email"},
	{Name: "handle", Lowercase: true, Pattern: regexp.MustCompile(`^[a-z]+$`), PatternMsg: "must be letters"},
	{Name: "active", Type: Bool, Default: true},
	{Name: "photo", Default: "/uploads/default.png"},
	{Name: "tags", Type: StringList, MaxItems: 2},
	{Name: "links", Type: Object, Fields: []Field{
		{Name: "site", Tag: "weburl"},
		{Name: "blog", MaxLen: 20},
	}},
}

func TestSanitize_Full_NormalizesAndFillsDefaults(t *testing.T) {
	t.Parallel()

	out, err := Sanitize(profileFields, map[string]any{
		"name":    "  Ada  ",
		"email":   " ADA@Example.COM ",
		"handle":  "Ada",
		"unknown": "dropped",
	}, Full)
	require.NoError(t, err)

	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, "ada@example.com", out["email"])
	assert.Equal(t, "ada", out["handle"])
	assert.Equal(t, true, out["active"])
	assert.Equal(t, "/uploads/default.png", out["photo"])
	assert.Equal(t, []string{}, out["tags"])
	assert.Equal(t, map[string]any{"site": "", "blog": ""}, out["links"])
	assert.NotContains(t, out, "unknown")
}

func TestSanitize_Full_AccumulatesErrors(t *testing.T) {
	t.Parallel()

	_, err := Sanitize(profileFields, map[string]any{
		"name":   "a name that is far too long",
		"handle": "no-dashes",
		"tags":   []any{"a", "b", "c"},
		"links":  map[string]any{"site": "not a url"},
	}, Full)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	msgs := apperr.MessagesOf(err)
	assert.Equal(t, []string{
		"name must be at most 10 characters long",
		"email is required",
		"handle must be letters",
		"tags must contain at most 2 items",
		"links.site must be a valid URL",
	}, msgs)
}

func TestSanitize_Full_BlankRequiredIsMissing(t *testing.T) {
	t.Parallel()

	_, err := Sanitize(profileFields, map[string]any{"name": "   ", "email": "a@b.co"}, Full)
	require.Error(t, err)
	assert.Equal(t, []string{"name is required"}, apperr.MessagesOf(err))
}

func TestSanitize_Partial_OnlyPresentFields(t *testing.T) {
	t.Parallel()

	out, err := Sanitize(profileFields, map[string]any{
		"handle": "Bob",
		"links":  map[string]any{"blog": "bob.dev"},
	}, Partial)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"handle":     "bob",
		"links.blog": "bob.dev",
	}, out)
}

func TestSanitize_Partial_SkipsBlankRequired(t *testing.T) {
	t.Parallel()

	out, err := Sanitize(profileFields, map[string]any{"name": ""}, Partial)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSanitize_Bool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want bool
	}{
		{false, false},
		{"true", true},
		{"0", false},
		{"yes", true},
		{"OFF", false},
	}
	for _, tt := range tests {
		out, err := Sanitize(profileFields, map[string]any{"active": tt.in}, Partial)
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, out["active"], "input %v", tt.in)
	}

	_, err := Sanitize(profileFields, map[string]any{"active": "maybe"}, Partial)
	require.Error(t, err)
	assert.Equal(t, []string{"active must be a boolean"}, apperr.MessagesOf(err))
}

func TestSanitize_TypeMismatch(t *testing.T) {
	t.Parallel()

	_, err := Sanitize(profileFields, map[string]any{
		"name":  map[string]any{"x": 1},
		"links": "https://example.com",
	}, Partial)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"name must be a string", "links must be an object"}, apperr.MessagesOf(err))
}

func TestSanitize_NumbersBecomeText(t *testing.T) {
	t.Parallel()

	out, err := Sanitize([]Field{{Name: "price"}}, map[string]any{"price": float64(10)}, Partial)
	require.NoError(t, err)
	assert.Equal(t, "10", out["price"])
}

func TestSanitize_MaxLenCountsRunes(t *testing.T) {
	t.Parallel()

	out, err := Sanitize([]Field{{Name: "name", MaxLen: 3}}, map[string]any{"name": "äöü"}, Partial)
	require.NoError(t, err)
	assert.Equal(t, "äöü", out["name"])

	_, err = Sanitize([]Field{{Name: "name", MaxLen: 3}}, map[string]any{"name": strings.Repeat("ä", 4)}, Partial)
	require.Error(t, err)
}

func TestSanitize_DefaultListIsCopied(t *testing.T) {
	t.Parallel()

	fields := []Field{{Name: "tags", Type: StringList, Default: []string{"a"}}}
	first, err := Sanitize(fields, map[string]any{}, Full)
	require.NoError(t, err)
	first["tags"].([]string)[0] = "changed"

	second, err := Sanitize(fields, map[string]any{}, Full)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, second["tags"])
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"name", "email", "handle", "active", "photo", "tags", "links"}, Names(profileFields))
}
