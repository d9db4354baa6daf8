package validation

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		tag   string
		want  []string
	}{
		{"ada@example.com", "email", nil},
		{"ada@", "email", []string{"must be a valid email"}},
		{"https://x.com/ada", "weburl", nil},
		{"x.com/ada", "weburl", []string{"must be a valid URL"}},
		{"ftp://x.com/ada", "weburl", []string{"must be a valid URL"}},
		{"abc", "max=2", []string{"must be at most 2 characters long"}},
		{"b", "oneof=a c", []string{"must be one of: a, c"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckVar(tt.value, tt.tag), "%s %s", tt.tag, tt.value)
	}
}

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Age   int    `form:"age" validate:"gte=18"`
}

func TestToDetails_ValidationErrors(t *testing.T) {
	t.Parallel()

	v := validator.New()
	configure(v)
	err := v.Struct(signup{Email: "nope", Age: 3})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"email": "must be a valid email",
		"age":   "must be greater than or equal to 18",
	}, ToDetails(err))
	assert.Equal(t, []string{
		"age must be greater than or equal to 18",
		"email must be a valid email",
	}, ToMessages(err))
}

func TestToDetails_OtherErrors(t *testing.T) {
	t.Parallel()

	var m map[string]any
	jsonErr := json.Unmarshal([]byte("{"), &m)
	_, numErr := strconv.Atoi("abc")

	assert.Nil(t, ToDetails(nil))
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(jsonErr))
	assert.Equal(t, map[string]string{"query": "must be numeric"}, ToDetails(numErr))
	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("x")))
	assert.Equal(t, []string{"query must be numeric"}, ToMessages(numErr))
}
