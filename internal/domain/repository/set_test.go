package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
)

func TestApplySet(t *testing.T) {
	t.Parallel()

	doc := entity.Record{
		"name":        "old",
		"socialLinks": map[string]any{"instagram": "https://instagram.com/a", "twitter": ""},
	}
	ApplySet(doc, map[string]any{
		"name":                "new",
		"socialLinks.twitter": "https://x.com/a",
		"extra.nested":        "made",
	})

	assert.Equal(t, "new", doc["name"])
	assert.Equal(t, map[string]any{
		"instagram": "https://instagram.com/a",
		"twitter":   "https://x.com/a",
	}, doc["socialLinks"])
	assert.Equal(t, map[string]any{"nested": "made"}, doc["extra"])
}
