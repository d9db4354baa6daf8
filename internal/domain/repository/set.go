package repository

import (
	"strings"

	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
)

// ApplySet writes set into doc, descending into nested objects for dotted
// keys and creating them when missing. Stores without native partial updates
// use it for read-modify-write.
func ApplySet(doc entity.Record, set map[string]any) {
	for key, val := range set {
		parts := strings.Split(key, ".")
		cur := map[string]any(doc)
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = val
	}
}
