package helpers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexServer pretends to be an ES node whose index exists when exists is true.
func indexServer(t *testing.T, exists bool, createStatus int) (string, func() []string, func() string) {
	t.Helper()
	var mu sync.Mutex
	var calls []string
	var created string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			created = string(b)
		}
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && exists:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(createStatus)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)

	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string{}, calls...)
	}
	body := func() string {
		mu.Lock()
		defer mu.Unlock()
		return created
	}
	return srv.URL, snapshot, body
}

func TestEnsureIndex_CreatesWithMapping(t *testing.T) {
	t.Parallel()
	url, calls, body := indexServer(t, false, http.StatusOK)
	es, err := NewESClient([]string{url}, "", "")
	require.NoError(t, err)

	require.NoError(t, EnsureIndex(context.Background(), es, "lf-services"))
	assert.Equal(t, []string{"HEAD /lf-services", "PUT /lf-services"}, calls())

	var mapping map[string]any
	require.NoError(t, json.Unmarshal([]byte(body()), &mapping))
	props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "date"}, props["createdAt"])
}

func TestEnsureIndex_Existing(t *testing.T) {
	t.Parallel()
	url, calls, _ := indexServer(t, true, http.StatusOK)
	es, err := NewESClient([]string{url}, "", "")
	require.NoError(t, err)

	require.NoError(t, EnsureIndex(context.Background(), es, "lf-users"))
	assert.Equal(t, []string{"HEAD /lf-users"}, calls())
}

func TestEnsureIndex_Errors(t *testing.T) {
	t.Parallel()

	url, _, _ := indexServer(t, false, http.StatusBadRequest)
	es, err := NewESClient([]string{url}, "", "")
	require.NoError(t, err)
	assert.NoError(t, EnsureIndex(context.Background(), es, "raced"), "a concurrent create is tolerated")

	url, _, _ = indexServer(t, false, http.StatusInternalServerError)
	es, err = NewESClient([]string{url}, "", "")
	require.NoError(t, err)
	assert.ErrorContains(t, EnsureIndex(context.Background(), es, "broken"), "500")
}
