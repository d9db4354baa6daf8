package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/linkfolio-api/config"
	"github.com/oksasatya/linkfolio-api/internal/container"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/memory"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
)

func TestInitModules_MountsEveryKind(t *testing.T) {
	gin.SetMode(gin.TestMode)

	local, err := uploads.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	container.SetConfig(&config.Config{RateLimitWrites: 60, RateLimitReads: 600, DebugMetricsEnabled: true})
	container.SetLogger(logger)
	container.SetStore(memory.NewStore())
	container.SetUploads(uploads.NewManager(local, 1<<20, entity.Placeholders()...))

	reg := NewRegistry(gin.New())
	repos := InitModules(reg)
	reg.RegisterAll()
	require.Len(t, repos, len(entity.Kinds()))

	for _, kind := range entity.Kinds() {
		rr := httptest.NewRecorder()
		reg.Engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/"+kind.Name, nil))
		assert.Equal(t, http.StatusOK, rr.Code, kind.Name)
	}

	body, _ := json.Marshal(map[string]any{"name": "Yoga", "description": "Morning flow", "price": "10"})
	req := httptest.NewRequest(http.MethodPost, "/api/services", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	reg.Engine.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)

	for _, path := range []string{"/api/health", "/api/debug/vars"} {
		rr := httptest.NewRecorder()
		reg.Engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestMaxBody(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 1<<20+formOverhead, maxBody(entity.Service(), 1<<20))
	assert.EqualValues(t, entity.MaxAboutImages*(1<<20)+formOverhead, maxBody(entity.About(), 1<<20))
}
