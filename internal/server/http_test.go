package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/conf"
	"github.com/lk2023060901/llm-gateway-client/internal/data"
	"github.com/lk2023060901/llm-gateway-client/internal/gateway/biz"
	"github.com/lk2023060901/llm-gateway-client/internal/gateway/service"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	cfg, err := conf.Load("")
	require.NoError(t, err)

	repo := data.NewCatalogRepo(nil, nil, catalog.PreferOverrides, logger.NewNop())
	uc := biz.NewGatewayUseCase(repo, nil, nil, nil, cfg, time.Minute, logger.NewNop())
	svc := service.NewGatewayService(uc, service.Options{}, logger.NewNop())
	return NewHTTPServer(cfg, logger.NewNop(), svc)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").Str)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRoutesMounted(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/models/select?task=reason", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "qwen/qwen3-vl-235b-a22b-thinking", gjson.Get(w.Body.String(), "data.id").Str)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/chat/streams/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStopWithoutStart(t *testing.T) {
	s := newTestServer(t)
	assert.NoError(t, s.Stop(context.Background()))
}
