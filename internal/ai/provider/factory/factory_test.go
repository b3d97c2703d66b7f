package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

func TestBuilderDefaults(t *testing.T) {
	cfg := NewConfig().
		WithAPIKey("k").
		WithModel("openai/gpt-4o").
		WithReferer("https://example.com").
		WithPool(2, 4).
		WithHeader("X-Trace", "1").
		Build()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, types.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, types.DefaultAppTitle, cfg.AppTitle)
	assert.Equal(t, types.DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.Equal(t, "1", cfg.Headers["X-Trace"])
}

func TestOpenRouterLate(t *testing.T) {
	calls := 0
	cfg := OpenRouterLate(func() string { calls++; return "late" },
		WithBaseURL(""),
		WithModel("m"),
		WithMaxRetries(5),
		WithTimeout(time.Second),
		WithConnectTimeout(2*time.Second),
		WithPool(3, 6),
		WithAppInfo("", "ref"),
		WithHeaders(map[string]string{"A": "b"}),
	)
	assert.Equal(t, types.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 3, cfg.MaxIdleConns)
	assert.Equal(t, 6, cfg.MaxConns)
	assert.Equal(t, types.DefaultAppTitle, cfg.AppTitle)
	assert.Equal(t, "ref", cfg.Referer)
	assert.Equal(t, "b", cfg.Headers["A"])

	key, err := cfg.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "late", key)
	assert.Equal(t, 1, calls)

	compat := OpenRouterLate(func() string { return "k" }, WithBaseURL("http://localhost:8080/v1/"))
	require.NoError(t, compat.Validate())
	assert.Equal(t, "http://localhost:8080/v1", compat.BaseURL)
}
