package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENROUTER_ALLOWED_MODELS", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, types.DefaultBaseURL, cfg.Gateway.BaseURL)
	assert.Equal(t, "Arcadia AI Chat", cfg.Gateway.AppTitle)
	assert.Equal(t, 2, cfg.Gateway.MaxRetries)
	assert.Equal(t, catalog.DefaultListingTTL, cfg.Catalog.ListingTTL)
	assert.Equal(t, catalog.QualityMid, cfg.Budget())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Redis.Addrs)
	assert.Empty(t, cfg.SelectOptions().Allowed)
	assert.Equal(t, 4, cfg.Attachments.Workers)

	cc := cfg.ClientConfig()
	_, err = cc.ResolveAPIKey()
	assert.ErrorIs(t, err, types.ErrMissingAPIKey)
	assert.Equal(t, types.DefaultConnectTimeout, cc.ConnectTimeout)
}

func TestLoadLateAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	cfg, err := Load("")
	require.NoError(t, err)
	cc := cfg.ClientConfig()
	_, err = cc.ResolveAPIKey()
	assert.ErrorIs(t, err, types.ErrMissingAPIKey)

	// 启动后才设置的密钥在下一次调用时生效
	t.Setenv("OPENROUTER_API_KEY", "sk-late")
	key, err := cc.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-late", key)

	t.Setenv("OPENROUTER_ALLOWED_MODELS", "openai/gpt-5, x-ai/grok-4")
	assert.Equal(t, []string{"openai/gpt-5", "x-ai/grok-4"}, cfg.SelectOptions().Allowed)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_APP_TITLE", "My App")
	t.Setenv("OPENROUTER_REFERER", "https://example.com")
	t.Setenv("OPENROUTER_MAX_RETRIES", "5")
	t.Setenv("LLM_GATEWAY_SERVER_PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "My App", cfg.Gateway.AppTitle)
	assert.Equal(t, "https://example.com", cfg.Gateway.Referer)
	assert.Equal(t, 5, cfg.Gateway.MaxRetries)
	assert.Equal(t, 9090, cfg.Server.Port)

	cc := cfg.ClientConfig()
	assert.Equal(t, "My App", cc.AppTitle)
	assert.Equal(t, "https://example.com", cc.Referer)
	assert.Equal(t, 5, cc.MaxRetries)
	assert.Equal(t, types.DefaultBaseURL, cc.BaseURL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  model: openai/gpt-5-mini
  timeout: 30s
  headers:
    X-Team: research
catalog:
  budget: high
  prefer: [openai/gpt-5]
  overrides_file: models.yaml
redis:
  enabled: true
  addrs: ["cache:6379"]
minio:
  enabled: true
  endpoint: minio:9000
  access_key_id: ak
  secret_access_key: sk
  bucket: uploads
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-5-mini", cfg.Gateway.Model)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, catalog.QualityHigh, cfg.Budget())
	assert.Equal(t, []string{"openai/gpt-5"}, cfg.SelectOptions().Prefer)
	assert.Equal(t, []string{"cache:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, "uploads", cfg.MinIO.Bucket)

	cc := cfg.ClientConfig()
	assert.Equal(t, "openai/gpt-5-mini", cc.Model)
	assert.Equal(t, 30*time.Second, cc.Timeout)
	assert.Equal(t, "research", cc.Headers["x-team"])
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("catalog:\n  budget: ultra\n"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	bad = filepath.Join(dir, "bad-minio.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("minio:\n  enabled: true\n"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}
