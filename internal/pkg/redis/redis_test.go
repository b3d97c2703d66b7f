package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"no addrs", func(c *Config) { c.Addrs = nil }, true},
		{"sentinel without master", func(c *Config) { c.Mode = ModeSentinel }, true},
		{"sentinel", func(c *Config) { c.Mode = ModeSentinel; c.MasterName = "mymaster" }, false},
		{"cluster", func(c *Config) { c.Mode = ModeCluster; c.Addrs = []string{"a:1", "b:2"} }, false},
		{"bad mode", func(c *Config) { c.Mode = "ring" }, true},
		{"bad db", func(c *Config) { c.DB = 16 }, true},
		{"idle over pool", func(c *Config) { c.MinIdleConns = 20 }, true},
		{"no dial timeout", func(c *Config) { c.DialTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestUniversalOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addrs = []string{"a:1", "b:2"}
	assert.Equal(t, []string{"a:1"}, cfg.universalOptions().Addrs)

	cfg.Mode = ModeCluster
	opts := cfg.universalOptions()
	assert.True(t, opts.IsClusterMode)
	assert.Len(t, opts.Addrs, 2)

	cfg.Mode = ModeSentinel
	cfg.MasterName = "mymaster"
	cfg.EnableTLS = true
	opts = cfg.universalOptions()
	assert.Equal(t, "mymaster", opts.MasterName)
	require.NotNil(t, opts.TLSConfig)
}

func TestClientIntegration(t *testing.T) {
	addr := os.Getenv("LLM_GATEWAY_TEST_REDIS")
	if addr == "" {
		t.Skip("LLM_GATEWAY_TEST_REDIS not set")
	}
	cfg := DefaultConfig()
	cfg.Addrs = []string{addr}
	c, err := New(cfg, logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key := "llm-gateway:test:" + time.Now().Format("150405.000")
	_, err = c.Get(ctx, key)
	assert.True(t, IsNil(err))

	require.NoError(t, c.Set(ctx, key, "v", time.Minute))
	v, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	n, err := c.Del(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
