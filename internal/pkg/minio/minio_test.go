package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Endpoint: "localhost:9000", AccessKeyID: "ak", SecretAccessKey: "sk"}
	require.NoError(t, cfg.Validate())

	cfg.SetDefaults()
	assert.Equal(t, BucketLookupAuto, cfg.BucketLookup)

	for _, mutate := range []func(*Config){
		func(c *Config) { c.Endpoint = "" },
		func(c *Config) { c.AccessKeyID = "" },
		func(c *Config) { c.SecretAccessKey = "" },
		func(c *Config) { c.BucketLookup = "virtual" },
	} {
		c := *cfg
		mutate(&c)
		assert.Error(t, c.Validate())
	}

	_, err := NewClient(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWrapErrorNotFound(t *testing.T) {
	err := wrapError("OpenObject", minio.ErrorResponse{Code: "NoSuchKey", Message: "gone"}, "b", "k")
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "bucket=b, object=k")

	err = wrapError("OpenObject", errors.New("timeout"), "b", "")
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "minio: OpenObject failed for bucket=b: timeout", err.Error())

	assert.NoError(t, wrapError("x", nil, "", ""))
}

func TestClosedClient(t *testing.T) {
	c, err := NewClient(&Config{Endpoint: "localhost:9000", AccessKeyID: "ak", SecretAccessKey: "sk"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.OpenObject(context.Background(), "b", "k")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.PutObject(context.Background(), "b", "k", bytes.NewReader(nil), 0, "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestObjectIntegration(t *testing.T) {
	endpoint := os.Getenv("LLM_GATEWAY_TEST_MINIO")
	if endpoint == "" {
		t.Skip("LLM_GATEWAY_TEST_MINIO not set")
	}
	cfg := &Config{
		Endpoint:        endpoint,
		AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:          "llm-gateway-test",
	}
	c, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.PutObject(ctx, cfg.Bucket, "it/hello.txt", bytes.NewReader([]byte("hello")), 5, "text/plain")
	require.NoError(t, err)

	obj, err := c.OpenObject(ctx, cfg.Bucket, "it/hello.txt")
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = c.OpenObject(ctx, cfg.Bucket, "it/missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
