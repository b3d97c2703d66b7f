package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/redis"
)

type fakeLister struct {
	calls  atomic.Int32
	models []types.Model
	err    error
}

func (l *fakeLister) ListModels(context.Context) ([]types.Model, error) {
	l.calls.Add(1)
	return l.models, l.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestFetcher(lister ModelLister, cache ListingCache) (*Fetcher, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)}
	f := NewFetcher(lister, cache, logger.NewNop())
	f.now = clock.Now
	return f, clock
}

func TestFetchCachesWithinTTL(t *testing.T) {
	lister := &fakeLister{models: []types.Model{
		{ID: "a/one", Name: "One", ContextLength: 32000},
		{ID: "b/two", Name: "Two"},
	}}
	f, clock := newTestFetcher(lister, nil)
	ctx := context.Background()

	cat, err := f.Fetch(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	assert.Equal(t, 32000, cat[0].ContextWindow)
	assert.Equal(t, DefaultContextWindow, cat[1].ContextWindow)
	assert.Equal(t, "One", cat[0].Label)
	assert.False(t, cat[0].HasVision())
	assert.Equal(t, "openrouter-list", cat[0].Pricing.PricingSource)

	clock.Advance(59 * time.Second)
	_, err = f.Fetch(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(1), lister.calls.Load())

	clock.Advance(time.Second)
	_, err = f.Fetch(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), lister.calls.Load())

	require.NoError(t, f.Invalidate(ctx))
	_, err = f.Fetch(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(3), lister.calls.Load())
}

func TestFetchEmptyListingNotCached(t *testing.T) {
	lister := &fakeLister{}
	f, _ := newTestFetcher(lister, nil)

	for range 2 {
		cat, err := f.Fetch(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, cat)
	}
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestFetchError(t *testing.T) {
	boom := errors.New("upstream down")
	f, _ := newTestFetcher(&fakeLister{err: boom}, nil)

	_, err := f.Fetch(context.Background(), time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestFetchRejectsEmptyID(t *testing.T) {
	lister := &fakeLister{models: []types.Model{{ID: "a/one"}, {Name: "no id"}}}
	f, _ := newTestFetcher(lister, nil)

	_, err := f.Fetch(context.Background(), time.Minute)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Index)
	assert.Equal(t, "id", ve.Field)
}

func TestFetchConcurrentMissesShareCall(t *testing.T) {
	lister := &fakeLister{models: []types.Model{{ID: "a/one"}}}
	f, _ := newTestFetcher(lister, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Fetch(context.Background(), time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), lister.calls.Load())
}

type memKV struct {
	data    map[string]string
	expires map[string]time.Duration
	getErr  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, expires: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.expires[key] = exp
	return nil
}

func (m *memKV) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func TestRedisCache(t *testing.T) {
	kv := newMemKV()
	cache := NewRedisCache(kv, "")
	ctx := context.Background()
	at := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := cache.Get(ctx, at)
	require.NoError(t, err)
	assert.False(t, ok)

	one, err := NewSpec("a/one", "One", true, false)
	require.NoError(t, err)
	cat := Catalog{one}
	require.NoError(t, cache.Set(ctx, cat, at, time.Minute))
	assert.Equal(t, time.Minute, kv.expires[DefaultCacheKey])

	got, ok, err := cache.Get(ctx, at.Add(30*time.Second))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cat, got)

	_, ok, _ = cache.Get(ctx, at.Add(time.Minute))
	assert.False(t, ok)

	kv.data[DefaultCacheKey] = "{not json"
	_, ok, err = cache.Get(ctx, at)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Invalidate(ctx))
	assert.Empty(t, kv.data)

	kv.getErr = errors.New("connection refused")
	_, _, err = cache.Get(ctx, at)
	assert.Error(t, err)
}

func TestFetchWithFailingCache(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("connection refused")
	lister := &fakeLister{models: []types.Model{{ID: "a/one"}}}
	f, _ := newTestFetcher(lister, NewRedisCache(kv, "k"))

	cat, err := f.Fetch(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Len(t, cat, 1)
	assert.Contains(t, kv.data, "k")
}
