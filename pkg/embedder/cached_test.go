package embedder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjvalley/go-airchat/pkg/cache"
)

type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Set(key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryCache) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memoryCache) Close() error { return nil }

type countingEmbedder struct {
	calls int
	texts []string
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts = append(c.texts, texts...)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *countingEmbedder) Dimensions() int { return 1 }

func (c *countingEmbedder) Close() error { return nil }

func TestCachedEmbedderHitsCacheOnSecondCall(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, newMemoryCache(), "test-model", time.Hour)

	ctx := context.Background()
	first, err := e.Embed(ctx, []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	second, err := e.Embed(ctx, []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second call should be served from cache")
	assert.Equal(t, first, second)
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, newMemoryCache(), "test-model", time.Hour)

	ctx := context.Background()
	_, err := e.Embed(ctx, []string{"cached"})
	require.NoError(t, err)

	vecs, err := e.Embed(ctx, []string{"cached", "fresh"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []string{"cached", "fresh"}, inner.texts)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedderKeyIncludesModel(t *testing.T) {
	c := newMemoryCache()
	inner := &countingEmbedder{}

	a := NewCachedEmbedder(inner, c, "model-a", time.Hour)
	b := NewCachedEmbedder(inner, c, "model-b", time.Hour)

	ctx := context.Background()
	_, err := a.Embed(ctx, []string{"same text"})
	require.NoError(t, err)
	_, err = b.Embed(ctx, []string{"same text"})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "different models must not share cache entries")
}

func TestCachedEmbedderEmptyInput(t *testing.T) {
	e := NewCachedEmbedder(&countingEmbedder{}, newMemoryCache(), "m", time.Hour)
	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}
