package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/sjvalley/go-airchat/pkg/cache"
)

// CachedEmbedder wraps a Client with a persistent cache keyed by the model
// and text content. Re-indexing runs mostly hit the cache, which matters
// when the upstream embedding service is metered.
type CachedEmbedder struct {
	inner Client
	cache cache.Cache
	model string
	ttl   time.Duration
}

// NewCachedEmbedder wraps inner with the given cache. model is mixed into
// cache keys so switching models never serves stale vectors.
func NewCachedEmbedder(inner Client, c cache.Cache, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: c,
		model: model,
		ttl:   ttl,
	}
}

// Embed returns cached vectors where available and embeds the remainder in
// one upstream call, preserving input order.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	result := make([][]float32, len(texts))
	missing := make([]string, 0)
	missingIdx := make([]int, 0)

	for i, text := range texts {
		vec, err := e.lookup(text)
		if err == nil {
			result[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return result, nil
	}

	embedded, err := e.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, vec := range embedded {
		result[missingIdx[j]] = vec
		e.store(missing[j], vec)
	}

	return result, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *CachedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, errors.New("no embeddings returned")
	}
	return embeddings[0], nil
}

// Dimensions returns the number of dimensions in the embeddings.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the underlying client. The cache is owned by the caller.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + text))
	return "embed:" + hex.EncodeToString(sum[:])
}

func (e *CachedEmbedder) lookup(text string) ([]float32, error) {
	raw, err := e.cache.Get(e.key(text))
	if err != nil {
		return nil, err
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *CachedEmbedder) store(text string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	// Cache write failures are not fatal, the vector is already in hand.
	_ = e.cache.Set(e.key(text), raw, e.ttl)
}
