package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultMaxRetries bounds retry attempts for transient embedding failures.
const DefaultMaxRetries = 3

// OpenAIEmbedder implements the Client interface for OpenAI's embedding
// models. Supports OpenAI-compatible services through custom BaseURL
// configuration.
type OpenAIEmbedder struct {
	client     *openai.Client
	config     Config
	maxRetries int
}

// NewOpenAIEmbedder creates a new OpenAI embedder client.
func NewOpenAIEmbedder(apiKey string, config Config) *OpenAIEmbedder {
	var client *openai.Client

	if config.BaseURL != "" {
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = config.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		client = openai.NewClient(apiKey)
	}

	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.Dimensions == 0 {
		switch config.Model {
		case "text-embedding-ada-002", "text-embedding-3-small":
			config.Dimensions = 1536
		case "text-embedding-3-large":
			config.Dimensions = 3072
		}
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &OpenAIEmbedder{
		client:     client,
		config:     config,
		maxRetries: config.MaxRetries,
	}
}

// Embed generates embeddings for multiple texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var allEmbeddings [][]float32

	// Process in batches
	for i := 0; i < len(texts); i += e.config.BatchSize {
		end := i + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]
		batchEmbeddings, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}

		allEmbeddings = append(allEmbeddings, batchEmbeddings...)
	}

	return allEmbeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return embeddings[0], nil
}

// Dimensions returns the number of dimensions in the embeddings.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close cleans up resources (no-op for OpenAI embedder).
func (e *OpenAIEmbedder) Close() error {
	return nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastError error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt) * time.Second
			slog.Warn("retrying embedding request", "backoff", backoff, "attempt", attempt+1, "max", e.maxRetries+1)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req := openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.config.Model),
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			lastError = err

			if isRetriableEmbeddingError(err) && attempt < e.maxRetries {
				continue
			}

			return nil, fmt.Errorf("openai embedding request failed: %w", err)
		}

		embeddings := make([][]float32, len(resp.Data))
		for i, embedding := range resp.Data {
			vec := make([]float32, len(embedding.Embedding))
			copy(vec, embedding.Embedding)
			embeddings[i] = vec
		}

		return embeddings, nil
	}

	return nil, fmt.Errorf("all retries exhausted, last error: %w", lastError)
}

// isRetriableEmbeddingError determines if an embedding error should trigger
// a retry.
func isRetriableEmbeddingError(err error) bool {
	errStr := strings.ToLower(err.Error())
	retriable := []string{
		"rate limit",
		"rate_limit",
		"timeout",
		"connection reset",
		"temporary failure",
		"service unavailable",
		"502",
		"503",
		"504",
	}
	for _, marker := range retriable {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
