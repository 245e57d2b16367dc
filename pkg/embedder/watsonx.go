package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sjvalley/go-airchat/pkg/watsonx"
)

const watsonxEmbeddingsVersion = "2023-10-25"

// WatsonxEmbedder implements the Client interface for IBM watsonx.ai
// embedding models (slate retrieval models).
type WatsonxEmbedder struct {
	config     *WatsonxConfig
	tokens     *watsonx.TokenSource
	httpClient *http.Client
}

// WatsonxConfig extends Config with watsonx-specific settings.
type WatsonxConfig struct {
	*Config
	APIKey    string `json:"api_key"`
	ProjectID string `json:"project_id"`
	// TruncateInputTokens caps the tokens considered per input text.
	TruncateInputTokens int `json:"truncate_input_tokens"`
	// TokenURL overrides the IAM token endpoint, used in tests.
	TokenURL string `json:"token_url,omitempty"`
}

// NewWatsonxEmbedder creates a new watsonx.ai embedder.
func NewWatsonxEmbedder(config *WatsonxConfig) *WatsonxEmbedder {
	if config.Model == "" {
		config.Model = "ibm/slate-125m-english-rtrvr-v2"
	}
	if config.Dimensions == 0 {
		config.Dimensions = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.TruncateInputTokens == 0 {
		config.TruncateInputTokens = 500
	}

	return &WatsonxEmbedder{
		config: config,
		tokens: watsonx.NewTokenSource(config.APIKey, config.TokenURL),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// watsonxEmbeddingRequest represents the embeddings request body.
type watsonxEmbeddingRequest struct {
	ModelID    string                  `json:"model_id"`
	Inputs     []string                `json:"inputs"`
	ProjectID  string                  `json:"project_id"`
	Parameters *watsonxEmbeddingParams `json:"parameters,omitempty"`
}

type watsonxEmbeddingParams struct {
	TruncateInputTokens int `json:"truncate_input_tokens,omitempty"`
}

// watsonxEmbeddingResponse represents the embeddings response body.
type watsonxEmbeddingResponse struct {
	Results []watsonxEmbeddingResult `json:"results"`
}

type watsonxEmbeddingResult struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates embeddings for the given texts.
func (e *WatsonxEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var allEmbeddings [][]float32

	for i := 0; i < len(texts); i += e.config.BatchSize {
		end := i + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]
		embeddings, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}

		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *WatsonxEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
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
func (e *WatsonxEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close cleans up resources (no-op for watsonx embedder).
func (e *WatsonxEmbedder) Close() error {
	return nil
}

func (e *WatsonxEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := watsonxEmbeddingRequest{
		ModelID:   e.config.Model,
		Inputs:    texts,
		ProjectID: e.config.ProjectID,
		Parameters: &watsonxEmbeddingParams{
			TruncateInputTokens: e.config.TruncateInputTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/ml/v1/text/embeddings?version=%s", strings.TrimRight(e.config.BaseURL, "/"), watsonxEmbeddingsVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watsonx embeddings request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var embResp watsonxEmbeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(embResp.Results) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embResp.Results))
	}

	embeddings := make([][]float32, len(embResp.Results))
	for i, result := range embResp.Results {
		embeddings[i] = result.Embedding
	}
	return embeddings, nil
}
