package crossencoder

// This file implements a client for Jina-compatible reranking APIs.
// Any service implementing the specification works:
// - Jina AI reranking service (https://api.jina.ai/v1/rerank)
// - vLLM with cross-encoder models (http://localhost:8000/v1/rerank)
// - Text Embeddings Inference with a reranker model
//
// The API expects a POST /rerank with model, query, documents and an
// optional top_n, and returns a results array of index/document/
// relevance_score entries.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker"
)

// RerankerClient ranks passages through a Jina-compatible HTTP API.
type RerankerClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	config     Config
}

// RerankRequest is the request body for Jina-compatible rerank APIs.
type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      *int     `json:"top_n,omitempty"`
}

// RerankResponse is the response body from Jina-compatible rerank APIs.
type RerankResponse struct {
	Results []RankedResult `json:"results"`
	Model   string         `json:"model"`
}

// RankedResult is a single ranking result.
type RankedResult struct {
	Index          int     `json:"index"`
	Document       string  `json:"document"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankerConfig holds configuration for Jina-compatible reranking
// services.
type RerankerConfig struct {
	Config
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
}

// NewRerankerClient creates a client for a Jina-compatible reranking
// service.
func NewRerankerClient(config RerankerConfig) *RerankerClient {
	if config.Model == "" {
		config.Model = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000/v1"
	}

	return &RerankerClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "reranker",
		}),
		config: config.Config,
	}
}

// Rank ranks the given passages by relevance to the query. Results keep
// the input index of each passage and are sorted best first.
func (c *RerankerClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}

	request := RerankRequest{
		Model:     c.config.Model,
		Query:     query,
		Documents: passages,
	}
	if c.config.TopK > 0 {
		topN := c.config.TopK
		request.TopN = &topN
	}

	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRerank(ctx, requestBytes)
	})
	if err != nil {
		return nil, err
	}
	rerankResponse := raw.(*RerankResponse)

	results := make([]RankedPassage, len(rerankResponse.Results))
	for i, result := range rerankResponse.Results {
		passage := result.Document
		if passage == "" && result.Index >= 0 && result.Index < len(passages) {
			// Some services omit the document text from results.
			passage = passages[result.Index]
		}
		results[i] = RankedPassage{
			Index:   result.Index,
			Passage: passage,
			Score:   result.RelevanceScore,
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if c.config.TopK > 0 && len(results) > c.config.TopK {
		results = results[:c.config.TopK]
	}
	return results, nil
}

func (c *RerankerClient) doRerank(ctx context.Context, body []byte) (*RerankResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank request failed with status %d: %s", resp.StatusCode, string(responseBytes))
	}

	var rerankResponse RerankResponse
	if err := json.Unmarshal(responseBytes, &rerankResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &rerankResponse, nil
}

// Close cleans up any resources used by the client
func (c *RerankerClient) Close() error {
	return nil
}
