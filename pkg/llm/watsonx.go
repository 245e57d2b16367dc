package llm

import (
	"bufio"
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

const watsonxAPIVersion = "2023-05-29"

// WatsonxClient implements the Client interface for IBM watsonx.ai
// foundation models using the text generation API.
type WatsonxClient struct {
	config     WatsonxConfig
	tokens     *watsonx.TokenSource
	httpClient *http.Client
}

// WatsonxConfig extends Config with watsonx-specific settings.
type WatsonxConfig struct {
	Config
	APIKey    string `json:"api_key"`
	ProjectID string `json:"project_id"`
	// TokenURL overrides the IAM token endpoint, used in tests.
	TokenURL string `json:"token_url,omitempty"`
}

// NewWatsonxClient creates a new watsonx.ai text generation client.
func NewWatsonxClient(config WatsonxConfig) *WatsonxClient {
	if config.Model == "" {
		config.Model = "ibm/granite-3-3-8b-instruct"
	}

	return &WatsonxClient{
		config: config,
		tokens: watsonx.NewTokenSource(config.APIKey, config.TokenURL),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// watsonxParameters holds decoding parameters for text generation.
type watsonxParameters struct {
	DecodingMethod string  `json:"decoding_method"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	MinNewTokens   int     `json:"min_new_tokens"`
	Temperature    float32 `json:"temperature,omitempty"`
	TopK           int     `json:"top_k,omitempty"`
	TopP           float32 `json:"top_p,omitempty"`
}

// watsonxGenerationRequest represents the text generation request body.
type watsonxGenerationRequest struct {
	ModelID    string            `json:"model_id"`
	Input      string            `json:"input"`
	Parameters watsonxParameters `json:"parameters"`
	ProjectID  string            `json:"project_id"`
}

// watsonxGenerationResult represents one generation result.
type watsonxGenerationResult struct {
	GeneratedText       string `json:"generated_text"`
	GeneratedTokenCount int    `json:"generated_token_count"`
	InputTokenCount     int    `json:"input_token_count"`
	StopReason          string `json:"stop_reason"`
}

// watsonxGenerationResponse represents the text generation response body.
type watsonxGenerationResponse struct {
	Results []watsonxGenerationResult `json:"results"`
}

// Chat sends a text generation request to watsonx.ai.
func (c *WatsonxClient) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	body, err := c.buildRequestBody(messages)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/ml/v1/text/generation?version=%s", strings.TrimRight(c.config.BaseURL, "/"), watsonxAPIVersion)
	respBody, err := c.post(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	var genResp watsonxGenerationResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal watsonx response: %w", err)
	}
	if len(genResp.Results) == 0 {
		return nil, fmt.Errorf("no results returned from watsonx")
	}

	result := genResp.Results[0]
	return &Response{
		Content:      result.GeneratedText,
		FinishReason: result.StopReason,
		TokensUsed: &TokenUsage{
			PromptTokens:     result.InputTokenCount,
			CompletionTokens: result.GeneratedTokenCount,
			TotalTokens:      result.InputTokenCount + result.GeneratedTokenCount,
		},
	}, nil
}

// ChatStream sends a streaming generation request. watsonx streams
// server-sent events where each data payload carries one generation chunk.
func (c *WatsonxClient) ChatStream(ctx context.Context, messages []Message, onToken func(token string)) (*Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	body, err := c.buildRequestBody(messages)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/ml/v1/text/generation_stream?version=%s", strings.TrimRight(c.config.BaseURL, "/"), watsonxAPIVersion)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("watsonx stream request failed with status %d: %s", resp.StatusCode, string(errBody))
	}

	var content strings.Builder
	var finishReason string

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk watsonxGenerationResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		for _, result := range chunk.Results {
			if result.GeneratedText != "" {
				content.WriteString(result.GeneratedText)
				if onToken != nil {
					onToken(result.GeneratedText)
				}
			}
			if result.StopReason != "" && result.StopReason != "not_finished" {
				finishReason = result.StopReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("watsonx stream read failed: %w", err)
	}

	return &Response{
		Content:      content.String(),
		FinishReason: finishReason,
	}, nil
}

// Close cleans up resources (no-op for watsonx client).
func (c *WatsonxClient) Close() error {
	return nil
}

func (c *WatsonxClient) buildRequestBody(messages []Message) ([]byte, error) {
	params := watsonxParameters{
		DecodingMethod: "sample",
		MaxNewTokens:   512,
		MinNewTokens:   1,
	}
	if c.config.MaxTokens != nil {
		params.MaxNewTokens = *c.config.MaxTokens
	}
	if c.config.Temperature != nil {
		params.Temperature = *c.config.Temperature
	}
	if c.config.TopK != nil {
		params.TopK = *c.config.TopK
	}
	if c.config.TopP != nil {
		params.TopP = *c.config.TopP
	}

	req := watsonxGenerationRequest{
		ModelID:    c.config.Model,
		Input:      RenderGranitePrompt(messages),
		Parameters: params,
		ProjectID:  c.config.ProjectID,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

func (c *WatsonxClient) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watsonx request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// RenderGranitePrompt renders chat messages into the granite instruct
// prompt format expected by the raw text generation endpoint.
func RenderGranitePrompt(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString("<|start_of_role|>")
		b.WriteString(string(msg.Role))
		b.WriteString("<|end_of_role|>")
		b.WriteString(msg.Content)
		b.WriteString("<|end_of_text|>\n")
	}
	b.WriteString("<|start_of_role|>assistant<|end_of_role|>\n")
	return b.String()
}
