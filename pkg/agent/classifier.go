package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sjvalley/go-airchat/pkg/llm"
	"github.com/sjvalley/go-airchat/pkg/prompts"
)

// Classifier routes queries to the air quality or retrieval branch.
type Classifier struct {
	llm    llm.Client
	logger *slog.Logger
}

// NewClassifier creates a query classifier.
func NewClassifier(client llm.Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{llm: client, logger: logger}
}

// Classify labels a query as air_quality or general. Only the first
// line of model output is considered; anything unexpected falls back to
// general.
func (c *Classifier) Classify(ctx context.Context, query string) (QueryType, error) {
	resp, err := c.llm.Chat(ctx, prompts.Classify(query))
	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}

	label := resp.Content
	if idx := strings.IndexByte(label, '\n'); idx >= 0 {
		label = label[:idx]
	}
	label = strings.ToLower(strings.TrimSpace(label))

	switch QueryType(label) {
	case QueryTypeAirQuality, QueryTypeGeneral:
		return QueryType(label), nil
	default:
		c.logger.Debug("unexpected classifier label, defaulting to general", "label", label)
		return QueryTypeGeneral, nil
	}
}
