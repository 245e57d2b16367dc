package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sjvalley/go-airchat/pkg/llm"
	"github.com/sjvalley/go-airchat/pkg/prompts"
)

// QueryContextAgent generates semantic-search rewrites and BM25-style
// keywords for a user query.
type QueryContextAgent struct {
	llm    llm.Client
	logger *slog.Logger
}

// NewQueryContextAgent creates a query context agent.
func NewQueryContextAgent(client llm.Client, logger *slog.Logger) *QueryContextAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryContextAgent{llm: client, logger: logger}
}

type queryContextOutput struct {
	Rewrites []string `json:"rewrites"`
	Keywords []string `json:"keywords"`
}

// Expand returns three query rewrites and 5-7 retrieval keywords. When
// the model output cannot be parsed the raw query serves as the single
// rewrite and its whitespace-split words as keywords.
func (a *QueryContextAgent) Expand(ctx context.Context, query string) (rewrites, keywords []string, err error) {
	resp, err := a.llm.Chat(ctx, prompts.RewriteAndKeywords(query))
	if err != nil {
		return nil, nil, err
	}

	var out queryContextOutput
	if err := llm.UnmarshalResponse(resp.Content, &out); err != nil || len(out.Rewrites) == 0 {
		a.logger.Warn("query context output unparseable, falling back to raw query", "error", err)
		return []string{query}, strings.Fields(query), nil
	}

	keywords = out.Keywords
	if len(keywords) == 0 {
		keywords = strings.Fields(query)
	}
	return out.Rewrites, keywords, nil
}
