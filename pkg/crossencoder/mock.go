package crossencoder

import (
	"context"
	"sort"
	"strings"
)

// MockClient ranks passages with a word-overlap heuristic. It is meant
// for tests and local development without a reranking service.
type MockClient struct {
	config Config
}

// NewMockClient creates a new mock reranker.
func NewMockClient(config Config) *MockClient {
	return &MockClient{config: config}
}

// Rank scores passages by query word overlap and sorts them best first.
func (c *MockClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}

	queryLower := strings.ToLower(query)
	queryWords := make(map[string]bool)
	for _, word := range strings.Fields(queryLower) {
		queryWords[word] = true
	}

	results := make([]RankedPassage, 0, len(passages))
	for i, passage := range passages {
		results = append(results, RankedPassage{
			Index:   i,
			Passage: passage,
			Score:   c.similarity(queryLower, queryWords, passage),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if c.config.TopK > 0 && len(results) > c.config.TopK {
		results = results[:c.config.TopK]
	}
	return results, nil
}

func (c *MockClient) similarity(queryLower string, queryWords map[string]bool, passage string) float64 {
	passageLower := strings.ToLower(passage)
	if strings.Contains(passageLower, queryLower) {
		return 0.9
	}

	passageWords := strings.Fields(passageLower)
	if len(queryWords) == 0 || len(passageWords) == 0 {
		return 0.0
	}

	matchCount := 0
	for _, word := range passageWords {
		if queryWords[word] {
			matchCount++
		}
	}

	union := float64(len(queryWords) + len(passageWords) - matchCount)
	if union == 0 {
		return 0.0
	}
	return float64(matchCount) / union
}

// Close cleans up any resources used by the client
func (c *MockClient) Close() error {
	return nil
}
