package crossencoder

import "context"

// RankedPassage is a passage with its relevance score for a query.
// Index refers to the passage's position in the input slice so callers
// can map results back to richer documents.
type RankedPassage struct {
	Index   int     `json:"index"`
	Passage string  `json:"passage"`
	Score   float64 `json:"score"`
}

// Client defines the interface for cross-encoder models that rank
// passages by relevance to a query.
type Client interface {
	// Rank returns the passages sorted in descending order of relevance
	// to the query.
	Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error)

	// Close cleans up any resources used by the client
	Close() error
}

// Config holds common configuration for cross-encoder clients.
type Config struct {
	// Model specifies the model to use for ranking
	Model string `json:"model,omitempty"`

	// TopK limits how many ranked passages are returned. Zero means all.
	TopK int `json:"top_k,omitempty"`
}
