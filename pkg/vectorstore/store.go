// Package vectorstore provides the Elasticsearch-backed document store
// holding crawled page chunks with their embeddings.
package vectorstore

import "context"

// Document represents one indexed page chunk with its source metadata.
type Document struct {
	ID         string    `json:"id,omitempty"`
	Content    string    `json:"content"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float64   `json:"score,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Store defines the operations the retrieval pipeline needs from the
// document store.
type Store interface {
	// EnsureIndex creates the index with the expected mapping when missing.
	EnsureIndex(ctx context.Context) error

	// IndexChunk stores one document chunk.
	IndexChunk(ctx context.Context, doc Document) error

	// KeywordSearch runs a lexical multi_match query over content and title.
	KeywordSearch(ctx context.Context, query string, k int) ([]Document, error)

	// VectorSearch runs a cosine-similarity search against stored embeddings.
	VectorSearch(ctx context.Context, vector []float32, k int) ([]Document, error)

	// Enrich re-fetches a document so every result carries full metadata.
	// Lookup prefers url+chunk_index, falls back to url, then to content.
	Enrich(ctx context.Context, doc Document) (Document, error)

	// LoadCorpus returns the indexed corpus for in-process lexical scoring.
	LoadCorpus(ctx context.Context) ([]Document, error)

	// DeleteIndex removes the index entirely.
	DeleteIndex(ctx context.Context) error

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error

	// Close releases client resources.
	Close() error
}
