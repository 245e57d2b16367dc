// Package indexer loads crawled markdown files, chunks them, embeds the
// chunks, and stores them in the vector store.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sjvalley/go-airchat/pkg/embedder"
	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

// noiseLines are boilerplate lines stripped from crawled pages before
// chunking.
var noiseLines = map[string]struct{}{
	"*   *   *   *   *   *   *": {},
	"You can search for the page or document that you are looking for here:": {},
	"For assistance or if you have any questions, please feel free to .":     {},
	"Your feedback will be used to help improve Google Translate":            {},
}

// Indexer ingests crawled markdown files into the vector store.
type Indexer struct {
	store    vectorstore.Store
	embedder embedder.Client
	chunker  *Chunker
	logger   *slog.Logger
}

// New creates an indexer.
func New(store vectorstore.Store, emb embedder.Client, chunker *Chunker, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:    store,
		embedder: emb,
		chunker:  chunker,
		logger:   logger,
	}
}

// CheckConnections verifies the store and the embedding service are
// reachable before a run touches any data.
func (ix *Indexer) CheckConnections(ctx context.Context) error {
	if err := ix.store.Ping(ctx); err != nil {
		return fmt.Errorf("vector store unreachable: %w", err)
	}
	if _, err := ix.embedder.EmbedSingle(ctx, "connection test"); err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	return nil
}

// Run indexes every markdown file in dir. Returns the number of chunks
// indexed.
func (ix *Indexer) Run(ctx context.Context, dir string) (int, error) {
	if err := ix.store.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read input directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		path := filepath.Join(dir, entry.Name())
		n, err := ix.indexFile(ctx, path)
		if err != nil {
			ix.logger.Warn("failed to index file", "file", path, "error", err)
			continue
		}
		total += n
		if n > 0 {
			ix.logger.Info("indexed", "file", entry.Name(), "chunks", n)
		}
	}
	return total, nil
}

// indexFile processes one crawled markdown file. The first line must be
// the page URL; the remainder is the page content.
func (ix *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	lines := strings.Split(string(raw), "\n")
	url := strings.TrimSpace(lines[0])

	filtered := make([]string, 0, len(lines))
	for _, line := range lines[1:] {
		if isNoiseLine(line) {
			continue
		}
		filtered = append(filtered, line)
	}
	content := strings.TrimSpace(strings.Join(filtered, "\n"))
	if content == "" {
		ix.logger.Debug("skipping file with no content after filtering", "file", path)
		return 0, nil
	}

	chunks := ix.chunker.Chunk(content)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := ix.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	title := filepath.Base(path)
	for i, chunk := range chunks {
		doc := vectorstore.Document{
			ID:         uuid.New().String(),
			Content:    chunk,
			URL:        url,
			Title:      title,
			ChunkIndex: i,
			Embedding:  vectors[i],
		}
		if err := ix.store.IndexChunk(ctx, doc); err != nil {
			return i, fmt.Errorf("failed to index chunk %d: %w", i, err)
		}
	}
	return len(chunks), nil
}

// isNoiseLine reports whether a line is boilerplate. Empty lines count
// as noise.
func isNoiseLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	_, ok := noiseLines[trimmed]
	return ok
}
