package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

// recordingStore collects indexed chunks in memory.
type recordingStore struct {
	docs        []vectorstore.Document
	ensureCalls int
	pingErr     error
}

func (s *recordingStore) EnsureIndex(ctx context.Context) error {
	s.ensureCalls++
	return nil
}

func (s *recordingStore) IndexChunk(ctx context.Context, doc vectorstore.Document) error {
	s.docs = append(s.docs, doc)
	return nil
}

func (s *recordingStore) KeywordSearch(ctx context.Context, q string, k int) ([]vectorstore.Document, error) {
	return nil, nil
}

func (s *recordingStore) VectorSearch(ctx context.Context, v []float32, k int) ([]vectorstore.Document, error) {
	return nil, nil
}

func (s *recordingStore) Enrich(ctx context.Context, d vectorstore.Document) (vectorstore.Document, error) {
	return d, nil
}

func (s *recordingStore) LoadCorpus(ctx context.Context) ([]vectorstore.Document, error) {
	return s.docs, nil
}

func (s *recordingStore) DeleteIndex(ctx context.Context) error { return nil }
func (s *recordingStore) Ping(ctx context.Context) error        { return s.pingErr }
func (s *recordingStore) Close() error                          { return nil }

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

func (stubEmbedder) Dimensions() int { return 3 }
func (stubEmbedder) Close() error    { return nil }

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIndexerRun(t *testing.T) {
	chunker := newTestChunker(t, 1000, 500)
	dir := t.TempDir()

	writeTestFile(t, dir, "burning.md",
		"https://valleyair.org/burning\n\nWood burning is restricted in winter. Check the daily burn status before lighting a fire.\n")
	writeTestFile(t, dir, "noise_only.md",
		"https://valleyair.org/empty\n\nYour feedback will be used to help improve Google Translate\n")
	writeTestFile(t, dir, "notes.txt", "not markdown, must be ignored")

	store := &recordingStore{}
	ix := New(store, stubEmbedder{}, chunker, nil)

	total, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, store.ensureCalls)
	assert.Equal(t, 1, total)
	require.Len(t, store.docs, 1)

	doc := store.docs[0]
	assert.Equal(t, "https://valleyair.org/burning", doc.URL)
	assert.Equal(t, "burning.md", doc.Title)
	assert.Equal(t, 0, doc.ChunkIndex)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, []float32{1, 2, 3}, doc.Embedding)
	assert.Contains(t, doc.Content, "Wood burning is restricted")
	assert.NotContains(t, doc.Content, "Google Translate")
}

func TestIndexerRunChunkIndexesAreSequential(t *testing.T) {
	chunker := newTestChunker(t, 120, 500)
	dir := t.TempDir()

	var content string
	for i := 0; i < 12; i++ {
		content += fmt.Sprintf("Sentence number %d about grants and incentive program funding options. ", i)
	}
	writeTestFile(t, dir, "grants.md", "https://valleyair.org/grants\n\n"+content)

	store := &recordingStore{}
	ix := New(store, stubEmbedder{}, chunker, nil)

	total, err := ix.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Greater(t, total, 1)

	for i, doc := range store.docs {
		assert.Equal(t, i, doc.ChunkIndex)
		assert.Equal(t, "https://valleyair.org/grants", doc.URL)
	}
}

func TestCheckConnections(t *testing.T) {
	chunker := newTestChunker(t, 1000, 500)

	ix := New(&recordingStore{}, stubEmbedder{}, chunker, nil)
	assert.NoError(t, ix.CheckConnections(context.Background()))

	ix = New(&recordingStore{pingErr: fmt.Errorf("no route to host")}, stubEmbedder{}, chunker, nil)
	err := ix.CheckConnections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector store unreachable")
}

func TestIsNoiseLine(t *testing.T) {
	assert.True(t, isNoiseLine(""))
	assert.True(t, isNoiseLine("   "))
	assert.True(t, isNoiseLine("*   *   *   *   *   *   *"))
	assert.False(t, isNoiseLine("Burn permits are available online."))
}
