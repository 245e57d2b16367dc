package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// corpusPageSize bounds a corpus load to one search page, matching the
// sizing the retrieval pipeline was tuned against.
const corpusPageSize = 1000

// ElasticsearchStore implements Store on an Elasticsearch index with a
// dense_vector field for embeddings.
type ElasticsearchStore struct {
	client     *elasticsearch.Client
	index      string
	dimensions int
}

// ElasticsearchConfig holds connection settings for the store.
type ElasticsearchConfig struct {
	URL             string
	Username        string
	Password        string
	CertFingerprint string
	Index           string
	Dimensions      int
}

// NewElasticsearchStore creates a store connected to the configured
// cluster. The index is not created until EnsureIndex is called.
func NewElasticsearchStore(cfg ElasticsearchConfig) (*ElasticsearchStore, error) {
	if cfg.Index == "" {
		return nil, fmt.Errorf("elasticsearch index name is required")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:              []string{cfg.URL},
		Username:               cfg.Username,
		Password:               cfg.Password,
		CertificateFingerprint: cfg.CertFingerprint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchStore{
		client:     client,
		index:      cfg.Index,
		dimensions: cfg.Dimensions,
	}, nil
}

// esHit mirrors the hit envelope in an Elasticsearch search response.
type esHit struct {
	ID     string   `json:"_id"`
	Score  float64  `json:"_score"`
	Source esSource `json:"_source"`
}

type esSource struct {
	Content    string `json:"content"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	ChunkIndex int    `json:"chunk_index"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

// EnsureIndex creates the index with the chunk mapping when it does not
// already exist. Changing the mapping requires deleting and re-creating
// the index.
func (s *ElasticsearchStore) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status %d checking index %q", res.StatusCode, s.index)
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"content":     map[string]interface{}{"type": "text"},
				"url":         map[string]interface{}{"type": "keyword"},
				"title":       map[string]interface{}{"type": "text"},
				"chunk_index": map[string]interface{}{"type": "integer"},
				"embedding": map[string]interface{}{
					"type": "dense_vector",
					"dims": s.dimensions,
				},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createRes, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %q: %w", s.index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index creation failed: %s", responseError(createRes))
	}
	return nil
}

// IndexChunk stores one document chunk.
func (s *ElasticsearchStore) IndexChunk(ctx context.Context, doc Document) error {
	source := map[string]interface{}{
		"content":     doc.Content,
		"url":         doc.URL,
		"title":       doc.Title,
		"chunk_index": doc.ChunkIndex,
		"embedding":   doc.Embedding,
	}
	body, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		s.client.Index.WithContext(ctx),
	}
	if doc.ID != "" {
		opts = append(opts, s.client.Index.WithDocumentID(doc.ID))
	}

	res, err := s.client.Index(s.index, bytes.NewReader(body), opts...)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing failed: %s", responseError(res))
	}
	return nil
}

// KeywordSearch runs a lexical multi_match query over content and title.
func (s *ElasticsearchStore) KeywordSearch(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		k = 10
	}
	body := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"content^2", "title"},
			},
		},
	}
	return s.search(ctx, body)
}

// VectorSearch runs a cosine-similarity script_score query against stored
// embeddings. Scores are shifted by +1 so they stay non-negative.
func (s *ElasticsearchStore) VectorSearch(ctx context.Context, vector []float32, k int) ([]Document, error) {
	if k <= 0 {
		k = 10
	}
	body := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": map[string]interface{}{"match_all": map[string]interface{}{}},
				"script": map[string]interface{}{
					"source": "cosineSimilarity(params.query_vector, 'embedding') + 1.0",
					"params": map[string]interface{}{"query_vector": vector},
				},
			},
		},
	}
	return s.search(ctx, body)
}

// Enrich re-fetches a document so reranked results carry full metadata.
func (s *ElasticsearchStore) Enrich(ctx context.Context, doc Document) (Document, error) {
	var query map[string]interface{}
	switch {
	case doc.URL != "" && doc.ChunkIndex >= 0:
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"url": doc.URL}},
					map[string]interface{}{"term": map[string]interface{}{"chunk_index": doc.ChunkIndex}},
				},
			},
		}
	case doc.URL != "":
		query = map[string]interface{}{
			"term": map[string]interface{}{"url": doc.URL},
		}
	default:
		query = map[string]interface{}{
			"match": map[string]interface{}{"content": doc.Content},
		}
	}

	docs, err := s.search(ctx, map[string]interface{}{"size": 1, "query": query})
	if err != nil {
		return doc, err
	}
	if len(docs) == 0 {
		// Nothing better in the index, keep what we have.
		return doc, nil
	}
	return docs[0], nil
}

// LoadCorpus returns the indexed corpus for in-process lexical scoring.
func (s *ElasticsearchStore) LoadCorpus(ctx context.Context) ([]Document, error) {
	body := map[string]interface{}{
		"size":  corpusPageSize,
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	return s.search(ctx, body)
}

// DeleteIndex removes the index entirely.
func (s *ElasticsearchStore) DeleteIndex(ctx context.Context) error {
	res, err := s.client.Indices.Delete([]string{s.index}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete index %q: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("index deletion failed: %s", responseError(res))
	}
	return nil
}

// Ping verifies connectivity to the cluster.
func (s *ElasticsearchStore) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", responseError(res))
	}
	return nil
}

// Close releases client resources (no-op, the underlying transport is
// managed by the client).
func (s *ElasticsearchStore) Close() error {
	return nil
}

func (s *ElasticsearchStore) search(ctx context.Context, body map[string]interface{}) ([]Document, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(raw)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", responseError(res))
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, Document{
			ID:         hit.ID,
			Content:    hit.Source.Content,
			URL:        hit.Source.URL,
			Title:      hit.Source.Title,
			ChunkIndex: hit.Source.ChunkIndex,
			Score:      hit.Score,
		})
	}
	return docs, nil
}

func responseError(res *esapi.Response) string {
	msg, err := io.ReadAll(res.Body)
	if err != nil {
		return res.Status()
	}
	return fmt.Sprintf("%s: %s", res.Status(), string(msg))
}
