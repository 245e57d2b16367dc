package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sjvalley/go-airchat/pkg/bm25"
	"github.com/sjvalley/go-airchat/pkg/crossencoder"
	"github.com/sjvalley/go-airchat/pkg/embedder"
	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

const (
	// candidatesPerRetriever bounds each retrieval leg before fusion.
	candidatesPerRetriever = 10

	// defaultFinalTopK is how many passages survive reranking.
	defaultFinalTopK = 4

	// rrfK is the RRF smoothing constant.
	rrfK = 60
)

// RetrievalAgent performs hybrid retrieval: in-process BM25 over the
// loaded corpus plus vector search in the store, fused, reranked by a
// cross-encoder, and enriched with full metadata.
type RetrievalAgent struct {
	store    vectorstore.Store
	embedder embedder.Client
	reranker crossencoder.Client
	logger   *slog.Logger
	topK     int
	useRRF   bool

	mu     sync.RWMutex
	corpus []vectorstore.Document
	index  *bm25.Index
}

// NewRetrievalAgent creates a retrieval agent. Call LoadCorpus before
// Retrieve, otherwise the corpus is loaded lazily on first use.
func NewRetrievalAgent(store vectorstore.Store, emb embedder.Client, reranker crossencoder.Client, topK int, logger *slog.Logger) *RetrievalAgent {
	if topK <= 0 {
		topK = defaultFinalTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalAgent{
		store:    store,
		embedder: emb,
		reranker: reranker,
		logger:   logger,
		topK:     topK,
	}
}

// UseRRFFusion switches candidate merging from URL dedupe to
// reciprocal rank fusion.
func (a *RetrievalAgent) UseRRFFusion() {
	a.useRRF = true
}

// LoadCorpus pulls the indexed corpus from the store and builds the
// BM25 index over it.
func (a *RetrievalAgent) LoadCorpus(ctx context.Context) error {
	corpus, err := a.store.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	contents := make([]string, len(corpus))
	for i, doc := range corpus {
		contents[i] = doc.Content
	}

	a.mu.Lock()
	a.corpus = corpus
	a.index = bm25.NewIndex(contents)
	a.mu.Unlock()

	a.logger.Info("corpus loaded for lexical retrieval", "documents", len(corpus))
	return nil
}

// Retrieve runs both retrieval legs for the query, merges and reranks
// the candidates, and returns the enriched top passages.
func (a *RetrievalAgent) Retrieve(ctx context.Context, userQuery string, rewrites, keywords []string) ([]vectorstore.Document, error) {
	a.mu.RLock()
	loaded := a.index != nil
	a.mu.RUnlock()
	if !loaded {
		if err := a.LoadCorpus(ctx); err != nil {
			return nil, err
		}
	}

	lexical := a.lexicalSearch(keywords)

	semantic, err := a.vectorSearch(ctx, userQuery, rewrites)
	if err != nil {
		return nil, err
	}

	// Vector hits win URL collisions since they carry metadata from the
	// store.
	var combined []vectorstore.Document
	if a.useRRF {
		combined = fuseRRF(semantic, lexical)
	} else {
		combined = mergeByURL(semantic, lexical)
	}
	if len(combined) == 0 {
		return nil, nil
	}

	passages := make([]string, len(combined))
	for i, doc := range combined {
		passages[i] = doc.Content
	}

	ranked, err := a.reranker.Rank(ctx, userQuery, passages)
	if err != nil {
		return nil, fmt.Errorf("reranking failed: %w", err)
	}
	if len(ranked) > a.topK {
		ranked = ranked[:a.topK]
	}

	results := make([]vectorstore.Document, 0, len(ranked))
	for _, rp := range ranked {
		if rp.Index < 0 || rp.Index >= len(combined) {
			continue
		}
		doc := combined[rp.Index]
		doc.Score = rp.Score

		enriched, err := a.store.Enrich(ctx, doc)
		if err != nil {
			a.logger.Warn("document enrichment failed", "url", doc.URL, "error", err)
			enriched = doc
		}
		enriched.Score = rp.Score
		results = append(results, enriched)
	}
	return results, nil
}

func (a *RetrievalAgent) lexicalSearch(keywords []string) []vectorstore.Document {
	a.mu.RLock()
	defer a.mu.RUnlock()

	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, bm25.Tokenize(kw)...)
	}

	hits := a.index.TopN(terms, candidatesPerRetriever)
	docs := make([]vectorstore.Document, 0, len(hits))
	for _, hit := range hits {
		doc := a.corpus[hit.Index]
		doc.Score = hit.Score
		docs = append(docs, doc)
	}
	return docs
}

func (a *RetrievalAgent) vectorSearch(ctx context.Context, userQuery string, rewrites []string) ([]vectorstore.Document, error) {
	query := userQuery
	if len(rewrites) > 0 {
		query = rewrites[0]
	}

	vector, err := a.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	docs, err := a.store.VectorSearch(ctx, vector, candidatesPerRetriever)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return docs, nil
}

// mergeByURL deduplicates candidates by URL. Earlier lists win
// collisions; documents without a URL are always kept.
func mergeByURL(lists ...[]vectorstore.Document) []vectorstore.Document {
	seen := make(map[string]struct{})
	var merged []vectorstore.Document
	for _, list := range lists {
		for _, doc := range list {
			if doc.URL != "" {
				if _, ok := seen[doc.URL]; ok {
					continue
				}
				seen[doc.URL] = struct{}{}
			}
			merged = append(merged, doc)
		}
	}
	return merged
}

// fuseRRF merges ranked candidate lists with reciprocal rank fusion,
// score = sum over lists of 1/(k + rank). It is an alternative to
// mergeByURL when comparable cross-list ordering matters more than
// keeping the vector store's scores.
func fuseRRF(lists ...[]vectorstore.Document) []vectorstore.Document {
	scores := make(map[string]float64)
	byKey := make(map[string]vectorstore.Document)

	for _, list := range lists {
		for rank, doc := range list {
			key := doc.URL
			if key == "" {
				key = doc.Content
			}
			scores[key] += 1.0 / float64(rrfK+rank+1)
			if _, ok := byKey[key]; !ok {
				byKey[key] = doc
			}
		}
	}

	fused := make([]vectorstore.Document, 0, len(byKey))
	for key, doc := range byKey {
		doc.Score = scores[key]
		fused = append(fused, doc)
	}
	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}
