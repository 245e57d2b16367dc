// Package bm25 provides Okapi BM25 lexical scoring over an in-memory corpus.
package bm25

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultK1 controls term frequency saturation.
const DefaultK1 = 1.2

// DefaultB controls document length normalization.
const DefaultB = 0.75

// Result pairs a corpus document index with its score for a query.
type Result struct {
	Index int
	Score float64
}

// Index holds tokenized documents and corpus statistics for scoring.
type Index struct {
	k1 float64
	b  float64

	docTermFreqs []map[string]int
	docLengths   []int
	docFreqs     map[string]int
	avgDocLen    float64
}

// NewIndex builds an index over the given documents with default
// parameters. Documents are tokenized by lowercasing and splitting on
// non-letter, non-digit runes.
func NewIndex(documents []string) *Index {
	return NewIndexWithParams(documents, DefaultK1, DefaultB)
}

// NewIndexWithParams builds an index with custom k1 and b parameters.
func NewIndexWithParams(documents []string, k1, b float64) *Index {
	idx := &Index{
		k1:           k1,
		b:            b,
		docTermFreqs: make([]map[string]int, 0, len(documents)),
		docLengths:   make([]int, 0, len(documents)),
		docFreqs:     make(map[string]int),
	}

	var totalLen int
	for _, doc := range documents {
		terms := Tokenize(doc)
		freqs := make(map[string]int, len(terms))
		for _, term := range terms {
			freqs[term]++
		}
		for term := range freqs {
			idx.docFreqs[term]++
		}
		idx.docTermFreqs = append(idx.docTermFreqs, freqs)
		idx.docLengths = append(idx.docLengths, len(terms))
		totalLen += len(terms)
	}

	if len(documents) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(documents))
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docTermFreqs)
}

// Scores computes a BM25 score for every document against the query
// terms, in corpus order.
func (idx *Index) Scores(queryTerms []string) []float64 {
	scores := make([]float64, len(idx.docTermFreqs))
	if len(queryTerms) == 0 {
		return scores
	}

	// Collapse duplicates so repeated query terms score once, matching
	// the set semantics of keyword queries.
	unique := make(map[string]struct{}, len(queryTerms))
	for _, term := range queryTerms {
		unique[strings.ToLower(term)] = struct{}{}
	}

	for i, freqs := range idx.docTermFreqs {
		var score float64
		for term := range unique {
			score += idx.termScore(freqs[term], idx.docFreqs[term], idx.docLengths[i])
		}
		scores[i] = score
	}
	return scores
}

// TopN returns the n best-scoring documents for the query terms, best
// first. Zero-score documents are excluded.
func (idx *Index) TopN(queryTerms []string, n int) []Result {
	scores := idx.Scores(queryTerms)

	results := make([]Result, 0, len(scores))
	for i, score := range scores {
		if score > 0 {
			results = append(results, Result{Index: i, Score: score})
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Index < results[b].Index
	})

	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results
}

// termScore computes one term's BM25 contribution using the Lucene IDF
// variant, log(1 + (N - df + 0.5) / (df + 0.5)), which stays
// non-negative for common terms.
func (idx *Index) termScore(tf, df, docLen int) float64 {
	if tf == 0 || df == 0 || len(idx.docTermFreqs) == 0 {
		return 0
	}

	n := float64(len(idx.docTermFreqs))
	idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))

	lengthNorm := 1 - idx.b + idx.b*(float64(docLen)/idx.avgDocLen)
	tfScore := (float64(tf) * (idx.k1 + 1)) / (float64(tf) + idx.k1*lengthNorm)

	return idf * tfScore
}

// Tokenize lowercases text and splits it on non-letter, non-digit runes.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
