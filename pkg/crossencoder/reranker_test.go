package crossencoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankerClientRank(t *testing.T) {
	var gotRequest RerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/rerank", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		resp := RerankResponse{
			Results: []RankedResult{
				{Index: 1, Document: "second passage", RelevanceScore: 0.2},
				{Index: 0, Document: "first passage", RelevanceScore: 0.8},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewRerankerClient(RerankerConfig{
		Config:  Config{Model: "test-reranker"},
		BaseURL: srv.URL + "/v1",
	})
	defer client.Close()

	ranked, err := client.Rank(context.Background(), "some query", []string{"first passage", "second passage"})
	require.NoError(t, err)

	assert.Equal(t, "test-reranker", gotRequest.Model)
	assert.Equal(t, "some query", gotRequest.Query)
	assert.Len(t, gotRequest.Documents, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, 0, ranked[0].Index)
	assert.Equal(t, 0.8, ranked[0].Score)
	assert.Equal(t, "first passage", ranked[0].Passage)
}

func TestRerankerClientAppliesTopK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.TopN)
		assert.Equal(t, 2, *req.TopN)

		resp := RerankResponse{
			Results: []RankedResult{
				{Index: 2, RelevanceScore: 0.9},
				{Index: 0, RelevanceScore: 0.5},
				{Index: 1, RelevanceScore: 0.1},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewRerankerClient(RerankerConfig{
		Config:  Config{TopK: 2},
		BaseURL: srv.URL,
	})

	ranked, err := client.Rank(context.Background(), "q", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].Index)
	// Missing document text is backfilled from the input passages.
	assert.Equal(t, "c", ranked[0].Passage)
}

func TestRerankerClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewRerankerClient(RerankerConfig{BaseURL: srv.URL})

	_, err := client.Rank(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRerankerClientEmptyPassages(t *testing.T) {
	client := NewRerankerClient(RerankerConfig{BaseURL: "http://unused.invalid"})

	ranked, err := client.Rank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestMockClientPrefersOverlappingPassage(t *testing.T) {
	client := NewMockClient(Config{})

	ranked, err := client.Rank(context.Background(), "wood burning rules", []string{
		"grant programs for clean vehicles",
		"rules for residential wood burning",
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Index)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}
