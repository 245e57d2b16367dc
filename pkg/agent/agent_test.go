package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjvalley/go-airchat/pkg/airquality"
	"github.com/sjvalley/go-airchat/pkg/crossencoder"
	"github.com/sjvalley/go-airchat/pkg/llm"
	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

// scriptedLLM replays canned responses keyed by a substring of the
// system prompt, so one client can serve every agent in a workflow.
type scriptedLLM struct {
	responses map[string]string
	calls     []string
}

func (s *scriptedLLM) respond(messages []llm.Message) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages")
	}
	system := messages[0].Content
	s.calls = append(s.calls, system)
	for key, content := range s.responses {
		if strings.Contains(system, key) {
			return &llm.Response{Content: content}, nil
		}
	}
	return nil, fmt.Errorf("no scripted response for prompt: %.60s", system)
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	return s.respond(messages)
}

func (s *scriptedLLM) ChatStream(ctx context.Context, messages []llm.Message, onToken func(string)) (*llm.Response, error) {
	resp, err := s.respond(messages)
	if err != nil {
		return nil, err
	}
	for _, r := range resp.Content {
		onToken(string(r))
	}
	return resp, nil
}

func (s *scriptedLLM) Close() error { return nil }

// fakeStore is an in-memory vectorstore with deterministic results.
type fakeStore struct {
	corpus      []vectorstore.Document
	vectorHits  []vectorstore.Document
	enrichCalls int
}

func (f *fakeStore) EnsureIndex(ctx context.Context) error { return nil }

func (f *fakeStore) IndexChunk(ctx context.Context, d vectorstore.Document) error { return nil }

func (f *fakeStore) DeleteIndex(ctx context.Context) error { return nil }

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) KeywordSearch(ctx context.Context, query string, k int) ([]vectorstore.Document, error) {
	return nil, nil
}

func (f *fakeStore) VectorSearch(ctx context.Context, vector []float32, k int) ([]vectorstore.Document, error) {
	return f.vectorHits, nil
}

func (f *fakeStore) Enrich(ctx context.Context, doc vectorstore.Document) (vectorstore.Document, error) {
	f.enrichCalls++
	if doc.Title == "" {
		doc.Title = "Enriched " + doc.URL
	}
	return doc, nil
}

func (f *fakeStore) LoadCorpus(ctx context.Context) ([]vectorstore.Document, error) {
	return f.corpus, nil
}

// fakeEmbedder returns a fixed vector for any text.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }
func (fakeEmbedder) Close() error    { return nil }

func TestClassifier(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   QueryType
	}{
		{"air quality label", "air_quality", QueryTypeAirQuality},
		{"general label", "general", QueryTypeGeneral},
		{"label with trailing text", "air_quality\nBecause the query mentions AQI.", QueryTypeAirQuality},
		{"uppercase label", "GENERAL", QueryTypeGeneral},
		{"garbage defaults to general", "I think this is about permits", QueryTypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedLLM{responses: map[string]string{"classifier": tt.output}}
			c := NewClassifier(client, nil)

			got, err := c.Classify(context.Background(), "some question")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryContextAgentParsesJSON(t *testing.T) {
	client := &scriptedLLM{responses: map[string]string{
		"search assistant": `{"rewrites":["a","b","c"],"keywords":["k1","k2","k3","k4","k5"]}`,
	}}
	a := NewQueryContextAgent(client, nil)

	rewrites, keywords, err := a.Expand(context.Background(), "What grants does Valley Air provide?")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, rewrites)
	assert.Len(t, keywords, 5)
}

func TestQueryContextAgentFallsBackOnBadJSON(t *testing.T) {
	client := &scriptedLLM{responses: map[string]string{
		"search assistant": "sorry, I cannot help with that",
	}}
	a := NewQueryContextAgent(client, nil)

	rewrites, keywords, err := a.Expand(context.Background(), "wood burning rules")
	require.NoError(t, err)
	assert.Equal(t, []string{"wood burning rules"}, rewrites)
	assert.Equal(t, []string{"wood", "burning", "rules"}, keywords)
}

func TestRetrievalAgentHybridFlow(t *testing.T) {
	store := &fakeStore{
		corpus: []vectorstore.Document{
			{Content: "wood burning restrictions apply every winter", URL: "https://valleyair.org/burning", Title: "Burning"},
			{Content: "grant funding for clean trucks", URL: "https://valleyair.org/grants", Title: "Grants"},
			{Content: "permit application process for businesses", URL: "https://valleyair.org/permits", Title: "Permits"},
		},
		vectorHits: []vectorstore.Document{
			{Content: "wood stoves and fireplaces", URL: "https://valleyair.org/burning", Title: "Burning", Score: 1.9},
			{Content: "check before you burn program", URL: "https://valleyair.org/cbyb", Title: "CBYB", Score: 1.7},
		},
	}
	a := NewRetrievalAgent(store, fakeEmbedder{}, crossencoder.NewMockClient(crossencoder.Config{}), 4, nil)

	docs, err := a.Retrieve(context.Background(), "When can I burn wood?",
		[]string{"residential wood burning rules"},
		[]string{"wood burning", "restrictions"})
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.LessOrEqual(t, len(docs), 4)

	// The burning URL appears in both legs but must survive only once.
	urls := make(map[string]int)
	for _, doc := range docs {
		urls[doc.URL]++
	}
	assert.Equal(t, 1, urls["https://valleyair.org/burning"])
	assert.Equal(t, len(docs), store.enrichCalls)
}

func TestMergeByURLVectorWins(t *testing.T) {
	vector := []vectorstore.Document{{URL: "u1", Content: "from vector"}}
	lexical := []vectorstore.Document{{URL: "u1", Content: "from bm25"}, {URL: "u2", Content: "other"}}

	merged := mergeByURL(vector, lexical)
	require.Len(t, merged, 2)
	assert.Equal(t, "from vector", merged[0].Content)
}

func TestFuseRRFRewardsAgreement(t *testing.T) {
	listA := []vectorstore.Document{{URL: "shared"}, {URL: "onlyA"}}
	listB := []vectorstore.Document{{URL: "onlyB"}, {URL: "shared"}}

	fused := fuseRRF(listA, listB)
	require.Len(t, fused, 3)
	assert.Equal(t, "shared", fused[0].URL)
}

func TestSynthesisAgentBuildsContextAndSources(t *testing.T) {
	client := &scriptedLLM{responses: map[string]string{
		"San Joaquin Valley Air Pollution Control District": "Valley Air offers several grant programs.",
	}}
	a := NewSynthesisAgent(client)

	state := &State{
		UserQuery: "What grants are available?",
		Retrieved: []vectorstore.Document{
			{Content: "Grant info", URL: "https://valleyair.org/grants", Title: "Grants"},
			{Content: "More grant info", URL: "https://valleyair.org/grants", Title: "Grants"},
			{Content: "orphan chunk"},
		},
	}

	require.NoError(t, a.Synthesize(context.Background(), state))
	assert.Equal(t, "Valley Air offers several grant programs.", state.Answer)

	require.Len(t, state.Sources, 2)
	assert.Equal(t, "https://valleyair.org/grants", state.Sources[0].URL)
	assert.Equal(t, "No URL", state.Sources[1].URL)
	assert.Equal(t, "Untitled", state.Sources[1].Title)
}

func TestBuildContextIncludesAirQualityBlock(t *testing.T) {
	pm := 23.5
	oz := 41.0
	state := &State{
		AirQuality: &airquality.Reading{
			AQI:      75,
			Category: "Moderate",
			PM25:     &pm,
			Ozone:    &oz,
		},
		Retrieved: []vectorstore.Document{{Content: "doc text"}},
	}

	got := buildContext(state)
	assert.Contains(t, got, "[Real-time Air Quality]")
	assert.Contains(t, got, "AQI: 75 (Moderate)")
	assert.Contains(t, got, "doc text")
}
