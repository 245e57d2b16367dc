package bm25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercases and splits on punctuation",
			input: "Wood-burning rules, updated 2024!",
			want:  []string{"wood", "burning", "rules", "updated", "2024"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
		{
			name:  "only punctuation",
			input: "... --- !!!",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestTopNRanksRelevantDocumentsFirst(t *testing.T) {
	idx := NewIndex([]string{
		"Air quality permits for stationary sources.",
		"Residential wood burning restrictions during winter.",
		"Wood stove change out incentive program for wood burning households.",
		"Grant funding for electric school buses.",
	})

	results := idx.TopN([]string{"wood", "burning"}, 2)
	require.Len(t, results, 2)

	// Both matches mention wood burning, the doc with more occurrences
	// of the rarer combination should rank first or second but never
	// include non-matching documents.
	got := []int{results[0].Index, results[1].Index}
	assert.ElementsMatch(t, []int{1, 2}, got)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestTopNExcludesZeroScores(t *testing.T) {
	idx := NewIndex([]string{
		"particulate matter monitoring",
		"ozone forecasting",
	})

	results := idx.TopN([]string{"vineyard"}, 10)
	assert.Empty(t, results)
}

func TestScoresEmptyQuery(t *testing.T) {
	idx := NewIndex([]string{"some document"})
	scores := idx.Scores(nil)
	require.Len(t, scores, 1)
	assert.Zero(t, scores[0])
}

func TestScoresEmptyCorpus(t *testing.T) {
	idx := NewIndex(nil)
	assert.Zero(t, idx.Len())
	assert.Empty(t, idx.Scores([]string{"anything"}))
	assert.Empty(t, idx.TopN([]string{"anything"}, 5))
}

func TestIDFNonNegativeForCommonTerms(t *testing.T) {
	// A term present in every document must not push scores negative.
	idx := NewIndex([]string{
		"air quality report",
		"air quality forecast",
		"air quality alert",
	})

	for _, score := range idx.Scores([]string{"air"}) {
		assert.GreaterOrEqual(t, score, 0.0)
	}
}

func TestQueryTermsAreCaseInsensitive(t *testing.T) {
	idx := NewIndex([]string{"Ozone season begins in May."})

	upper := idx.Scores([]string{"OZONE"})
	lower := idx.Scores([]string{"ozone"})
	assert.Equal(t, lower, upper)
}
