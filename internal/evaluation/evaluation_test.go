package evaluation

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/assessment-recommender/internal/recommender"
)

type fixedRecommender map[string][]string

func (f fixedRecommender) Recommend(_ context.Context, query string, topK int) []recommender.Recommendation {
	var out []recommender.Recommendation
	for _, u := range f[query] {
		out = append(out, recommender.Recommendation{URL: u})
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func TestRecallAtK(t *testing.T) {
	tests := []struct {
		name      string
		predicted []string
		relevant  []string
		k         int
		want      float64
	}{
		{name: "all found", predicted: []string{"a", "b"}, relevant: []string{"a", "b"}, k: 10, want: 1},
		{name: "cut at k", predicted: []string{"x", "a", "b"}, relevant: []string{"a", "b"}, k: 2, want: 0.5},
		{name: "no truth", predicted: []string{"a"}, relevant: nil, k: 10, want: 0},
		{name: "trailing slash ignored", predicted: []string{"https://e.com/a/"}, relevant: []string{"https://e.com/a"}, k: 1, want: 1},
		{name: "duplicate predictions count once", predicted: []string{"a", "a"}, relevant: []string{"a", "b"}, k: 2, want: 0.5},
		{name: "zero k", predicted: []string{"a"}, relevant: []string{"a"}, k: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RecallAtK(tt.predicted, tt.relevant, tt.k), 1e-9)
		})
	}
}

func TestRun(t *testing.T) {
	rec := fixedRecommender{
		"java":  {"https://e.com/java-8/", "https://e.com/opq/", "https://e.com/core-java/"},
		"sales": {"https://e.com/other/"},
	}
	cases := []Case{
		{Query: "java", Relevant: []string{"https://e.com/java-8/", "https://e.com/core-java/"}},
		{Query: "sales", Relevant: []string{"https://e.com/sales/"}},
	}

	report := Run(context.Background(), rec, cases, 10)

	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.Results[0].Found)
	assert.Equal(t, 1.0, report.Results[0].Recall)
	assert.Equal(t, 0.0, report.Results[1].Recall)
	assert.InDelta(t, 0.5, report.MeanRecall, 1e-9)
	assert.Equal(t, 10, report.K)
}

func TestRunWithoutCases(t *testing.T) {
	report := Run(context.Background(), fixedRecommender{}, nil, 5)
	assert.Empty(t, report.Results)
	assert.Zero(t, report.MeanRecall)
}

func TestLoadCases(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := `
- query: I am hiring for Java developers
  relevant:
    - https://e.com/java-8/
    - https://e.com/core-java/
- query: Sales graduate
  relevant: [https://e.com/sales/]
`
	require.NoError(t, afero.WriteFile(fs, "/cases.yaml", []byte(payload), 0o644))

	cases, err := LoadCases(fs, "/cases.yaml")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "Sales graduate", cases[1].Query)
	assert.Len(t, cases[0].Relevant, 2)
}

func TestLoadCasesRejectsInvalidEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/no-urls.yaml", []byte("- query: java\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/broken.yaml", []byte("query: [\n"), 0o644))

	_, err := LoadCases(fs, "/no-urls.yaml")
	assert.Error(t, err)

	_, err = LoadCases(fs, "/broken.yaml")
	assert.Error(t, err)

	_, err = LoadCases(fs, "/missing.yaml")
	assert.Error(t, err)
}
