// Package evaluation measures recommendation quality against labelled queries.
package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/spigell/assessment-recommender/internal/recommender"
)

const DefaultK = 10

// Case is a query together with the URLs a good answer should contain.
type Case struct {
	Query    string   `yaml:"query" validate:"required"`
	Relevant []string `yaml:"relevant" validate:"min=1,dive,required"`
}

type Result struct {
	Query     string   `json:"query"`
	Relevant  int      `json:"relevant"`
	Found     int      `json:"found"`
	Recall    float64  `json:"recall"`
	Predicted []string `json:"predicted"`
}

type Report struct {
	K          int      `json:"k"`
	Results    []Result `json:"results"`
	MeanRecall float64  `json:"mean_recall"`
}

// Recommender is the part of recommender.Recommender used here.
type Recommender interface {
	Recommend(ctx context.Context, query string, topK int) []recommender.Recommendation
}

// LoadCases reads a YAML list of cases from path and validates every entry.
func LoadCases(fs afero.Fs, path string) ([]Case, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading cases %q: %w", path, err)
	}

	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parsing cases %q: %w", path, err)
	}

	validate := validator.New()
	for i := range cases {
		if err := validate.Struct(cases[i]); err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}
	}

	return cases, nil
}

// RecallAtK is the share of distinct relevant URLs found among the first k
// predictions. It is zero when nothing is relevant.
func RecallAtK(predicted, relevant []string, k int) float64 {
	truth := make(map[string]struct{}, len(relevant))
	for _, u := range relevant {
		truth[normalize(u)] = struct{}{}
	}
	if len(truth) == 0 {
		return 0
	}

	return float64(found(predicted, truth, k)) / float64(len(truth))
}

func found(predicted []string, truth map[string]struct{}, k int) int {
	if k < len(predicted) {
		predicted = predicted[:max(k, 0)]
	}

	hit := make(map[string]struct{}, len(predicted))
	for _, u := range predicted {
		u = normalize(u)
		if _, ok := truth[u]; ok {
			hit[u] = struct{}{}
		}
	}
	return len(hit)
}

// Run asks rec for k recommendations per case and aggregates recall.
func Run(ctx context.Context, rec Recommender, cases []Case, k int) Report {
	report := Report{K: k, Results: make([]Result, 0, len(cases))}

	total := 0.0
	for _, c := range cases {
		recs := rec.Recommend(ctx, c.Query, k)
		predicted := make([]string, 0, len(recs))
		for _, r := range recs {
			predicted = append(predicted, r.URL)
		}

		truth := make(map[string]struct{}, len(c.Relevant))
		for _, u := range c.Relevant {
			truth[normalize(u)] = struct{}{}
		}

		res := Result{
			Query:     c.Query,
			Relevant:  len(truth),
			Found:     found(predicted, truth, k),
			Recall:    RecallAtK(predicted, c.Relevant, k),
			Predicted: predicted,
		}
		total += res.Recall
		report.Results = append(report.Results, res)
	}

	if len(cases) > 0 {
		report.MeanRecall = total / float64(len(cases))
	}
	return report
}

func normalize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}
