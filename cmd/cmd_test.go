package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/evaluation"
	"github.com/spigell/assessment-recommender/internal/recommender"
	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

func TestGetConfigDefaults(t *testing.T) {
	config, err := getConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Recommend.TopK != recommender.DefaultTopK || config.Recommend.Oversample != recommender.DefaultOversample {
		t.Fatalf("unexpected recommend defaults: %+v", config.Recommend)
	}
	if config.Ingest.BatchSize != 5 {
		t.Fatalf("expected batch size 5, got %d", config.Ingest.BatchSize)
	}
	if config.Embedder.Provider != providerGemini {
		t.Fatalf("unexpected provider: %q", config.Embedder.Provider)
	}
}

func TestGetConfigValidates(t *testing.T) {
	viper.Set("embedder.provider", "openai")
	defer viper.Set("embedder.provider", providerGemini)

	if _, err := getConfig(); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}

func TestNewEmbedderHashProvider(t *testing.T) {
	embedder, err := newEmbedder(context.Background(), EmbedderConfig{Provider: providerHash, HashDimensions: 16}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := embedder.(*ai.HashEmbedder); !ok {
		t.Fatalf("expected hash embedder, got %T", embedder)
	}

	if _, err := newEmbedder(context.Background(), EmbedderConfig{Provider: "unknown"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewEmbedderGeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := newEmbedder(context.Background(), EmbedderConfig{Provider: providerGemini}, nil); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestPrintRecommendationsJSON(t *testing.T) {
	var buf bytes.Buffer
	results := []recommender.Recommendation{{
		Name:            "Java 8 (New)",
		URL:             "https://example.com/java-8/",
		DurationMinutes: 18,
		Categories:      []taxonomy.Category{"K"},
		AdaptiveSupport: "No",
		RemoteSupport:   "Yes",
	}}

	if err := printRecommendations(&buf, outputJSON, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string][]map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	got := decoded["recommended_assessments"]
	if len(got) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(got))
	}
	if got[0]["duration"] != float64(18) || got[0]["remote_support"] != "Yes" {
		t.Fatalf("unexpected fields: %v", got[0])
	}
}

func TestPrintRecommendationsTable(t *testing.T) {
	var buf bytes.Buffer
	results := []recommender.Recommendation{{Name: "OPQ32r", URL: "https://example.com/opq/", Categories: []taxonomy.Category{"P"}}}

	if err := printRecommendations(&buf, outputTable, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "OPQ32r") || !strings.Contains(buf.String(), "NAME") {
		t.Fatalf("unexpected table: %s", buf.String())
	}
}

func TestReportTable(t *testing.T) {
	report := evaluation.Report{
		K:          10,
		Results:    []evaluation.Result{{Query: "java developer", Relevant: 2, Found: 1, Recall: 0.5}},
		MeanRecall: 0.5,
	}

	out := reportTable(report).String()
	for _, want := range []string{"RECALL@10", "java developer", "0.5000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table: %s", want, out)
		}
	}
}
