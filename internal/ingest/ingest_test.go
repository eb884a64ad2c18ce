package ingest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/vectorstore"
)

type countingEmbedder struct {
	ai.Embedder

	mu      sync.Mutex
	batches []int
	err     error
}

func (c *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, len(texts))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.Embedder.EmbedDocuments(ctx, texts)
}

func records() []catalog.Record {
	return []catalog.Record{
		{"name": "Core Java Entry Level", "url": "https://example.com/java/", "test_type": "K", "duration": 20},
		{"name": "OPQ32r", "url": "https://example.com/opq/", "test_type": []any{"P"}},
		{"name": "Duplicate", "url": "https://example.com/java/"},
		{"name": "", "url": "https://example.com/no-name/"},
		{"name": "No URL"},
		{"name": map[string]any{"first": "broken"}, "url": "https://example.com/broken/"},
		{"name": "SQL Server", "url": "https://example.com/sql/", "duration": "Untimed"},
		{"name": "Excel 365", "url": "https://example.com/excel/"},
		{"name": "Python", "url": "https://example.com/python/"},
		{"name": "Sales Rep", "url": "https://example.com/sales/"},
		{"name": "Verify G+", "url": "https://example.com/verify/", "test_type": "A"},
	}
}

func TestRunFullPipeline(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	store := vectorstore.NewMemoryStore()
	embedder := &countingEmbedder{Embedder: ai.NewHashEmbedder(32)}

	deps := Deps{Logger: zap.New(core), Embedder: embedder, Store: store}
	cfg := Config{BatchSize: 3, Concurrency: 2}

	set, reports, err := Run(context.Background(), deps, DefaultStages(cfg), NewSet(records()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byName := make(map[string]Step)
	for _, r := range reports {
		byName[r.Name] = r.Step
	}
	expected := map[string]Step{
		"decode":           {Initial: 11, Dropped: 1, Left: 10},
		"require_identity": {Initial: 10, Dropped: 2, Left: 8},
		"dedupe_url":       {Initial: 8, Dropped: 1, Left: 7},
		"store":            {Initial: 7, Left: 7},
	}
	for name, want := range expected {
		if got := byName[name]; got != want {
			t.Fatalf("stage %s: expected %+v, got %+v", name, want, got)
		}
	}

	batches := slices.Clone(embedder.batches)
	slices.Sort(batches)
	if !slices.Equal(batches, []int{1, 3, 3}) {
		t.Fatalf("expected batches of 3, 3 and 1, got %v", embedder.batches)
	}

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 stored assessments, got %d", n)
	}

	first := set.Entries()[0]
	if first.Assessment.Name != "Core Java Entry Level" {
		t.Fatalf("unexpected first entry: %q", first.Assessment.Name)
	}
	if !slices.Equal(first.Assessment.SkillTags, []string{"java"}) {
		t.Fatalf("expected java tag, got %v", first.Assessment.SkillTags)
	}
	if !strings.Contains(first.Document, "Duration: 20 minutes") {
		t.Fatalf("unexpected document: %q", first.Document)
	}
	if len(first.Embedding) != 32 {
		t.Fatalf("expected 32 dimensions, got %d", len(first.Embedding))
	}

	if logs := observed.FilterMessage("ingest stage").Len(); logs != 6 {
		t.Fatalf("expected 6 stage logs, got %d", logs)
	}
}

func TestRunStopsOnEmbeddingError(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	embedder := &countingEmbedder{Embedder: ai.NewHashEmbedder(8), err: errors.New("quota")}

	deps := Deps{Embedder: embedder, Store: store}
	_, _, err := Run(context.Background(), deps, DefaultStages(DefaultConfig()), NewSet(records()))
	if err == nil || !strings.Contains(err.Error(), "embed:") {
		t.Fatalf("expected embed error, got %v", err)
	}

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing stored, got %d", n)
	}
}

func TestDisabledStagesAreSkipped(t *testing.T) {
	stages := DefaultStages(DefaultConfig())
	DisableByName(stages, "embed", "dry run")
	DisableByName(stages, "store", "dry run")

	set, reports, err := Run(context.Background(), Deps{}, stages, NewSet(records()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 4 {
		t.Fatalf("expected 4 reports, got %d", len(reports))
	}
	if set.Len() != 7 {
		t.Fatalf("expected 7 entries, got %d", set.Len())
	}

	statuses := Describe(stages)
	if len(statuses) != 6 {
		t.Fatalf("expected 6 statuses, got %d", len(statuses))
	}
	if want := (Status{Name: "embed", Enabled: false, Reason: "dry run"}); statuses[4] != want {
		t.Fatalf("expected %+v, got %+v", want, statuses[4])
	}
	if !statuses[0].Enabled {
		t.Fatalf("expected decode to stay enabled")
	}
}

func TestValidationRunsBeforeAnyStage(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	deps := Deps{Embedder: ai.NewHashEmbedder(8), Store: store}

	_, reports, err := Run(context.Background(), deps, DefaultStages(Config{BatchSize: 0, Concurrency: 1}), NewSet(records()))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if len(reports) != 0 {
		t.Fatalf("expected no stage to run, got %v", reports)
	}
}

func TestEmbedRequiresEmbedder(t *testing.T) {
	_, _, err := Run(context.Background(), Deps{}, []Stage{NewDecode(), NewEmbed(DefaultConfig())}, NewSet(records()))
	if err == nil {
		t.Fatalf("expected error without an embedder")
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/catalog.json", []byte(`[{"name":"A","url":"u"},{"name":"B","url":"v"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	set, err := Load(fs, "/data/catalog.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", set.Len())
	}
	if label := set.Entries()[1].Label(); label != "#1" {
		t.Fatalf("unexpected label %q", label)
	}

	if _, err := Load(fs, "/data/missing.json"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
