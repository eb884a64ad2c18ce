package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spigell/assessment-recommender/internal/catalog"
)

const (
	DefaultBatchSize   = 5
	DefaultConcurrency = 2
	storeBatchSize     = 100
)

// Config tunes the embedding and storage stages.
type Config struct {
	BatchSize         int     `mapstructure:"batch-size" validate:"gte=1"`
	Concurrency       int     `mapstructure:"concurrency" validate:"gte=1"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{BatchSize: DefaultBatchSize, Concurrency: DefaultConcurrency}
}

// DefaultStages returns the full ingestion pipeline in execution order.
func DefaultStages(cfg Config) []Stage {
	return []Stage{
		NewDecode(),
		NewRequireIdentity(),
		NewDedupeURL(),
		NewEnrich(),
		NewEmbed(cfg),
		NewStore(),
	}
}

type decodeStage struct{ toggle }

// NewDecode creates a stage that normalizes raw records, dropping those that cannot be decoded.
func NewDecode() Stage { return &decodeStage{} }

func (s *decodeStage) Name() string    { return "decode" }
func (s *decodeStage) Validate() error { return nil }
func (s *decodeStage) Status() Status  { return s.status(s.Name()) }

func (s *decodeStage) Apply(_ context.Context, deps Deps, set *Set) (*Set, Step, error) {
	initial := set.Len()
	dropped := set.Keep(func(e *Entry) bool {
		a, err := catalog.Decode(e.Record)
		if err != nil {
			deps.Logger.Warn("skipping undecodable record", zap.Int("index", e.Index), zap.Error(err))
			return false
		}
		e.Assessment = a
		return true
	})

	return set, Step{Initial: initial, Dropped: len(dropped), Left: set.Len()}, nil
}

type requireIdentityStage struct{ toggle }

// NewRequireIdentity creates a stage that removes assessments without a name or URL.
func NewRequireIdentity() Stage { return &requireIdentityStage{} }

func (s *requireIdentityStage) Name() string    { return "require_identity" }
func (s *requireIdentityStage) Validate() error { return nil }
func (s *requireIdentityStage) Status() Status  { return s.status(s.Name()) }

func (s *requireIdentityStage) Apply(_ context.Context, deps Deps, set *Set) (*Set, Step, error) {
	initial := set.Len()
	dropped := set.Keep(func(e *Entry) bool {
		return e.Assessment != nil && e.Assessment.Name != "" && e.Assessment.URL != ""
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding records without name or url", zap.Strings("excluded", dropped))
	}

	return set, Step{Initial: initial, Dropped: len(dropped), Left: set.Len()}, nil
}

type dedupeURLStage struct{ toggle }

// NewDedupeURL creates a stage that keeps only the first record for every URL.
func NewDedupeURL() Stage { return &dedupeURLStage{} }

func (s *dedupeURLStage) Name() string    { return "dedupe_url" }
func (s *dedupeURLStage) Validate() error { return nil }
func (s *dedupeURLStage) Status() Status  { return s.status(s.Name()) }

func (s *dedupeURLStage) Apply(_ context.Context, deps Deps, set *Set) (*Set, Step, error) {
	initial := set.Len()
	seen := make(map[string]struct{}, initial)
	dropped := set.Keep(func(e *Entry) bool {
		if e.Assessment == nil {
			return false
		}
		if _, ok := seen[e.Assessment.URL]; ok {
			return false
		}
		seen[e.Assessment.URL] = struct{}{}
		return true
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding duplicate urls", zap.Strings("excluded", dropped))
	}

	return set, Step{Initial: initial, Dropped: len(dropped), Left: set.Len()}, nil
}

type enrichStage struct{ toggle }

// NewEnrich creates a stage that detects skill tags and renders embedding documents.
func NewEnrich() Stage { return &enrichStage{} }

func (s *enrichStage) Name() string    { return "enrich" }
func (s *enrichStage) Validate() error { return nil }
func (s *enrichStage) Status() Status  { return s.status(s.Name()) }

func (s *enrichStage) Apply(_ context.Context, deps Deps, set *Set) (*Set, Step, error) {
	for _, e := range set.Entries() {
		if e.Assessment == nil {
			continue
		}
		e.Assessment.Enrich(deps.Tables)
		e.Document = e.Assessment.Document()
	}

	return set, Step{Initial: set.Len(), Left: set.Len()}, nil
}

type embedStage struct {
	toggle
	cfg Config
}

// NewEmbed creates a stage that embeds documents in fixed-size batches,
// running a bounded number of batches concurrently under a request rate limit.
func NewEmbed(cfg Config) Stage { return &embedStage{cfg: cfg} }

func (s *embedStage) Name() string   { return "embed" }
func (s *embedStage) Status() Status { return s.status(s.Name()) }

func (s *embedStage) Validate() error {
	if s.cfg.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", s.cfg.BatchSize)
	}
	if s.cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", s.cfg.Concurrency)
	}
	if s.cfg.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %v", s.cfg.RequestsPerSecond)
	}
	return nil
}

func (s *embedStage) Apply(ctx context.Context, deps Deps, set *Set) (*Set, Step, error) {
	if deps.Embedder == nil {
		return set, Step{}, errors.New("embedder is required")
	}

	limit := rate.Inf
	if s.cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(s.cfg.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	entries := set.Entries()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for start := 0; start < len(entries); start += s.cfg.BatchSize {
		batch := entries[start:min(start+s.cfg.BatchSize, len(entries))]
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			docs := make([]string, 0, len(batch))
			for _, e := range batch {
				docs = append(docs, e.Document)
			}

			vectors, err := deps.Embedder.EmbedDocuments(gctx, docs)
			if err != nil {
				return fmt.Errorf("embed batch starting at %d: %w", start, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed batch starting at %d: got %d vectors for %d documents", start, len(vectors), len(batch))
			}

			for i, e := range batch {
				e.Embedding = vectors[i]
			}

			deps.Logger.Debug("embedded batch",
				zap.Int("from", start),
				zap.Int("to", start+len(batch)),
				zap.Int("total", len(entries)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return set, Step{}, err
	}

	return set, Step{Initial: len(entries), Left: len(entries)}, nil
}

type storeStage struct{ toggle }

// NewStore creates a stage that upserts embedded assessments into the store.
func NewStore() Stage { return &storeStage{} }

func (s *storeStage) Name() string    { return "store" }
func (s *storeStage) Validate() error { return nil }
func (s *storeStage) Status() Status  { return s.status(s.Name()) }

func (s *storeStage) Apply(ctx context.Context, deps Deps, set *Set) (*Set, Step, error) {
	if deps.Store == nil {
		return set, Step{}, errors.New("store is required")
	}

	items := set.Items()
	for start := 0; start < len(items); start += storeBatchSize {
		end := min(start+storeBatchSize, len(items))
		if err := deps.Store.Upsert(ctx, items[start:end]); err != nil {
			return set, Step{}, err
		}
		deps.Logger.Debug("stored assessments", zap.Int("processed", end), zap.Int("total", len(items)))
	}

	return set, Step{Initial: len(items), Left: len(items)}, nil
}
