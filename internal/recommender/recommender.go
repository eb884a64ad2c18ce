// Package recommender wires query analysis, retrieval, scoring and
// category-balanced selection into a single entry point.
package recommender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/analyzer"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/scoring"
	"github.com/spigell/assessment-recommender/internal/selection"
	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

const (
	DefaultTopK       = 10
	DefaultOversample = 5

	minQueryRunes = 3
)

var ErrQueryTooShort = errors.New("query is too short")

// Index is the nearest-neighbour collaborator. Distances are non-negative and
// hits come back closest first.
type Index interface {
	Nearest(ctx context.Context, vec []float32, n int) ([]catalog.Hit, error)
}

// Recommendation is one entry of the final answer.
type Recommendation struct {
	Name            string              `json:"name"`
	URL             string              `json:"url"`
	Description     string              `json:"description"`
	DurationMinutes int                 `json:"duration"`
	Categories      []taxonomy.Category `json:"test_type"`
	AdaptiveSupport string              `json:"adaptive_support"`
	RemoteSupport   string              `json:"remote_support"`
}

// Explanation exposes the intermediate results of one request.
type Explanation struct {
	Query     string
	Signals   *analyzer.QuerySignals
	Retrieved int
	Pool      []scoring.Scored
	Selected  []Recommendation
}

type Recommender struct {
	analyzer   *analyzer.Analyzer
	scorer     *scoring.Scorer
	selector   *selection.Selector
	embedder   ai.Embedder
	index      Index
	oversample int
	logger     *zap.Logger
}

type Option func(*Recommender)

func WithLogger(l *zap.Logger) Option {
	return func(r *Recommender) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOversample sets how many candidates per requested result are retrieved.
func WithOversample(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.oversample = n
		}
	}
}

// WithTables replaces the lookup tables used by every stage.
func WithTables(t *taxonomy.Tables) Option {
	return func(r *Recommender) {
		if t != nil {
			r.analyzer = analyzer.New(t)
			r.scorer = scoring.New(t)
			r.selector = selection.New(t)
		}
	}
}

func New(embedder ai.Embedder, index Index, opts ...Option) *Recommender {
	r := &Recommender{
		analyzer:   analyzer.New(nil),
		scorer:     scoring.New(nil),
		selector:   selection.New(nil),
		embedder:   embedder,
		index:      index,
		oversample: DefaultOversample,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend returns up to topK assessments for the query. It never fails:
// short queries, collaborator errors and panics all produce an empty list,
// the latter two with a logged diagnostic.
func (r *Recommender) Recommend(ctx context.Context, query string, topK int) []Recommendation {
	exp, err := r.Explain(ctx, query, topK)
	if err != nil {
		if !errors.Is(err, ErrQueryTooShort) {
			r.logger.Error("recommendation failed",
				logger.QueryField(query),
				zap.Error(err),
			)
		}
		return []Recommendation{}
	}
	return exp.Selected
}

// Explain runs the same pipeline as Recommend but reports errors and keeps
// the scored pool for inspection.
func (r *Recommender) Explain(ctx context.Context, query string, topK int) (exp *Explanation, err error) {
	defer func() {
		if p := recover(); p != nil {
			exp = nil
			err = fmt.Errorf("recommendation panicked: %v", p)
		}
	}()

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryRunes {
		return nil, ErrQueryTooShort
	}
	if topK <= 0 {
		return &Explanation{Query: query, Signals: r.analyzer.Analyze(query), Selected: []Recommendation{}}, nil
	}
	if r.embedder == nil || r.index == nil {
		return nil, errors.New("recommender has no embedder or index")
	}

	signals := r.analyzer.Analyze(query)
	r.logger.Debug("query analyzed",
		logger.QueryField(query),
		zap.Strings("skills", signals.Skills),
		zap.String("level", string(signals.ExperienceLevel)),
	)

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Nearest(ctx, vec, topK*r.oversample)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	pool := r.scorer.Rank(signals, query, hits)
	picked := r.selector.Select(pool, signals.CategoryWeights, topK)
	if len(picked) > topK {
		picked = picked[:topK]
	}

	selected := make([]Recommendation, 0, len(picked))
	for _, a := range picked {
		selected = append(selected, format(a))
	}

	r.logger.Debug("recommendations ready",
		zap.Int("retrieved", len(hits)),
		zap.Int("selected", len(selected)),
	)

	return &Explanation{
		Query:     query,
		Signals:   signals,
		Retrieved: len(hits),
		Pool:      pool,
		Selected:  selected,
	}, nil
}

func format(a *catalog.Assessment) Recommendation {
	cats := a.Categories
	if len(cats) == 0 {
		cats = []taxonomy.Category{taxonomy.CategoryKnowledge}
	}
	return Recommendation{
		Name:            a.Name,
		URL:             a.URL,
		Description:     a.Description,
		DurationMinutes: a.DurationMinutes,
		Categories:      append([]taxonomy.Category(nil), cats...),
		AdaptiveSupport: a.AdaptiveSupport,
		RemoteSupport:   a.RemoteSupport,
	}
}
