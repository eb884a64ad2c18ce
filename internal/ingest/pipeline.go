// Package ingest turns a raw scraped catalog into stored, embedded
// assessments through a sequence of named stages.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/taxonomy"
	"github.com/spigell/assessment-recommender/internal/vectorstore"
)

// Stage is a single step applied to the working set.
type Stage interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, deps Deps, set *Set) (*Set, Step, error)
}

// Deps aggregates dependencies shared across all stages.
type Deps struct {
	Logger   *zap.Logger
	Tables   *taxonomy.Tables
	Embedder ai.Embedder
	Store    vectorstore.Store
}

// Step describes the result of executing a stage.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Report is the outcome of one executed stage.
type Report struct {
	Name string
	Step
}

// Status represents runtime information about a stage.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
}

// toggle is embedded by stages to support being switched off.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason}
}

// DisableByName marks a stage with the provided name as disabled while keeping it in the list.
func DisableByName(stages []Stage, name, reason string) {
	for _, s := range stages {
		if s.Name() == name {
			s.Disable(reason)
		}
	}
}

// Run validates every enabled stage and then executes them in order.
func Run(ctx context.Context, deps Deps, stages []Stage, set *Set) (*Set, []Report, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tables == nil {
		deps.Tables = taxonomy.Default()
	}

	for _, s := range stages {
		if !s.IsEnabled() {
			continue
		}
		if err := s.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	reports := make([]Report, 0, len(stages))
	for _, s := range stages {
		if !s.IsEnabled() {
			deps.Logger.Info("stage disabled", zap.String("name", s.Name()))
			continue
		}

		next, info, err := s.Apply(ctx, deps, set)
		if err != nil {
			return nil, reports, fmt.Errorf("%s: %w", s.Name(), err)
		}

		deps.Logger.Info("ingest stage",
			zap.String("name", s.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		reports = append(reports, Report{Name: s.Name(), Step: info})
		set = next
	}

	return set, reports, nil
}

// Describe returns status entries for the provided stages.
func Describe(stages []Stage) []Status {
	statuses := make([]Status, 0, len(stages))
	for _, s := range stages {
		if reporter, ok := s.(interface{ Status() Status }); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: s.Name(), Enabled: s.IsEnabled()})
	}
	return statuses
}
