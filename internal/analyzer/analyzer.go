// Package analyzer turns a free-text job description into a signal bundle.
package analyzer

import (
	"slices"
	"strconv"
	"strings"

	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

// CategoryWeights is the preferred category mix, weights in [0,100].
type CategoryWeights map[taxonomy.Category]int

// QuerySignals is derived once per query and must not be mutated afterwards.
type QuerySignals struct {
	Skills          []string
	ExperienceLevel taxonomy.Level
	CategoryWeights CategoryWeights

	// TargetDurationMinutes is nil when the query names no duration.
	TargetDurationMinutes *int
}

// HasSkill reports whether tag was detected in the query.
func (s *QuerySignals) HasSkill(tag string) bool {
	return slices.Contains(s.Skills, tag)
}

// Analyzer extracts QuerySignals using a fixed set of tables.
type Analyzer struct {
	tables *taxonomy.Tables
}

// New returns an Analyzer over tables, falling back to the default tables when nil.
func New(tables *taxonomy.Tables) *Analyzer {
	if tables == nil {
		tables = taxonomy.Default()
	}
	return &Analyzer{tables: tables}
}

// Analyze never fails: empty or unparsable input yields the default signals.
func (a *Analyzer) Analyze(query string) *QuerySignals {
	lower := strings.ToLower(query)

	signals := &QuerySignals{
		Skills:                a.tables.DetectSkills(lower),
		ExperienceLevel:       a.level(lower),
		TargetDurationMinutes: a.duration(lower),
	}
	signals.CategoryWeights = a.weights(signals.Skills)

	return signals
}

func (a *Analyzer) level(lower string) taxonomy.Level {
	for _, s := range a.tables.Seniority {
		if taxonomy.ContainsAny(lower, s.Indicators) {
			return s.Level
		}
	}
	return taxonomy.LevelMid
}

func (a *Analyzer) duration(lower string) *int {
	for _, p := range a.tables.Durations {
		match := p.Expr.FindStringSubmatch(lower)
		if match == nil {
			continue
		}

		if p.Fixed != 0 {
			minutes := p.Fixed
			return &minutes
		}

		if len(match) < 2 {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			// overflowing digit runs fall through to the next pattern
			continue
		}
		minutes := n * p.Multiplier
		return &minutes
	}
	return nil
}

// weights applies the technical check and then the managerial check. A query
// carrying both kinds of skills ends up with the managerial mix because the
// second check overwrites the first.
func (a *Analyzer) weights(skills []string) CategoryWeights {
	weights := CategoryWeights{taxonomy.CategoryKnowledge: 50, taxonomy.CategoryPersonality: 50}

	if anyOf(skills, a.tables.Technical) {
		weights = CategoryWeights{taxonomy.CategoryKnowledge: 70, taxonomy.CategoryPersonality: 30}
	}

	if anyOf(skills, a.tables.Managerial) {
		weights = CategoryWeights{taxonomy.CategoryKnowledge: 40, taxonomy.CategoryPersonality: 60}
	}

	return weights
}

func anyOf(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
