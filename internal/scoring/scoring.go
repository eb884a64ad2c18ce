// Package scoring computes the composite relevance of a retrieved assessment
// for one query.
package scoring

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/spigell/assessment-recommender/internal/analyzer"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

const (
	semanticMax = 30.0

	skillNameHit        = 30.0
	skillDescriptionHit = 20.0
	skillTagHit         = 15.0
	skillCap            = 100.0

	levelHit       = 25.0
	levelPenalty   = -30.0
	categoryFactor = 0.5
	lexicalMax     = 40.0
	minTokenRunes  = 4
)

// Breakdown holds every sub-score. Only Skill is capped; the others may go
// negative or exceed their usual range and are summed as they are.
type Breakdown struct {
	Semantic   float64 `json:"semantic"`
	Skill      float64 `json:"skill"`
	Experience float64 `json:"experience"`
	Duration   float64 `json:"duration"`
	Category   float64 `json:"category"`
	Lexical    float64 `json:"lexical"`
}

// Total is the composite score.
func (b Breakdown) Total() float64 {
	return b.Semantic + b.Skill + b.Experience + b.Duration + b.Category + b.Lexical
}

// Scored pairs a retrieved hit with its score for the current query.
type Scored struct {
	Hit       catalog.Hit
	Score     float64
	Breakdown Breakdown
}

// Scorer is stateless apart from the read-only tables.
type Scorer struct {
	tables *taxonomy.Tables
}

func New(tables *taxonomy.Tables) *Scorer {
	if tables == nil {
		tables = taxonomy.Default()
	}
	return &Scorer{tables: tables}
}

// Score returns the composite score of hit for the query.
func (s *Scorer) Score(signals *analyzer.QuerySignals, rawQuery string, hit catalog.Hit) float64 {
	return s.Explain(signals, rawQuery, hit).Total()
}

// Explain returns the individual sub-scores of hit for the query.
func (s *Scorer) Explain(signals *analyzer.QuerySignals, rawQuery string, hit catalog.Hit) Breakdown {
	a := hit.Assessment
	if a == nil || signals == nil {
		return Breakdown{}
	}

	name := strings.ToLower(a.Name)
	description := strings.ToLower(a.Description)

	b := Breakdown{
		Semantic:   Semantic(hit.Distance),
		Skill:      s.skill(signals.Skills, name, description, strings.ToLower(strings.Join(a.SkillTags, ", "))),
		Experience: s.experience(signals.ExperienceLevel, name),
		Category:   s.category(signals.CategoryWeights, a.Categories),
		Lexical:    Lexical(rawQuery, a.Name+" "+a.Description),
	}

	// A zero target means no target.
	if t := signals.TargetDurationMinutes; t != nil && *t > 0 && !a.DurationUnknown {
		b.Duration = Duration(*t, a.DurationMinutes)
	}

	return b
}

// Semantic rewards closeness; zero (or negative) distance scores the maximum.
func Semantic(distance float64) float64 {
	if distance > 0 {
		return semanticMax / (1 + distance)
	}
	return semanticMax
}

// Duration is a step function of the absolute difference in minutes.
func Duration(target, candidate int) float64 {
	diff := target - candidate
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff == 0:
		return 30
	case diff <= 10:
		return 20
	case diff <= 20:
		return 10
	case diff <= 30:
		return 5
	default:
		return -10
	}
}

// Lexical scores the share of long query tokens found among the candidate tokens.
func Lexical(query, candidateText string) float64 {
	queryTokens := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) >= minTokenRunes {
			queryTokens[w] = struct{}{}
		}
	}
	if len(queryTokens) == 0 {
		return 0
	}

	candidateTokens := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(candidateText)) {
		candidateTokens[w] = struct{}{}
	}

	overlap := 0
	for w := range queryTokens {
		if _, ok := candidateTokens[w]; ok {
			overlap++
		}
	}

	return float64(overlap) / float64(len(queryTokens)) * lexicalMax
}

func (s *Scorer) skill(skills []string, name, description, tags string) float64 {
	score := 0.0
	for _, tag := range skills {
		for _, kw := range s.tables.Keywords(tag) {
			switch {
			case strings.Contains(name, kw):
				score += skillNameHit
			case strings.Contains(description, kw):
				score += skillDescriptionHit
			case strings.Contains(tags, kw):
				score += skillTagHit
			}
		}
	}
	return min(score, skillCap)
}

func (s *Scorer) experience(level taxonomy.Level, name string) float64 {
	score := 0.0
	for _, ind := range s.tables.Indicators(level) {
		if strings.Contains(name, ind) {
			score += levelHit
		}
	}

	if opposite, ok := taxonomy.Opposite(level); ok {
		if taxonomy.ContainsAny(name, s.tables.Indicators(opposite)) {
			score += levelPenalty
		}
	}

	return score
}

func (s *Scorer) category(weights analyzer.CategoryWeights, cats []taxonomy.Category) float64 {
	score := 0.0
	for _, c := range s.tables.Categories {
		w, ok := weights[c]
		if !ok || !slices.Contains(cats, c) {
			continue
		}
		score += float64(w) * categoryFactor
	}
	return score
}

// Rank scores every hit and orders them by descending score. Equal scores keep
// their retrieval order.
func (s *Scorer) Rank(signals *analyzer.QuerySignals, rawQuery string, hits []catalog.Hit) []Scored {
	scored := make([]Scored, 0, len(hits))
	for _, hit := range hits {
		if hit.Assessment == nil {
			continue
		}
		b := s.Explain(signals, rawQuery, hit)
		scored = append(scored, Scored{Hit: hit, Score: b.Total(), Breakdown: b})
	}

	SortByScore(scored)
	return scored
}

// SortByScore stable-sorts in place by descending score.
func SortByScore(scored []Scored) {
	slices.SortStableFunc(scored, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
