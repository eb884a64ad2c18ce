// Package selection picks the final top-K assessments from a ranked list,
// spreading picks across categories according to the query's category mix.
package selection

import (
	"cmp"
	"slices"

	"github.com/spigell/assessment-recommender/internal/analyzer"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/scoring"
	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

// Selector holds the category alphabet used for bucketing and tie breaks.
type Selector struct {
	tables *taxonomy.Tables
}

func New(tables *taxonomy.Tables) *Selector {
	if tables == nil {
		tables = taxonomy.Default()
	}
	return &Selector{tables: tables}
}

// Quota is the number of picks a category with weight w gets out of topK.
// Every weighted category gets at least one.
func Quota(topK, weight int) int {
	return max(1, topK*weight/100)
}

// Select returns at most topK distinct assessments.
//
// Categories are visited by descending weight. Each walks the first quota
// entries of its own bucket, in ranked order, skipping URLs already picked.
// Whatever room is left is then filled from the full ranked list. The result keeps
// selection order, it is not re-sorted by score.
func (s *Selector) Select(ranked []scoring.Scored, weights analyzer.CategoryWeights, topK int) []*catalog.Assessment {
	if topK <= 0 || len(ranked) == 0 {
		return []*catalog.Assessment{}
	}

	p := s.quotaPass(ranked, weights, topK)

	for _, sc := range ranked {
		if len(p.selected) >= topK {
			break
		}
		if sc.Hit.Assessment == nil {
			continue
		}
		p.take(sc.Hit.Assessment)
	}

	return p.selected
}

type picker struct {
	selected []*catalog.Assessment
	seen     map[string]struct{}
	// taken counts the candidates each category admitted during the quota pass.
	taken map[taxonomy.Category]int
}

func (p *picker) take(a *catalog.Assessment) bool {
	if _, ok := p.seen[a.URL]; ok {
		return false
	}
	p.seen[a.URL] = struct{}{}
	p.selected = append(p.selected, a)
	return true
}

func (s *Selector) quotaPass(ranked []scoring.Scored, weights analyzer.CategoryWeights, topK int) *picker {
	p := &picker{
		selected: make([]*catalog.Assessment, 0, topK),
		seen:     make(map[string]struct{}, topK),
		taken:    make(map[taxonomy.Category]int),
	}

	buckets := s.bucket(ranked)
	for _, c := range s.order(weights) {
		bucket := buckets[c]
		// A slot whose candidate was already picked for an earlier category
		// is spent, not refilled from further down the bucket.
		for _, a := range bucket[:min(Quota(topK, weights[c]), len(bucket))] {
			if len(p.selected) >= topK {
				break
			}
			if p.take(a) {
				p.taken[c]++
			}
		}
		if len(p.selected) >= topK {
			break
		}
	}

	return p
}

// bucket groups assessments by every known category they carry, keeping
// ranked order inside each bucket.
func (s *Selector) bucket(ranked []scoring.Scored) map[taxonomy.Category][]*catalog.Assessment {
	buckets := make(map[taxonomy.Category][]*catalog.Assessment)
	for _, sc := range ranked {
		a := sc.Hit.Assessment
		if a == nil {
			continue
		}
		for _, c := range a.Categories {
			if !s.tables.IsCategory(c) {
				continue
			}
			buckets[c] = append(buckets[c], a)
		}
	}
	return buckets
}

// order lists the known weighted categories by descending weight, ties in
// alphabet order.
func (s *Selector) order(weights analyzer.CategoryWeights) []taxonomy.Category {
	cats := make([]taxonomy.Category, 0, len(weights))
	for c := range weights {
		if s.tables.IsCategory(c) {
			cats = append(cats, c)
		}
	}

	slices.SortFunc(cats, func(a, b taxonomy.Category) int {
		if byWeight := cmp.Compare(weights[b], weights[a]); byWeight != 0 {
			return byWeight
		}
		return cmp.Compare(s.tables.CategoryRank(a), s.tables.CategoryRank(b))
	})

	return cats
}
