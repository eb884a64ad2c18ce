package analyzer

import (
	"testing"

	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

func TestAnalyzeJavaScenario(t *testing.T) {
	signals := New(nil).Analyze("Java developer, must collaborate with business teams, 40 minute test")

	if !signals.HasSkill("java") {
		t.Fatalf("expected java skill, got %v", signals.Skills)
	}
	if signals.ExperienceLevel != taxonomy.LevelMid {
		t.Fatalf("expected mid level, got %q", signals.ExperienceLevel)
	}
	if signals.TargetDurationMinutes == nil || *signals.TargetDurationMinutes != 40 {
		t.Fatalf("expected 40 minutes, got %v", signals.TargetDurationMinutes)
	}

	want := CategoryWeights{taxonomy.CategoryKnowledge: 70, taxonomy.CategoryPersonality: 30}
	assertWeights(t, want, signals.CategoryWeights)
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	signals := New(nil).Analyze("")

	if len(signals.Skills) != 0 {
		t.Fatalf("expected no skills, got %v", signals.Skills)
	}
	if signals.ExperienceLevel != taxonomy.LevelMid {
		t.Fatalf("expected default mid level, got %q", signals.ExperienceLevel)
	}
	if signals.TargetDurationMinutes != nil {
		t.Fatalf("expected no duration, got %d", *signals.TargetDurationMinutes)
	}
	assertWeights(t, CategoryWeights{taxonomy.CategoryKnowledge: 50, taxonomy.CategoryPersonality: 50}, signals.CategoryWeights)
}

func TestAnalyzeExperienceLevelPriority(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  taxonomy.Level
	}{
		{name: "entry", query: "Graduate analyst role", want: taxonomy.LevelEntry},
		{name: "senior", query: "Principal engineer", want: taxonomy.LevelSenior},
		{name: "mid", query: "intermediate accountant", want: taxonomy.LevelMid},
		{name: "entry wins over senior", query: "junior or senior candidates", want: taxonomy.LevelEntry},
		{name: "default", query: "plumber", want: taxonomy.LevelMid},
	}

	a := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Analyze(tt.query).ExperienceLevel; got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAnalyzeDurationFirstPatternWins(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
		found bool
	}{
		{name: "minutes", query: "can be completed in 45 minutes", want: 45, found: true},
		{name: "short minutes", query: "about 30min", want: 30, found: true},
		{name: "hours", query: "at most 1 hour", want: 60, found: true},
		{name: "range", query: "roughly 40-50 long", want: 45, found: true},
		{name: "minutes beat range", query: "30-40 minutes", want: 40, found: true},
		{name: "minutes beat hours", query: "2 hours or 90 mins", want: 90, found: true},
		{name: "none", query: "no time limit", found: false},
	}

	a := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.query).TargetDurationMinutes
			if !tt.found {
				if got != nil {
					t.Fatalf("expected no duration, got %d", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("expected %d, got %v", tt.want, got)
			}
		})
	}
}

func TestAnalyzeManagerialOverridesTechnical(t *testing.T) {
	signals := New(nil).Analyze("Python team manager")

	if !signals.HasSkill("python") || !signals.HasSkill("manager") {
		t.Fatalf("expected python and manager skills, got %v", signals.Skills)
	}
	assertWeights(t, CategoryWeights{taxonomy.CategoryKnowledge: 40, taxonomy.CategoryPersonality: 60}, signals.CategoryWeights)
}

func assertWeights(t *testing.T, want, got CategoryWeights) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("expected weights %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("expected weights %v, got %v", want, got)
		}
	}
}
