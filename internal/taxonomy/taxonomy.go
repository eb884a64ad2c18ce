// Package taxonomy holds the fixed lookup tables shared by query analysis,
// candidate scoring and catalog enrichment: skill keywords, seniority
// indicators, duration patterns and assessment category codes.
//
// Tables are built once and must be treated as read-only by callers.
package taxonomy

import (
	"regexp"
	"slices"
	"strings"
)

// Category is a single-letter assessment category code.
type Category string

const (
	CategoryKnowledge   Category = "K"
	CategoryPersonality Category = "P"
	CategoryAbility     Category = "A"
	CategorySimulation  Category = "S"
	CategoryBiodata     Category = "B"
	CategoryCompetency  Category = "C"
	CategoryDevelopment Category = "D"
	CategoryExercise    Category = "E"
)

// Level is the seniority a query asks for.
type Level string

const (
	LevelEntry  Level = "entry"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
)

// Skill is a taxonomy tag together with the phrases that signal it.
type Skill struct {
	Tag      string
	Keywords []string
}

// Seniority maps a level to the phrases that indicate it.
type Seniority struct {
	Level      Level
	Indicators []string
}

// DurationPattern extracts a target duration from lower-cased text.
// When Fixed is non-zero the pattern has no capture group and yields Fixed.
type DurationPattern struct {
	Expr       *regexp.Regexp
	Multiplier int
	Fixed      int
}

// Tables is the full set of lookup data.
type Tables struct {
	Skills     []Skill
	Seniority  []Seniority
	Durations  []DurationPattern
	Categories []Category
	Names      map[Category]string

	Technical  []string
	Managerial []string

	skillIndex map[string]Skill
	levelIndex map[Level]Seniority
}

var defaultTables = build()

// Default returns the process-wide tables.
func Default() *Tables {
	return defaultTables
}

func build() *Tables {
	t := &Tables{
		Skills: []Skill{
			{Tag: "sql", Keywords: []string{"sql", "database", "mysql", "postgresql", "oracle", "query", "rdbms"}},
			{Tag: "excel", Keywords: []string{"excel", "spreadsheet", "pivot", "vlookup"}},
			{Tag: "python", Keywords: []string{"python", "pandas", "numpy", "django", "flask"}},
			{Tag: "java", Keywords: []string{"java", "j2ee", "jdk", "spring", "hibernate", "javafx"}},
			{Tag: "javascript", Keywords: []string{"javascript", "js", "node.js", "react", "angular", "vue"}},
			{Tag: "testing", Keywords: []string{"testing", "qa", "quality assurance", "selenium", "test case"}},
			{Tag: "cloud", Keywords: []string{"cloud", "aws", "azure", "gcp", "amazon web services"}},
			{Tag: "data_analysis", Keywords: []string{"data analysis", "analytics", "statistics", "bi", "business intelligence"}},
			{Tag: "web", Keywords: []string{"html", "css", "frontend", "backend", "web development"}},
			{Tag: "sales", Keywords: []string{"sales", "selling", "salesforce", "customer acquisition", "revenue"}},
			{Tag: "marketing", Keywords: []string{"marketing", "brand", "campaign", "digital marketing", "seo", "social media"}},
			{Tag: "communication", Keywords: []string{"communication", "english", "verbal", "written", "presentation"}},
			{Tag: "leadership", Keywords: []string{"leadership", "management", "lead", "manager", "supervisor"}},
			{Tag: "admin", Keywords: []string{"admin", "administrative", "clerical", "secretarial", "office"}},
			{Tag: "banking", Keywords: []string{"bank", "financial", "finance", "banking", "accounting", "teller"}},
			{Tag: "customer_service", Keywords: []string{"customer service", "support", "helpdesk", "client service"}},
			{Tag: "analyst", Keywords: []string{"analyst", "analysis", "reporting", "metrics", "kpi"}},
			{Tag: "developer", Keywords: []string{"developer", "programmer", "coder", "software engineer"}},
			{Tag: "manager", Keywords: []string{"manager", "management", "supervisor", "director"}},
			{Tag: "consultant", Keywords: []string{"consultant", "consulting", "advisor", "advisory"}},
			{Tag: "content", Keywords: []string{"content", "writer", "writing", "copy", "editor", "seo"}},
		},
		// Order matters: the analyzer takes the first level that matches.
		Seniority: []Seniority{
			{Level: LevelEntry, Indicators: []string{"entry", "new", "graduate", "fresher", "junior", "0-2", "0-1", "beginner", "basic", "fundamental"}},
			{Level: LevelMid, Indicators: []string{"mid", "intermediate", "3-5", "2-4", "experienced"}},
			{Level: LevelSenior, Indicators: []string{"senior", "lead", "principal", "expert", "advanced", "5+", "6+", "7+", "8+", "10+"}},
		},
		// First pattern in the list that matches wins, even when a later one fits better.
		Durations: []DurationPattern{
			{Expr: regexp.MustCompile(`(\d+)\s*min`), Multiplier: 1},
			{Expr: regexp.MustCompile(`(\d+)\s*minutes`), Multiplier: 1},
			{Expr: regexp.MustCompile(`(\d+)\s*hour`), Multiplier: 60},
			{Expr: regexp.MustCompile(`(\d+)\s*hours`), Multiplier: 60},
			{Expr: regexp.MustCompile(`30-40`), Fixed: 35},
			{Expr: regexp.MustCompile(`40-50`), Fixed: 45},
			{Expr: regexp.MustCompile(`50-60`), Fixed: 55},
		},
		Categories: []Category{
			CategoryKnowledge, CategoryPersonality, CategoryAbility, CategorySimulation,
			CategoryBiodata, CategoryCompetency, CategoryDevelopment, CategoryExercise,
		},
		Names: map[Category]string{
			CategoryKnowledge:   "Knowledge & Skills",
			CategoryPersonality: "Personality & Behavior",
			CategoryAbility:     "Ability & Aptitude",
			CategorySimulation:  "Simulations",
			CategoryBiodata:     "Biodata & Situational Judgement",
			CategoryCompetency:  "Competencies",
			CategoryDevelopment: "Development & 360",
			CategoryExercise:    "Assessment Exercises",
		},
		Technical:  []string{"sql", "python", "java", "javascript", "testing", "cloud", "data_analysis"},
		Managerial: []string{"leadership", "manager", "communication", "sales", "marketing"},
	}

	t.skillIndex = make(map[string]Skill, len(t.Skills))
	for _, s := range t.Skills {
		t.skillIndex[s.Tag] = s
	}

	t.levelIndex = make(map[Level]Seniority, len(t.Seniority))
	for _, s := range t.Seniority {
		t.levelIndex[s.Level] = s
	}

	return t
}

// Keywords returns the keyword phrases of a skill tag, or nil for unknown tags.
func (t *Tables) Keywords(tag string) []string {
	return t.skillIndex[tag].Keywords
}

// Indicators returns the seniority phrases of a level, or nil for unknown levels.
func (t *Tables) Indicators(level Level) []string {
	return t.levelIndex[level].Indicators
}

// IsCategory reports whether c belongs to the fixed category alphabet.
func (t *Tables) IsCategory(c Category) bool {
	return slices.Contains(t.Categories, c)
}

// CategoryRank is the position of c in the alphabet, or len(Categories) for unknown codes.
func (t *Tables) CategoryRank(c Category) int {
	if idx := slices.Index(t.Categories, c); idx >= 0 {
		return idx
	}
	return len(t.Categories)
}

// DetectSkills returns the tags whose keywords occur in the already lower-cased text,
// in taxonomy order.
func (t *Tables) DetectSkills(lower string) []string {
	found := make([]string, 0)
	for _, s := range t.Skills {
		if ContainsAny(lower, s.Keywords) {
			found = append(found, s.Tag)
		}
	}
	return found
}

// Opposite returns the level penalised for q: entry and senior oppose each other,
// mid has no opposite.
func Opposite(q Level) (Level, bool) {
	switch q {
	case LevelEntry:
		return LevelSenior, true
	case LevelSenior:
		return LevelEntry, true
	default:
		return "", false
	}
}

// ContainsAny reports whether any phrase is a substring of text.
func ContainsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
