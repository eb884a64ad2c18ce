package catalog

import (
	"slices"
	"strconv"
	"strings"

	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

const (
	DefaultDurationMinutes = 30
	DefaultAdaptiveSupport = "No"
	DefaultRemoteSupport   = "Yes"

	maxSkillTags      = 5
	maxDescriptionLen = 300
)

// Assessment is one catalog item after normalization. URL is its identity.
type Assessment struct {
	Name            string              `json:"name"`
	URL             string              `json:"url"`
	Description     string              `json:"description"`
	DurationMinutes int                 `json:"duration"`
	Categories      []taxonomy.Category `json:"test_type"`
	SkillTags       []string            `json:"skills,omitempty"`
	AdaptiveSupport string              `json:"adaptive_support"`
	RemoteSupport   string              `json:"remote_support"`

	// DurationUnknown is set when the source duration could not be parsed.
	// Such assessments get no duration score.
	DurationUnknown bool `json:"-"`
}

// Hit is an assessment returned by the vector index for one query.
type Hit struct {
	Assessment *Assessment
	// Distance is non-negative, lower is closer.
	Distance float64
}

// Enrich detects skill tags from the name and description and trims the
// description for storage.
func (a *Assessment) Enrich(tables *taxonomy.Tables) {
	text := strings.ToLower(a.Name + " " + a.Description)
	tags := tables.DetectSkills(text)
	if len(tags) > maxSkillTags {
		tags = tags[:maxSkillTags]
	}
	a.SkillTags = tags

	if runes := []rune(a.Description); len(runes) > maxDescriptionLen {
		a.Description = string(runes[:maxDescriptionLen])
	}
}

// Document renders the text that gets embedded for the assessment.
func (a *Assessment) Document() string {
	var b strings.Builder
	b.WriteString("Name: " + a.Name + "\n")
	b.WriteString("Description: " + a.Description + "\n")
	b.WriteString("Skills: " + strings.Join(a.SkillTags, ", ") + "\n")
	b.WriteString("Test Type: " + JoinCategories(a.Categories) + "\n")
	if a.DurationUnknown {
		b.WriteString("Duration: unknown")
	} else {
		b.WriteString("Duration: " + strconv.Itoa(a.DurationMinutes) + " minutes")
	}
	return b.String()
}

// HasCategory reports whether the assessment carries c.
func (a *Assessment) HasCategory(c taxonomy.Category) bool {
	return slices.Contains(a.Categories, c)
}

// JoinCategories renders categories as a comma-separated string.
func JoinCategories(cats []taxonomy.Category) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}
