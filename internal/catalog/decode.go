// Package catalog describes assessment records and normalizes the loosely
// typed scraped catalog into them.
package catalog

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"

	"github.com/spigell/assessment-recommender/internal/taxonomy"
)

// Record is a raw catalog entry as produced by the scraper.
type Record map[string]any

type rawAssessment struct {
	Name            string              `mapstructure:"name"`
	URL             string              `mapstructure:"url"`
	Description     string              `mapstructure:"description"`
	Duration        any                 `mapstructure:"duration"`
	Categories      []taxonomy.Category `mapstructure:"test_type"`
	SkillTags       []string            `mapstructure:"skills"`
	AdaptiveSupport string              `mapstructure:"adaptive_support"`
	RemoteSupport   string              `mapstructure:"remote_support"`
}

var (
	categoriesType = reflect.TypeOf([]taxonomy.Category{})
	stringsType    = reflect.TypeOf([]string{})
)

// ReadRecords loads a JSON array of raw records from path.
func ReadRecords(fs afero.Fs, path string) ([]Record, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing catalog %q: %w", path, err)
	}

	return records, nil
}

// Decode normalizes a raw record. Categories may arrive as a list or as a
// comma-separated string; duration as a number or a numeric string. Missing
// fields get the catalog defaults.
func Decode(rec Record) (*Assessment, error) {
	var raw rawAssessment

	cfg := &mapstructure.DecoderConfig{
		DecodeHook:       splitStringHook,
		WeaklyTypedInput: true,
		Result:           &raw,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	a := &Assessment{
		Name:            strings.TrimSpace(raw.Name),
		URL:             strings.TrimSpace(raw.URL),
		Description:     strings.TrimSpace(raw.Description),
		Categories:      NormalizeCategories(raw.Categories),
		SkillTags:       trimAll(raw.SkillTags),
		AdaptiveSupport: defaultString(raw.AdaptiveSupport, DefaultAdaptiveSupport),
		RemoteSupport:   defaultString(raw.RemoteSupport, DefaultRemoteSupport),
	}

	minutes, known := ParseDuration(raw.Duration)
	a.DurationMinutes = minutes
	a.DurationUnknown = !known

	return a, nil
}

// ParseDuration interprets a raw duration value. Absent values mean the
// default duration; values that cannot be read as whole minutes are unknown.
func ParseDuration(v any) (int, bool) {
	switch val := v.(type) {
	case nil:
		return DefaultDurationMinutes, true
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int(val), true
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return DefaultDurationMinutes, true
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ParseCategories splits a comma-separated category string.
func ParseCategories(s string) []taxonomy.Category {
	parts := strings.Split(s, ",")
	cats := make([]taxonomy.Category, 0, len(parts))
	for _, p := range parts {
		cats = append(cats, taxonomy.Category(p))
	}
	return NormalizeCategories(cats)
}

// NormalizeCategories trims and upper-cases codes, drops empty ones and
// falls back to Knowledge & Skills when nothing is left. Unknown codes are
// kept; consumers ignore them.
func NormalizeCategories(cats []taxonomy.Category) []taxonomy.Category {
	out := make([]taxonomy.Category, 0, len(cats))
	for _, c := range cats {
		code := taxonomy.Category(strings.ToUpper(strings.TrimSpace(string(c))))
		if code == "" {
			continue
		}
		out = append(out, code)
	}

	if len(out) == 0 {
		return []taxonomy.Category{taxonomy.CategoryKnowledge}
	}

	return out
}

func splitStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	if to != categoriesType && to != stringsType {
		return data, nil
	}

	s, _ := data.(string)
	if strings.TrimSpace(s) == "" {
		return []string{}, nil
	}
	return strings.Split(s, ","), nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func defaultString(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
