package ingest

import (
	"strconv"

	"github.com/spf13/afero"

	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/vectorstore"
)

// Entry is one catalog record moving through the pipeline. Later stages fill
// in the fields earlier ones leave empty.
type Entry struct {
	Index      int
	Record     catalog.Record
	Assessment *catalog.Assessment
	Document   string
	Embedding  []float32
}

// Label identifies the entry in logs.
func (e *Entry) Label() string {
	if e.Assessment != nil && e.Assessment.URL != "" {
		return e.Assessment.URL
	}
	return "#" + strconv.Itoa(e.Index)
}

// Set is the working set shared by the stages.
type Set struct {
	entries []*Entry
}

func NewSet(records []catalog.Record) *Set {
	entries := make([]*Entry, 0, len(records))
	for i, rec := range records {
		entries = append(entries, &Entry{Index: i, Record: rec})
	}
	return &Set{entries: entries}
}

// Load reads the raw catalog at path into a new Set.
func Load(fs afero.Fs, path string) (*Set, error) {
	records, err := catalog.ReadRecords(fs, path)
	if err != nil {
		return nil, err
	}
	return NewSet(records), nil
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *Set) Entries() []*Entry {
	if s == nil {
		return nil
	}
	return s.entries
}

// Keep retains the entries for which keep returns true and returns the labels
// of the removed ones.
func (s *Set) Keep(keep func(*Entry) bool) []string {
	var dropped []string
	kept := s.entries[:0]
	for _, e := range s.entries {
		if keep(e) {
			kept = append(kept, e)
			continue
		}
		dropped = append(dropped, e.Label())
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	return dropped
}

// Assessments returns the decoded assessments in set order.
func (s *Set) Assessments() []*catalog.Assessment {
	out := make([]*catalog.Assessment, 0, s.Len())
	for _, e := range s.Entries() {
		if e.Assessment != nil {
			out = append(out, e.Assessment)
		}
	}
	return out
}

// Items converts the entries into store items.
func (s *Set) Items() []vectorstore.Item {
	items := make([]vectorstore.Item, 0, s.Len())
	for _, e := range s.Entries() {
		items = append(items, vectorstore.Item{
			Assessment: e.Assessment,
			Document:   e.Document,
			Embedding:  e.Embedding,
		})
	}
	return items
}
