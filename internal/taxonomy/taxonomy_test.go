package taxonomy

import "testing"

func TestDetectSkillsKeepsTaxonomyOrder(t *testing.T) {
	got := Default().DetectSkills("python developer with sql and excel")

	want := []string{"sql", "excel", "python", "developer"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCategoryRank(t *testing.T) {
	tables := Default()

	if tables.CategoryRank(CategoryKnowledge) != 0 {
		t.Fatalf("expected K to rank first")
	}
	if tables.CategoryRank(CategoryExercise) != 7 {
		t.Fatalf("expected E to rank last")
	}
	if tables.CategoryRank("Z") != len(tables.Categories) {
		t.Fatalf("expected unknown code to rank after the alphabet")
	}
	if tables.IsCategory("Z") {
		t.Fatalf("unexpected category Z")
	}
}

func TestOpposite(t *testing.T) {
	if lvl, ok := Opposite(LevelEntry); !ok || lvl != LevelSenior {
		t.Fatalf("expected senior to oppose entry, got %q %v", lvl, ok)
	}
	if lvl, ok := Opposite(LevelSenior); !ok || lvl != LevelEntry {
		t.Fatalf("expected entry to oppose senior, got %q %v", lvl, ok)
	}
	if _, ok := Opposite(LevelMid); ok {
		t.Fatalf("mid must have no opposite")
	}
}

func TestKeywordsUnknownTag(t *testing.T) {
	if kw := Default().Keywords("cobol"); kw != nil {
		t.Fatalf("expected nil keywords, got %v", kw)
	}
	if ind := Default().Indicators("staff"); ind != nil {
		t.Fatalf("expected nil indicators, got %v", ind)
	}
}
