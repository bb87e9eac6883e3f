package citation

import (
	"strings"
	"testing"
)

func TestInsertMarkers(t *testing.T) {
	sentences := SplitSentences("The alloy hardened. The yield dropped.\n")
	locations := map[string][]Location{
		"10.1000/a1": {mustLocation(t, "10.1000/a1", 0, 0.8)},
		"10.1000/b2": {mustLocation(t, "10.1000/b2", 1, 0.6)},
	}

	got := InsertMarkers(sentences, locations)
	want := "The alloy hardened. (doi=10.1000/a1) The yield dropped. (doi=10.1000/b2)\n"
	if got != want {
		t.Errorf("InsertMarkers() =\n%q\nwant\n%q", got, want)
	}
}

func TestInsertMarkers_BestDocumentWinsPerSentence(t *testing.T) {
	sentences := []string{"One sentence only."}
	locations := map[string][]Location{
		"10.1000/weak":   {mustLocation(t, "10.1000/weak", 0, 0.4)},
		"10.1000/strong": {mustLocation(t, "10.1000/strong", 0, 0.9)},
	}

	got := InsertMarkers(sentences, locations)
	if !strings.Contains(got, "(doi=10.1000/strong)") {
		t.Errorf("got %q, want the higher-similarity document cited", got)
	}
	if strings.Contains(got, "10.1000/weak") {
		t.Errorf("got %q, sentence must carry at most one marker", got)
	}
}

func TestInsertMarkers_TieBreaksToLexicallySmallerID(t *testing.T) {
	sentences := []string{"One sentence only."}
	locations := map[string][]Location{
		"10.1000/b2": {mustLocation(t, "10.1000/b2", 0, 0.7)},
		"10.1000/a1": {mustLocation(t, "10.1000/a1", 0, 0.7)},
	}

	got := InsertMarkers(sentences, locations)
	if !strings.Contains(got, "(doi=10.1000/a1)") {
		t.Errorf("got %q, tie must break to the lexically smaller id", got)
	}
}

func TestInsertMarkers_StructuralLinesUntouched(t *testing.T) {
	answer := "# Results\n\n| a | b |\nReal finding here.\n"
	sentences := SplitSentences(answer)

	// Attach evidence to every sentence index; only the eligible one may change.
	locations := make(map[string][]Location)
	for i := range sentences {
		locations["10.1000/a1"] = append(locations["10.1000/a1"], mustLocation(t, "10.1000/a1", i, 0.9))
	}

	got := InsertMarkers(sentences, locations)
	want := "# Results\n\n| a | b |\nReal finding here. (doi=10.1000/a1)\n"
	if got != want {
		t.Errorf("InsertMarkers() =\n%q\nwant\n%q", got, want)
	}
}

func TestInsertMarkers_Idempotent(t *testing.T) {
	sentences := SplitSentences("The alloy hardened.\n")
	locations := map[string][]Location{
		"10.1000/a1": {mustLocation(t, "10.1000/a1", 0, 0.8)},
	}

	once := InsertMarkers(sentences, locations)
	twice := InsertMarkers(SplitSentences(once), locations)
	if once != twice {
		t.Errorf("insertion not idempotent:\n once %q\ntwice %q", once, twice)
	}
}

func TestInsertMarkers_NoLocations(t *testing.T) {
	answer := "Nothing matched here.\n"
	got := InsertMarkers(SplitSentences(answer), map[string][]Location{})
	if got != answer {
		t.Errorf("got %q, want verbatim answer", got)
	}
}
