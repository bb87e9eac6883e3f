package citation

import (
	"context"
	"errors"
	"testing"

	"litcite/internal/lexicon"
)

func emptyLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.Load("", "")
	if err != nil {
		t.Fatalf("lexicon.Load() unexpected error: %v", err)
	}
	return lex
}

func TestExpander_Expand_Properties(t *testing.T) {
	e := NewExpander(nil, emptyLexicon(t), 3)

	tests := []struct {
		name  string
		query string
	}{
		{"english query", "hardness of high entropy alloys"},
		{"padded query", "  padded query  "},
		{"han query", "高熵合金的硬度"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Expand(context.Background(), tt.query)

			if len(result.AllQueries) == 0 || len(result.AllQueries) > 3 {
				t.Fatalf("got %d variants, want between 1 and 3", len(result.AllQueries))
			}
			if result.AllQueries[0] != result.OriginalQuery {
				t.Errorf("first variant %q is not the original %q", result.AllQueries[0], result.OriginalQuery)
			}
			seen := make(map[string]bool)
			for _, q := range result.AllQueries {
				if seen[q] {
					t.Errorf("duplicate variant %q", q)
				}
				seen[q] = true
			}
		})
	}
}

func TestExpander_Expand_TrimsOriginal(t *testing.T) {
	e := NewExpander(nil, emptyLexicon(t), 3)
	result := e.Expand(context.Background(), "  spaced out  ")
	if result.OriginalQuery != "spaced out" {
		t.Errorf("OriginalQuery = %q, want trimmed", result.OriginalQuery)
	}
}

func TestExpander_Expand_ExternalTranslation(t *testing.T) {
	gen := &fakeGenerator{reply: "hardness of high entropy alloys"}
	e := NewExpander(gen, emptyLexicon(t), 3)

	result := e.Expand(context.Background(), "高熵合金的硬度")

	if result.TranslationMethod != "external" {
		t.Errorf("TranslationMethod = %q, want external", result.TranslationMethod)
	}
	if result.TranslatedQuery != "hardness of high entropy alloys" {
		t.Errorf("TranslatedQuery = %q", result.TranslatedQuery)
	}
	if len(result.AllQueries) != 2 {
		t.Errorf("AllQueries = %v, want original plus translation", result.AllQueries)
	}
}

func TestExpander_Expand_TranslationFallsBackToRule(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("llm unavailable")}
	e := NewExpander(gen, emptyLexicon(t), 3)

	result := e.Expand(context.Background(), "高熵合金")

	if result.TranslationMethod != "rule" {
		t.Errorf("TranslationMethod = %q, want rule", result.TranslationMethod)
	}
	if gen.calls.Load() != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls.Load())
	}
	// The empty rule table leaves the query unchanged, so no extra variant.
	if len(result.AllQueries) != 1 {
		t.Errorf("AllQueries = %v, want only the original", result.AllQueries)
	}
}

func TestExpander_Expand_NoTranslationForEnglish(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be called"}
	e := NewExpander(gen, emptyLexicon(t), 3)

	result := e.Expand(context.Background(), "plain english")

	if result.TranslationMethod != "none" {
		t.Errorf("TranslationMethod = %q, want none", result.TranslationMethod)
	}
	if gen.calls.Load() != 0 {
		t.Errorf("generator calls = %d, want 0", gen.calls.Load())
	}
}
