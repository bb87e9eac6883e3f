package lexicon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Lexicon holds the static term-mapping and synonym tables used by the query
// expander. Loaded once at process start, read-only afterwards.
type Lexicon struct {
	terms    map[string]string   // source term -> translated term
	synonyms map[string][]string // term -> synonym list
}

// Load reads the term-mapping and synonym JSON files. A missing or empty path
// yields an empty table with a warning; a malformed file is an error.
func Load(termPath, synonymPath string) (*Lexicon, error) {
	l := &Lexicon{
		terms:    make(map[string]string),
		synonyms: make(map[string][]string),
	}

	if termPath != "" {
		if err := loadJSON(termPath, &l.terms); err != nil {
			return nil, fmt.Errorf("failed to load term mapping: %w", err)
		}
		slog.Info("term mapping loaded", "path", termPath, "terms", len(l.terms))
	} else {
		slog.Warn("no term mapping configured, rule-based translation disabled")
	}

	if synonymPath != "" {
		if err := loadJSON(synonymPath, &l.synonyms); err != nil {
			return nil, fmt.Errorf("failed to load synonyms: %w", err)
		}
		slog.Info("synonyms loaded", "path", synonymPath, "groups", len(l.synonyms))
	} else {
		slog.Warn("no synonym table configured, synonym expansion disabled")
	}

	return l, nil
}

func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("lexicon file does not exist", "path", path)
			return nil
		}
		return err
	}
	return json.Unmarshal(data, out)
}

// TranslateTerms replaces every known term in the query with its mapped
// translation. Terms are applied in sorted order so the result is
// deterministic.
func (l *Lexicon) TranslateTerms(query string) string {
	result := query
	for _, term := range sortedKeys(l.terms) {
		if strings.Contains(result, term) {
			result = strings.ReplaceAll(result, term, l.terms[term])
		}
	}
	return result
}

// SynonymVariant replaces the first known term found in the query with its
// first synonym. Only one substitution is made; the variant stays close to
// the original query.
func (l *Lexicon) SynonymVariant(query string) string {
	for _, term := range sortedSynonymKeys(l.synonyms) {
		if strings.Contains(query, term) {
			alternatives := l.synonyms[term]
			if len(alternatives) > 0 {
				return strings.Replace(query, term, alternatives[0], 1)
			}
		}
	}
	return query
}

// TermCount returns the number of loaded term mappings.
func (l *Lexicon) TermCount() int { return len(l.terms) }

// SynonymCount returns the number of loaded synonym groups.
func (l *Lexicon) SynonymCount() int { return len(l.synonyms) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSynonymKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
