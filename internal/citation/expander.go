package citation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"litcite/internal/contextutil"
	"litcite/internal/lexicon"
)

const translateSystemPrompt = "You are a scientific translation assistant for materials science literature. " +
	"Translate the user's query into English, keeping technical terms precise. " +
	"Return only the translation, without any explanation."

// Expander turns one query into an ordered, deduplicated set of retrieval
// variants: the original, a translated form and a synonym-substituted form.
// Expand never fails; every degraded branch falls back to "no transformation".
type Expander struct {
	gen        TextGenerator
	lexicon    *lexicon.Lexicon
	maxQueries int
	logger     *slog.Logger
}

// NewExpander creates a query expander. gen may be nil, in which case
// translation always uses the rule table.
func NewExpander(gen TextGenerator, lex *lexicon.Lexicon, maxQueries int) *Expander {
	if maxQueries <= 0 {
		maxQueries = 3
	}
	return &Expander{
		gen:        gen,
		lexicon:    lex,
		maxQueries: maxQueries,
		logger:     slog.Default(),
	}
}

// Expand builds the retrieval variants for a query. The original (trimmed)
// query is always present and always first; the result has no duplicates and
// at most maxQueries entries.
func (e *Expander) Expand(ctx context.Context, query string) ExpansionResult {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	original := strings.TrimSpace(query)

	translated, method := e.translate(ctx, original)
	synonym := e.lexicon.SynonymVariant(original)

	allQueries := []string{original}
	if translated != original && !contains(allQueries, translated) {
		allQueries = append(allQueries, translated)
	}
	if synonym != original && !contains(allQueries, synonym) {
		allQueries = append(allQueries, synonym)
	}
	if len(allQueries) > e.maxQueries {
		allQueries = allQueries[:e.maxQueries]
	}

	elapsed := time.Since(start)
	logger.InfoContext(ctx, "query expanded",
		"variants", len(allQueries),
		"translation_method", method,
		"elapsed", elapsed,
	)

	return ExpansionResult{
		OriginalQuery:     original,
		TranslatedQuery:   translated,
		SynonymQuery:      synonym,
		AllQueries:        allQueries,
		TranslationMethod: method,
		Elapsed:           elapsed,
	}
}

// translate returns the translated query and the method used
// ("none", "external" or "rule").
func (e *Expander) translate(ctx context.Context, query string) (string, string) {
	logger := contextutil.LoggerFromContext(ctx)

	if !needsTranslation(query) {
		return query, "none"
	}

	if e.gen != nil {
		translated, err := e.gen.Generate(ctx, "Translate the following query into English: "+query, translateSystemPrompt)
		if err == nil {
			translated = strings.TrimSpace(translated)
			if translated != "" {
				return translated, "external"
			}
		} else {
			logger.WarnContext(ctx, "external translation failed, falling back to term mapping", "error", err)
		}
	}

	return e.lexicon.TranslateTerms(query), "rule"
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
