package citation

import (
	"context"
	"log/slog"
	"sort"

	"litcite/internal/cache"
	"litcite/internal/contextutil"
	"litcite/internal/vectorstore"
)

const (
	// forwardProbeK is how many nearest sentences are probed per answer
	// sentence; the pool guard filters most of them out.
	forwardProbeK = 50
	// reverseProbeK is how many sentences are probed per (document,
	// answer sentence) pair in reverse matching.
	reverseProbeK = 10
)

// Locator matches answer sentences to source documents in both directions.
// Forward matching assigns the best document to each answer sentence;
// reverse matching assigns the best answer sentences to each required
// reference document, so that no listed reference is left without evidence.
type Locator struct {
	embedder            Embedder
	index               vectorstore.Index
	sentenceCollection  string
	paragraphCollection string
	embedCache          *cache.Store
	pageCache           *cache.Store
	logger              *slog.Logger
}

// NewLocator creates a citation locator over the sentence- and
// paragraph-level collections.
func NewLocator(embedder Embedder, index vectorstore.Index, sentenceCollection, paragraphCollection string, embedCache, pageCache *cache.Store) *Locator {
	return &Locator{
		embedder:            embedder,
		index:               index,
		sentenceCollection:  sentenceCollection,
		paragraphCollection: paragraphCollection,
		embedCache:          embedCache,
		pageCache:           pageCache,
		logger:              slog.Default(),
	}
}

// MatchForward finds, for each non-structural answer sentence, the best
// matching source sentence whose document is in the candidate pool. A match
// outside the pool is discarded: a document that was never retrieved for
// this answer must not be cited. Only matches at or above threshold are
// kept, one per answer sentence.
//
// External failures degrade to an empty contribution for the affected
// sentence (or the whole pass if the batch embedding fails); a validation
// failure constructing a location is a logic defect and is returned.
func (l *Locator) MatchForward(ctx context.Context, answerSentences []string, pool []Candidate, threshold float64) (map[string][]Location, error) {
	logger := contextutil.LoggerFromContext(ctx)
	locations := make(map[string][]Location)

	poolIDs := poolSourceIDs(pool)
	if len(poolIDs) == 0 {
		logger.WarnContext(ctx, "empty candidate pool, forward matching skipped")
		return locations, nil
	}

	type eligible struct {
		index int
		text  string
	}
	var sentences []eligible
	var texts []string
	for i, sentence := range answerSentences {
		if isStructural(sentence) {
			continue
		}
		sentences = append(sentences, eligible{index: i, text: sentence})
		texts = append(texts, sentence)
	}
	if len(sentences) == 0 {
		return locations, nil
	}

	embeddings, err := l.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed answer sentences, forward matching skipped", "error", err)
		return locations, nil
	}

	matched := 0
	for i, sentence := range sentences {
		hits, err := l.index.Search(ctx, l.sentenceCollection, embeddings[i], forwardProbeK, nil)
		if err != nil {
			logger.WarnContext(ctx, "sentence query failed", "sentence_index", sentence.index, "error", err)
			continue
		}

		var best *vectorstore.SearchResult
		bestSim := 0.0
		for j, hit := range hits {
			if hit.SourceID == "" || !poolIDs[hit.SourceID] {
				continue
			}
			if sim := similarityFromDistance(hit.Distance); sim > bestSim {
				bestSim = sim
				best = &hits[j]
			}
		}
		if best == nil || bestSim < threshold {
			continue
		}

		loc, err := NewLocation(best.SourceID, sentence.text, sentence.index, best.Text, l.pageFor(ctx, best.SourceID), bestSim)
		if err != nil {
			return nil, err
		}
		loc = loc.withSentenceMeta(best.Meta)
		locations[best.SourceID] = append(locations[best.SourceID], loc)
		matched++
	}

	logger.InfoContext(ctx, "forward matching completed",
		"sentences", len(sentences),
		"matched", matched,
		"documents", len(locations),
	)
	return locations, nil
}

// MatchReverse finds, for each required reference document, the best-matching
// answer sentences. For every answer sentence the nearest sentence of that
// document is probed; matches at or above threshold are collected, sorted by
// similarity descending and capped at topK per document. This pass exists so
// documents in the reference list are never left without a citation location.
func (l *Locator) MatchReverse(ctx context.Context, requiredIDs []string, answerSentences []string, topK int, threshold float64) (map[string][]Location, error) {
	logger := contextutil.LoggerFromContext(ctx)
	locations := make(map[string][]Location)

	if len(answerSentences) == 0 {
		logger.WarnContext(ctx, "no answer sentences, reverse matching skipped")
		return locations, nil
	}

	for _, sourceID := range requiredIDs {
		locs, err := l.reverseForDocument(ctx, sourceID, answerSentences, topK, threshold)
		if err != nil {
			return nil, err
		}
		if len(locs) > 0 {
			locations[sourceID] = locs
		}
	}

	logger.InfoContext(ctx, "reverse matching completed",
		"required", len(requiredIDs),
		"covered", len(locations),
	)
	return locations, nil
}

// reverseForDocument collects the best per-sentence matches restricted to one
// document.
func (l *Locator) reverseForDocument(ctx context.Context, sourceID string, answerSentences []string, topK int, threshold float64) ([]Location, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var collected []Location
	for i, sentence := range answerSentences {
		if isStructural(sentence) {
			continue
		}

		embedding, err := l.sentenceEmbedding(ctx, sentence)
		if err != nil {
			logger.WarnContext(ctx, "failed to embed sentence", "sentence_index", i, "error", err)
			continue
		}

		hits, err := l.index.Search(ctx, l.sentenceCollection, embedding, reverseProbeK, map[string]any{"doi": sourceID})
		if err != nil {
			logger.WarnContext(ctx, "restricted sentence query failed", "source_id", sourceID, "sentence_index", i, "error", err)
			continue
		}
		if len(hits) == 0 {
			continue
		}

		// Hits come back nearest-first; only the best one matters here.
		best := hits[0]
		sim := similarityFromDistance(best.Distance)
		if sim < threshold {
			continue
		}

		loc, err := NewLocation(sourceID, sentence, i, best.Text, l.pageFor(ctx, sourceID), sim)
		if err != nil {
			return nil, err
		}
		collected = append(collected, loc.withSentenceMeta(best.Meta))
	}

	sort.SliceStable(collected, func(i, j int) bool {
		if collected[i].Similarity != collected[j].Similarity {
			return collected[i].Similarity > collected[j].Similarity
		}
		return collected[i].AnswerSentenceIndex < collected[j].AnswerSentenceIndex
	})
	if len(collected) > topK {
		collected = collected[:topK]
	}
	return collected, nil
}

// sentenceEmbedding returns the cached embedding for one sentence.
func (l *Locator) sentenceEmbedding(ctx context.Context, sentence string) ([]float32, error) {
	val, err := l.embedCache.GetOrCompute(cache.Key(sentence), func() (any, error) {
		vecs, err := l.embedder.EmbedTexts(ctx, []string{sentence})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]float32), nil
}

// pageFor resolves the page number for a document from the paragraph-level
// collection. A document without a page record resolves to 0; that is a
// normal outcome, not an error. Lookup failures also resolve to 0 but are
// not cached, so a later attempt can succeed.
func (l *Locator) pageFor(ctx context.Context, sourceID string) int {
	logger := contextutil.LoggerFromContext(ctx)

	key := "page:" + sourceID
	if val, found := l.pageCache.Get(key); found {
		return val.(int)
	}

	rows, err := l.index.Fetch(ctx, l.paragraphCollection, map[string]any{"doi": sourceID}, 1)
	if err != nil {
		logger.WarnContext(ctx, "page lookup failed", "source_id", sourceID, "error", err)
		return 0
	}

	page := 0
	if len(rows) > 0 {
		if p, ok := asInt(rows[0].Meta["page"]); ok && p >= 0 {
			page = p
		}
	}
	l.pageCache.Set(key, page)
	return page
}

// poolSourceIDs collects the usable document ids of a candidate pool.
func poolSourceIDs(pool []Candidate) map[string]bool {
	ids := make(map[string]bool, len(pool))
	for _, doc := range pool {
		if usableSourceID(doc.SourceID) {
			ids[doc.SourceID] = true
		}
	}
	return ids
}
