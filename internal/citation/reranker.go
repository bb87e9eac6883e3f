package citation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"litcite/internal/cache"
	"litcite/internal/contextutil"
	"litcite/internal/vectorstore"
)

// sentencesPerDocument is how many sentence hits are probed per candidate
// when computing its best-sentence similarity.
const sentencesPerDocument = 50

// Reranker re-orders passage-level candidates using sentence-level evidence:
// a candidate's rerank score is the best similarity of any of its sentences
// to the query.
type Reranker struct {
	embedder   Embedder
	index      vectorstore.Index
	collection string
	embedCache *cache.Store
	simCache   *cache.Store
	logger     *slog.Logger
}

// NewReranker creates a sentence-level reranker. The caches are shared,
// process-wide stores.
func NewReranker(embedder Embedder, index vectorstore.Index, collection string, embedCache, simCache *cache.Store) *Reranker {
	return &Reranker{
		embedder:   embedder,
		index:      index,
		collection: collection,
		embedCache: embedCache,
		simCache:   simCache,
		logger:     slog.Default(),
	}
}

// Rerank sorts candidates by their best sentence similarity to the query and
// returns the top topK. A candidate whose document has no sentence hits, or
// no parsable id, keeps its original score. If the similarity computation
// fails entirely (for example the index is unreachable), the original order
// is returned with each candidate's score copied into its rerank score;
// Rerank never fails to the caller.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) RerankingResult {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if len(candidates) == 0 {
		logger.WarnContext(ctx, "no candidates to rerank")
		return RerankingResult{PerDocumentSimilarity: map[string]float64{}}
	}

	originalRanks := make(map[string]int, len(candidates))
	for i, doc := range candidates {
		if id := CleanDOI(doc.SourceID); id != "" {
			if _, seen := originalRanks[id]; !seen {
				originalRanks[id] = i
			}
		}
	}

	embedding, err := r.queryEmbedding(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "reranking degraded to original order", "error", err)
		return r.passthrough(candidates, topK, start)
	}

	similarities := make(map[string]float64, len(candidates))
	reranked := make([]Candidate, len(candidates))
	for i, doc := range candidates {
		reranked[i] = doc

		id := CleanDOI(doc.SourceID)
		if id == "" {
			// No parsable id: bypass reranking, keep the original score.
			reranked[i].RerankScore = doc.Score
			continue
		}

		if sim, ok := similarities[id]; ok {
			reranked[i].RerankScore = sim
			continue
		}

		sim, err := r.maxSentenceSimilarity(ctx, query, embedding, id)
		if err != nil {
			logger.WarnContext(ctx, "sentence lookup failed, keeping original score", "source_id", id, "error", err)
			reranked[i].RerankScore = doc.Score
			continue
		}
		if sim < 0 {
			// Document has no sentence-level rows.
			reranked[i].RerankScore = doc.Score
			continue
		}

		similarities[id] = sim
		reranked[i].RerankScore = sim
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].RerankScore != reranked[j].RerankScore {
			return reranked[i].RerankScore > reranked[j].RerankScore
		}
		return reranked[i].SourceID < reranked[j].SourceID
	})

	changes := topRankChanges(reranked, originalRanks, 3)

	if len(reranked) > topK {
		reranked = reranked[:topK]
	}

	elapsed := time.Since(start)
	logger.InfoContext(ctx, "reranking completed",
		"candidates", len(candidates),
		"returned", len(reranked),
		"elapsed", elapsed,
	)

	return RerankingResult{
		Documents:             reranked,
		PerDocumentSimilarity: similarities,
		Elapsed:               elapsed,
		TopRankChanges:        changes,
	}
}

// queryEmbedding returns the cached embedding for the query, computing it at
// most once even under concurrent callers.
func (r *Reranker) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	val, err := r.embedCache.GetOrCompute(cache.Key(query), func() (any, error) {
		vecs, err := r.embedder.EmbedTexts(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return val.([]float32), nil
}

// maxSentenceSimilarity returns the best sentence similarity for one
// document, cached per (query, document). Returns -1 when the document has
// no sentence-level rows.
func (r *Reranker) maxSentenceSimilarity(ctx context.Context, query string, embedding []float32, sourceID string) (float64, error) {
	val, err := r.simCache.GetOrCompute(cache.CompositeKey(query, sourceID), func() (any, error) {
		hits, err := r.index.Search(ctx, r.collection, embedding, sentencesPerDocument, map[string]any{"doi": sourceID})
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			return -1.0, nil
		}
		best := 0.0
		for _, hit := range hits {
			if sim := similarityFromDistance(hit.Distance); sim > best {
				best = sim
			}
		}
		return best, nil
	})
	if err != nil {
		return 0, err
	}
	return val.(float64), nil
}

// passthrough returns candidates in their original order with scores copied
// into rerank scores.
func (r *Reranker) passthrough(candidates []Candidate, topK int, start time.Time) RerankingResult {
	docs := make([]Candidate, len(candidates))
	for i, doc := range candidates {
		docs[i] = doc
		docs[i].RerankScore = doc.Score
	}
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return RerankingResult{
		Documents:             docs,
		PerDocumentSimilarity: map[string]float64{},
		Elapsed:               time.Since(start),
	}
}

// topRankChanges reports how the first n documents moved relative to their
// original ranks.
func topRankChanges(reranked []Candidate, originalRanks map[string]int, n int) []RankChange {
	changes := make([]RankChange, 0, n)
	for i := 0; i < len(reranked) && i < n; i++ {
		id := CleanDOI(reranked[i].SourceID)
		oldRank, ok := originalRanks[id]
		if !ok {
			oldRank = -1
		}
		changes = append(changes, RankChange{SourceID: id, OldRank: oldRank, NewRank: i})
	}
	return changes
}
