package citation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"litcite/internal/contextutil"
	"litcite/internal/vectorstore"
)

// maxRetrievalWorkers bounds the pool that runs query variants in parallel.
const maxRetrievalWorkers = 3

// Retriever runs multiple query variants against the passage-level index in
// parallel and merges the hits into one deduplicated, score-sorted pool.
type Retriever struct {
	embedder    Embedder
	index       vectorstore.Index
	collection  string
	workerLimit int
	logger      *slog.Logger
}

// NewRetriever creates a multi-query retriever. workerLimit <= 0 selects the
// default pool bound.
func NewRetriever(embedder Embedder, index vectorstore.Index, collection string, workerLimit int) *Retriever {
	if workerLimit <= 0 {
		workerLimit = maxRetrievalWorkers
	}
	return &Retriever{
		embedder:    embedder,
		index:       index,
		collection:  collection,
		workerLimit: workerLimit,
		logger:      slog.Default(),
	}
}

// Retrieve embeds all queries in one batch call, dispatches one index query
// per variant across a bounded worker pool, and merges the results.
//
// The batch embedding fails as a unit: on error the whole call yields an
// empty result. Individual index queries fail in isolation and only zero
// that variant's contribution. The merge keeps, per source id, the hit with
// the maximum score; hits without an id are never merged with one another.
// That reduction is commutative and associative, so the output does not
// depend on worker completion order.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, topKPerQuery int) MultiQueryResult {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if len(queries) == 0 {
		logger.WarnContext(ctx, "no queries to retrieve")
		return MultiQueryResult{PerQueryContribution: map[string]int{}}
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, queries)
	if err != nil {
		logger.ErrorContext(ctx, "batch embedding failed", "queries", len(queries), "error", err)
		return MultiQueryResult{
			PerQueryContribution: map[string]int{},
			Elapsed:              time.Since(start),
		}
	}

	workers := min(len(queries), r.workerLimit)
	perQuery := make([][]Candidate, len(queries))

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range queries {
		g.Go(func() error {
			perQuery[i] = r.retrieveSingle(ctx, queries[i], embeddings[i], topKPerQuery)
			return nil
		})
	}
	_ = g.Wait() // workers absorb their own failures

	var all []Candidate
	contributions := make(map[string]int, len(queries))
	for i, query := range queries {
		all = append(all, perQuery[i]...)
		contributions[query] = len(perQuery[i])
	}

	deduped := DedupBySource(all)
	elapsed := time.Since(start)

	logger.InfoContext(ctx, "multi-query retrieval completed",
		"queries", len(queries),
		"workers", workers,
		"before_dedup", len(all),
		"after_dedup", len(deduped),
		"elapsed", elapsed,
	)

	return MultiQueryResult{
		Documents:            deduped,
		PerQueryContribution: contributions,
		CountBeforeDedup:     len(all),
		CountAfterDedup:      len(deduped),
		Elapsed:              elapsed,
	}
}

// retrieveSingle runs one query variant. Failures are absorbed and yield an
// empty contribution for this variant only.
func (r *Retriever) retrieveSingle(ctx context.Context, query string, embedding []float32, topK int) []Candidate {
	logger := contextutil.LoggerFromContext(ctx)

	hits, err := r.index.Search(ctx, r.collection, embedding, topK, nil)
	if err != nil {
		logger.ErrorContext(ctx, "query variant failed", "query", query, "error", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, Candidate{
			SourceID:    hit.SourceID,
			Text:        hit.Text,
			Meta:        hit.Meta,
			Distance:    hit.Distance,
			Score:       retrievalScore(hit.Distance),
			SourceQuery: query,
		})
	}
	return candidates
}

// DedupBySource keeps, per source id, the candidate with the maximum score.
// Candidates without an id are treated as unique and pass through. The output
// is sorted by score descending, with equal scores broken by ascending source
// id so the order is stable. Applying DedupBySource twice equals applying it
// once.
func DedupBySource(documents []Candidate) []Candidate {
	if len(documents) == 0 {
		return nil
	}

	best := make(map[string]Candidate)
	var anonymous []Candidate

	for _, doc := range documents {
		if doc.SourceID == "" {
			anonymous = append(anonymous, doc)
			continue
		}
		current, seen := best[doc.SourceID]
		if !seen || doc.Score > current.Score {
			best[doc.SourceID] = doc
		}
	}

	deduped := make([]Candidate, 0, len(best)+len(anonymous))
	for _, doc := range best {
		deduped = append(deduped, doc)
	}
	deduped = append(deduped, anonymous...)

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].Score != deduped[j].Score {
			return deduped[i].Score > deduped[j].Score
		}
		return deduped[i].SourceID < deduped[j].SourceID
	})

	return deduped
}
