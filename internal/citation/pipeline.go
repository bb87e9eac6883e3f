package citation

import (
	"context"
	"log/slog"
	"time"

	"litcite/internal/contextutil"
)

// Params are the tunable knobs of one pipeline run.
type Params struct {
	TopKPerQuery        int
	RerankTopK          int
	ReverseTopK         int
	MaxLocationsPerDoc  int
	SimilarityThreshold float64
}

// DefaultParams returns the standard pipeline parameters.
func DefaultParams() Params {
	return Params{
		TopKPerQuery:        20,
		RerankTopK:          15,
		ReverseTopK:         3,
		MaxLocationsPerDoc:  5,
		SimilarityThreshold: 0.3,
	}
}

// RunLogger records completed pipeline runs. Recording is best effort; a
// failure never affects the run's result.
type RunLogger interface {
	LogRun(ctx context.Context, question string, queryCount, candidateCount int, coverageRate float64, elapsed time.Duration) error
}

// Result is the complete output of one attribution run.
type Result struct {
	AnnotatedAnswer string                `json:"annotated_answer"`
	Locations       map[string][]Location `json:"locations"`
	Coverage        CoverageReport        `json:"coverage"`
	Expansion       ExpansionResult       `json:"expansion"`
	Retrieval       MultiQueryResult      `json:"retrieval"`
	Reranking       RerankingResult       `json:"reranking"`
	Elapsed         time.Duration         `json:"elapsed"`
}

// Pipeline runs the full attribution flow: expand the question into query
// variants, retrieve and deduplicate candidates, rerank them on
// sentence-level evidence, match answer sentences against the candidate pool
// in both directions, merge the locations and rewrite the answer with
// citation markers.
type Pipeline struct {
	expander  *Expander
	retriever *Retriever
	reranker  *Reranker
	locator   *Locator
	scored    *ScoredInserter
	params    Params
	runs      RunLogger
	logger    *slog.Logger
}

// NewPipeline assembles the attribution pipeline. scored is the single-pass
// fallback used when evidence matching yields no locations; runs may be nil
// to disable run logging.
func NewPipeline(expander *Expander, retriever *Retriever, reranker *Reranker, locator *Locator, scored *ScoredInserter, params Params, runs RunLogger) *Pipeline {
	return &Pipeline{
		expander:  expander,
		retriever: retriever,
		reranker:  reranker,
		locator:   locator,
		scored:    scored,
		params:    params,
		runs:      runs,
		logger:    slog.Default(),
	}
}

// Run attributes the answer to source documents for the given question.
// referenceIDs lists the documents that must end up cited; when empty, the
// top reranked documents stand in as the reference set. An empty answer
// yields the answer unchanged with no locations.
func (p *Pipeline) Run(ctx context.Context, question, answer string, referenceIDs []string) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if answer == "" {
		logger.WarnContext(ctx, "empty answer, nothing to attribute")
		return Result{
			AnnotatedAnswer: answer,
			Locations:       map[string][]Location{},
			Coverage:        Coverage(nil, referenceIDs),
			Elapsed:         time.Since(start),
		}, nil
	}

	expansion := p.expander.Expand(ctx, question)
	retrieval := p.retriever.Retrieve(ctx, expansion.AllQueries, p.params.TopKPerQuery)
	reranking := p.reranker.Rerank(ctx, expansion.OriginalQuery, retrieval.Documents, p.params.RerankTopK)

	required := p.resolveReferences(referenceIDs, reranking.Documents)
	sentences := SplitSentences(answer)

	forward, err := p.locator.MatchForward(ctx, sentences, reranking.Documents, p.params.SimilarityThreshold)
	if err != nil {
		return Result{}, err
	}
	reverse, err := p.locator.MatchReverse(ctx, required, sentences, p.params.ReverseTopK, p.params.SimilarityThreshold)
	if err != nil {
		return Result{}, err
	}

	merged := Merge(forward, reverse, p.params.MaxLocationsPerDoc)
	coverage := Coverage(merged, required)

	var annotated string
	if len(merged) == 0 && p.scored != nil {
		// No sentence-level evidence cleared the threshold; fall back to the
		// single-pass scorer over the reranked pool.
		logger.WarnContext(ctx, "no evidence locations, falling back to scored insertion")
		annotated = p.scored.Insert(ctx, answer, reranking.Documents)
	} else {
		annotated = InsertMarkers(sentences, merged)
	}

	elapsed := time.Since(start)
	logger.InfoContext(ctx, "attribution completed",
		"queries", len(expansion.AllQueries),
		"candidates", len(reranking.Documents),
		"documents_cited", len(merged),
		"coverage_rate", coverage.CoverageRate,
		"elapsed", elapsed,
	)

	p.logRun(ctx, question, expansion, reranking, coverage, elapsed)

	return Result{
		AnnotatedAnswer: annotated,
		Locations:       merged,
		Coverage:        coverage,
		Expansion:       expansion,
		Retrieval:       retrieval,
		Reranking:       reranking,
		Elapsed:         elapsed,
	}, nil
}

// resolveReferences returns the required reference ids, falling back to the
// top reranked documents when the caller supplied none.
func (p *Pipeline) resolveReferences(referenceIDs []string, ranked []Candidate) []string {
	if len(referenceIDs) > 0 {
		cleaned := make([]string, 0, len(referenceIDs))
		for _, id := range referenceIDs {
			if cleanedID := CleanDOI(id); cleanedID != "" {
				cleaned = append(cleaned, cleanedID)
			}
		}
		return cleaned
	}

	limit := 5
	ids := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, doc := range ranked {
		if len(ids) == limit {
			break
		}
		id := CleanDOI(doc.SourceID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// logRun records the run, best effort.
func (p *Pipeline) logRun(ctx context.Context, question string, expansion ExpansionResult, reranking RerankingResult, coverage CoverageReport, elapsed time.Duration) {
	if p.runs == nil {
		return
	}
	logger := contextutil.LoggerFromContext(ctx)
	if err := p.runs.LogRun(ctx, question, len(expansion.AllQueries), len(reranking.Documents), coverage.CoverageRate, elapsed); err != nil {
		logger.WarnContext(ctx, "failed to record run", "error", err)
	}
}
