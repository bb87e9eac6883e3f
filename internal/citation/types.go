package citation

import (
	"context"
	"time"
)

// Embedder turns texts into vectors. One vector per input; a batch call
// fails as a unit.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TextGenerator produces text from a prompt. Only the expander's translation
// path uses it; failures there degrade to rule-based translation.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Candidate is one passage-level search hit, ephemeral within a request.
type Candidate struct {
	// SourceID is the normalized document identifier, "" if the hit had none.
	SourceID string `json:"source_id"`
	// Text is the passage text.
	Text string `json:"text"`
	// Meta is the raw index payload.
	Meta map[string]any `json:"meta,omitempty"`
	// Distance is the cosine distance reported by the index.
	Distance float64 `json:"distance"`
	// Score is the retrieval similarity derived from Distance, in [0, 1].
	Score float64 `json:"score"`
	// RerankScore is the sentence-level similarity set by Rerank, in [0, 1].
	RerankScore float64 `json:"rerank_score"`
	// SourceQuery is the query variant that retrieved this hit.
	SourceQuery string `json:"source_query,omitempty"`
}

// ExpansionResult is the output of Expander.Expand.
type ExpansionResult struct {
	OriginalQuery     string        `json:"original_query"`
	TranslatedQuery   string        `json:"translated_query"`
	SynonymQuery      string        `json:"synonym_query"`
	AllQueries        []string      `json:"all_queries"`
	TranslationMethod string        `json:"translation_method"` // none, external, rule
	Elapsed           time.Duration `json:"elapsed"`
}

// MultiQueryResult is the output of Retriever.Retrieve.
type MultiQueryResult struct {
	Documents            []Candidate    `json:"documents"`
	PerQueryContribution map[string]int `json:"per_query_contribution"`
	CountBeforeDedup     int            `json:"count_before_dedup"`
	CountAfterDedup      int            `json:"count_after_dedup"`
	Elapsed              time.Duration  `json:"elapsed"`
}

// RankChange records how a document moved during reranking.
type RankChange struct {
	SourceID string `json:"source_id"`
	OldRank  int    `json:"old_rank"` // -1 if the document was not ranked before
	NewRank  int    `json:"new_rank"`
}

// RerankingResult is the output of Reranker.Rerank.
type RerankingResult struct {
	Documents             []Candidate        `json:"documents"`
	PerDocumentSimilarity map[string]float64 `json:"per_document_similarity"`
	Elapsed               time.Duration      `json:"elapsed"`
	TopRankChanges        []RankChange       `json:"top_rank_changes"`
}

// CoverageReport summarizes which required reference documents received at
// least one citation location. Derived, never persisted.
type CoverageReport struct {
	ReferenceIDs []string `json:"reference_ids"`
	CoveredIDs   []string `json:"covered_ids"`
	MissingIDs   []string `json:"missing_ids"`
	// CoverageRate is |covered| / |reference| in percent, 0 when the
	// reference set is empty.
	CoverageRate float64 `json:"coverage_rate"`
}

// similarityFromDistance converts a cosine distance in [0, 2] to a
// similarity in [0, 1].
func similarityFromDistance(distance float64) float64 {
	sim := 1 - distance/2
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// retrievalScore converts a cosine distance to the coarser passage-level
// score used for candidate ranking, clamped to [0, 1].
func retrievalScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
