package citation

import (
	"fmt"
)

// Confidence is the derived reliability tier of a citation location.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Location is one evidence link between an answer sentence and a source
// document. Immutable after construction; collected into per-document lists
// and reduced by Merge.
type Location struct {
	// SourceID is the document identifier (DOI).
	SourceID string `json:"source_id"`
	// AnswerSentence is the matched sentence from the answer.
	AnswerSentence string `json:"answer_sentence"`
	// AnswerSentenceIndex is the sentence's position within the answer, from 0.
	AnswerSentenceIndex int `json:"answer_sentence_index"`
	// SourceExcerpt is the matched passage from the source document.
	SourceExcerpt string `json:"source_excerpt"`
	// Page is the page number of the excerpt, 0 if unresolved.
	Page int `json:"page"`
	// Similarity is the match score in [0, 1].
	Similarity float64 `json:"similarity"`
	// Confidence is derived from Similarity unless supplied explicitly.
	Confidence Confidence `json:"confidence"`
	// Keywords optionally carries the source sentence's keywords.
	Keywords []string `json:"keywords,omitempty"`
	// SentenceIndex is the source-side sentence index, if known.
	SentenceIndex *int `json:"sentence_index,omitempty"`
	// HasNumber reports whether the source sentence contains a numeric value.
	HasNumber *bool `json:"has_number,omitempty"`
	// HasUnit reports whether the source sentence contains a measurement unit.
	HasUnit *bool `json:"has_unit,omitempty"`
	// ChunkIndexInPage is the paragraph's index within its page, if known.
	ChunkIndexInPage *int `json:"chunk_index_in_page,omitempty"`
	// ChunkIndexGlobal is the paragraph's global index, if known.
	ChunkIndexGlobal *int `json:"chunk_index_global,omitempty"`
}

// NewLocation constructs a validated Location. Out-of-range similarity, a
// negative page or a negative sentence index indicate an upstream logic
// defect and fail immediately instead of being clamped. Confidence is derived
// from similarity (>0.75 high, >0.5 medium, else low).
func NewLocation(sourceID, answerSentence string, answerSentenceIndex int, sourceExcerpt string, page int, similarity float64) (Location, error) {
	if similarity < 0 || similarity > 1 {
		return Location{}, fmt.Errorf("similarity must be in [0, 1], got %v", similarity)
	}
	if page < 0 {
		return Location{}, fmt.Errorf("page must not be negative, got %d", page)
	}
	if answerSentenceIndex < 0 {
		return Location{}, fmt.Errorf("answer sentence index must not be negative, got %d", answerSentenceIndex)
	}

	return Location{
		SourceID:            sourceID,
		AnswerSentence:      answerSentence,
		AnswerSentenceIndex: answerSentenceIndex,
		SourceExcerpt:       sourceExcerpt,
		Page:                page,
		Similarity:          similarity,
		Confidence:          confidenceFor(similarity),
	}, nil
}

// confidenceFor maps a similarity score to its tier.
func confidenceFor(similarity float64) Confidence {
	switch {
	case similarity > 0.75:
		return ConfidenceHigh
	case similarity > 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// withSentenceMeta copies optional sentence-level metadata fields onto a
// location. Sentence index payloads carry sentence_index, has_number and
// has_unit flags alongside the text.
func (l Location) withSentenceMeta(meta map[string]any) Location {
	if idx, ok := asInt(meta["sentence_index"]); ok {
		l.SentenceIndex = &idx
	}
	if b, ok := meta["has_number"].(bool); ok {
		l.HasNumber = &b
	}
	if b, ok := meta["has_unit"].(bool); ok {
		l.HasUnit = &b
	}
	if kws, ok := meta["keywords"].([]any); ok {
		for _, kw := range kws {
			if s, ok := kw.(string); ok {
				l.Keywords = append(l.Keywords, s)
			}
		}
	}
	return l
}

// asInt converts the numeric types index payloads can carry.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
