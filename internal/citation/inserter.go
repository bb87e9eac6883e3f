package citation

import (
	"strings"
)

// sentenceAssignment is the winning document for one answer sentence.
type sentenceAssignment struct {
	sourceID   string
	similarity float64
}

// InsertMarkers rewrites the answer sentences with citation markers from the
// merged evidence map. Every eligible sentence gets at most one marker, the
// one from its highest-similarity location across all documents; structural
// lines and sentences that already carry a marker are emitted unchanged, so
// insertion is idempotent. The input map is not mutated.
func InsertMarkers(answerSentences []string, locations map[string][]Location) string {
	assignments := bestPerSentence(locations)

	var out strings.Builder
	for i, sentence := range answerSentences {
		assignment, ok := assignments[i]
		if !ok || isStructural(sentence) {
			out.WriteString(sentence)
			continue
		}
		out.WriteString(annotate(sentence, assignment.sourceID))
	}
	return out.String()
}

// bestPerSentence reduces the per-document location lists to one winning
// document per answer-sentence index. Equal similarities break toward the
// lexically smaller document id so the outcome does not depend on map
// iteration order.
func bestPerSentence(locations map[string][]Location) map[int]sentenceAssignment {
	assignments := make(map[int]sentenceAssignment)
	for sourceID, locs := range locations {
		for _, loc := range locs {
			current, seen := assignments[loc.AnswerSentenceIndex]
			switch {
			case !seen,
				loc.Similarity > current.similarity,
				loc.Similarity == current.similarity && sourceID < current.sourceID:
				assignments[loc.AnswerSentenceIndex] = sentenceAssignment{
					sourceID:   sourceID,
					similarity: loc.Similarity,
				}
			}
		}
	}
	return assignments
}

// annotate appends the marker to a sentence, before its line break if it has
// one, preserving the original leading whitespace and terminator.
func annotate(sentence, sourceID string) string {
	marker := " (doi=" + sourceID + ")"

	if strings.HasSuffix(sentence, "\n") {
		body := strings.TrimRight(sentence, "\n")
		newlines := sentence[len(body):]
		return strings.TrimRight(body, " ") + marker + newlines
	}
	return strings.TrimRight(sentence, " ") + marker
}
