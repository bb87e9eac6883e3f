package citation

import (
	"context"
	"log/slog"
	"strings"

	"litcite/internal/contextutil"
)

// ScoredInserter inserts citation markers directly from a single retrieval
// pass, without a prior locate/merge step. Each eligible sentence is scored
// against every candidate with a blend of lexical alignment and vector
// similarity; the best candidate's id is inserted when the blend clears the
// threshold. Markers always come from retrieved candidates, never from
// generated text.
type ScoredInserter struct {
	threshold       float64
	textWeight      float64
	vectorWeight    float64
	maxCompareChars int
	logger          *slog.Logger
}

// NewScoredInserter creates a single-pass inserter. maxCompareChars bounds
// the candidate excerpt length used for lexical comparison.
func NewScoredInserter(threshold, textWeight, vectorWeight float64, maxCompareChars int) *ScoredInserter {
	if maxCompareChars <= 0 {
		maxCompareChars = 1000
	}
	return &ScoredInserter{
		threshold:       threshold,
		textWeight:      textWeight,
		vectorWeight:    vectorWeight,
		maxCompareChars: maxCompareChars,
		logger:          slog.Default(),
	}
}

// Insert annotates the answer from one retrieval pass. Structural lines and
// already-annotated sentences pass through untouched; a sentence whose best
// blend stays under the threshold is left un-annotated. List markers are
// excluded from matching but stay in place in the output.
func (si *ScoredInserter) Insert(ctx context.Context, answer string, candidates []Candidate) string {
	logger := contextutil.LoggerFromContext(ctx)

	if answer == "" {
		return answer
	}

	scorable := si.scorableCandidates(candidates)
	if len(scorable) == 0 {
		logger.WarnContext(ctx, "no candidates with valid ids, insertion skipped")
		return answer
	}

	sentences := SplitSentences(answer)
	var out strings.Builder
	inserted := 0

	for _, sentence := range sentences {
		if isStructural(sentence) {
			out.WriteString(sentence)
			continue
		}

		_, content := stripListMarker(strings.TrimSpace(sentence))
		if content == "" {
			out.WriteString(sentence)
			continue
		}

		sourceID, score := si.bestMatch(content, scorable)
		if sourceID == "" || score < si.threshold {
			out.WriteString(sentence)
			continue
		}

		out.WriteString(annotate(sentence, sourceID))
		inserted++
	}

	logger.InfoContext(ctx, "scored insertion completed",
		"sentences", len(sentences),
		"inserted", inserted,
	)
	return out.String()
}

// scorableCandidates keeps candidates whose id survives DOI validation.
func (si *ScoredInserter) scorableCandidates(candidates []Candidate) []Candidate {
	scorable := make([]Candidate, 0, len(candidates))
	for _, doc := range candidates {
		if doc.Text == "" {
			continue
		}
		id := ValidateDOI(doc.SourceID)
		if id == "" {
			continue
		}
		doc.SourceID = id
		scorable = append(scorable, doc)
	}
	return scorable
}

// bestMatch scores a sentence against all candidates and returns the winner.
// Equal blends break toward the lexically smaller id.
func (si *ScoredInserter) bestMatch(sentence string, candidates []Candidate) (string, float64) {
	bestID := ""
	bestScore := 0.0

	for _, doc := range candidates {
		excerpt := doc.Text
		if len(excerpt) > si.maxCompareChars {
			excerpt = excerpt[:si.maxCompareChars]
		}

		combined := si.textWeight*alignRatio(sentence, excerpt) + si.vectorWeight*doc.Score
		if combined > bestScore || (combined == bestScore && bestID != "" && doc.SourceID < bestID) {
			bestScore = combined
			bestID = doc.SourceID
		}
	}
	return bestID, bestScore
}

// alignRatio is a normalized alignment ratio over two strings: twice the
// total length of their longest matching blocks divided by the combined
// length. 1 means identical, 0 means no common runs.
func alignRatio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 0
	}
	return 2 * float64(matchingTotal(ar, br)) / float64(total)
}

// matchingTotal sums the lengths of the longest matching blocks, found by
// recursing on the pieces left and right of each longest common run.
func matchingTotal(a, b []rune) int {
	i, j, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingTotal(a[:i], b[:j]) + matchingTotal(a[i+size:], b[j+size:])
}

// longestMatch finds the longest common contiguous run between a and b.
func longestMatch(a, b []rune) (bestI, bestJ, bestSize int) {
	positions := make(map[rune][]int, len(b))
	for j, r := range b {
		positions[r] = append(positions[r], j)
	}

	runLengths := make(map[int]int)
	for i, r := range a {
		next := make(map[int]int, len(positions[r]))
		for _, j := range positions[r] {
			length := runLengths[j-1] + 1
			next[j] = length
			if length > bestSize {
				bestI, bestJ, bestSize = i-length+1, j-length+1, length
			}
		}
		runLengths = next
	}
	return bestI, bestJ, bestSize
}
