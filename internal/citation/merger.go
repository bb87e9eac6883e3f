package citation

import (
	"sort"
)

// Merge unions forward and reverse locations per document. Locations sharing
// an answer-sentence index collapse to the higher-similarity entry, the
// remainder is sorted by similarity descending and capped at maxPerDoc. A
// document with at least one location in either input is never dropped.
func Merge(forward, reverse map[string][]Location, maxPerDoc int) map[string][]Location {
	if maxPerDoc <= 0 {
		maxPerDoc = 5
	}

	merged := make(map[string][]Location, len(forward)+len(reverse))
	for _, sourceID := range unionKeys(forward, reverse) {
		combined := append(append([]Location{}, forward[sourceID]...), reverse[sourceID]...)

		byIndex := make(map[int]Location, len(combined))
		for _, loc := range combined {
			current, seen := byIndex[loc.AnswerSentenceIndex]
			if !seen || loc.Similarity > current.Similarity {
				byIndex[loc.AnswerSentenceIndex] = loc
			}
		}

		deduped := make([]Location, 0, len(byIndex))
		for _, loc := range byIndex {
			deduped = append(deduped, loc)
		}
		sort.SliceStable(deduped, func(i, j int) bool {
			if deduped[i].Similarity != deduped[j].Similarity {
				return deduped[i].Similarity > deduped[j].Similarity
			}
			return deduped[i].AnswerSentenceIndex < deduped[j].AnswerSentenceIndex
		})

		if len(deduped) > maxPerDoc {
			deduped = deduped[:maxPerDoc]
		}
		merged[sourceID] = deduped
	}

	return merged
}

// Coverage reports which required reference documents received at least one
// citation location. The rate is in percent and 0 for an empty reference set.
func Coverage(merged map[string][]Location, requiredIDs []string) CoverageReport {
	report := CoverageReport{
		ReferenceIDs: append([]string{}, requiredIDs...),
	}
	sort.Strings(report.ReferenceIDs)

	for _, id := range report.ReferenceIDs {
		if len(merged[id]) > 0 {
			report.CoveredIDs = append(report.CoveredIDs, id)
		} else {
			report.MissingIDs = append(report.MissingIDs, id)
		}
	}

	if len(report.ReferenceIDs) > 0 {
		report.CoverageRate = float64(len(report.CoveredIDs)) / float64(len(report.ReferenceIDs)) * 100
	}
	return report
}

// unionKeys returns the sorted union of both maps' keys.
func unionKeys(a, b map[string][]Location) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
