package citation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	doiShape       = regexp.MustCompile(`^10\.\d+/[A-Za-z0-9._\-/]{2,}$`)
	urlTail        = regexp.MustCompile(`(?i)www\.|https?://|\.com|\.org|\.net`)
	trailingPunct  = regexp.MustCompile(`[.,;:]+$`)
	markerPattern  = regexp.MustCompile(`(?i)\(doi\s*=\s*[^)]+\)`)
	listMarkerHead = regexp.MustCompile(`^(\s*)([0-9]+[.)]\s*|[a-zA-Z][.)]\s+|[*\-+]\s+)`)
)

// doiSuffixes are tails that crawlers leave glued onto DOIs. "epdf" must
// precede "pdf" so the longer suffix wins.
var doiSuffixes = []string{"abstract", "full", "epdf", "pdf", "html"}

// ValidateDOI cleans a raw DOI string and reports whether it has the
// canonical 10.xxxx/suffix shape. Returns the cleaned DOI, or "" if invalid.
func ValidateDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}

	// Cut off any URL fragment that got concatenated onto the DOI.
	if loc := urlTail.FindStringIndex(doi); loc != nil {
		doi = strings.TrimSpace(doi[:loc[0]])
	}

	doi = trailingPunct.ReplaceAllString(doi, "")

	if !doiShape.MatchString(doi) {
		return ""
	}
	return doi
}

// CleanDOI strips common suffixes ("abstract", "pdf", ...) that appear on
// DOIs scraped from publisher pages, so index filters match the stored ids.
func CleanDOI(doi string) string {
	if doi == "" {
		return doi
	}

	lower := strings.ToLower(doi)
	for _, suffix := range doiSuffixes {
		if strings.HasSuffix(lower, suffix) {
			doi = doi[:len(doi)-len(suffix)]
			break
		}
	}
	return strings.TrimSpace(doi)
}

// usableSourceID reports whether an id can serve as a citation target.
func usableSourceID(id string) bool {
	if id == "" || id == "N/A" {
		return false
	}
	return !strings.Contains(strings.ToLower(id), "unknown")
}

// needsTranslation reports whether a query contains Han characters and so
// should be translated before querying the (mostly English) indexes.
func needsTranslation(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// hasMarker reports whether a sentence already carries a citation marker.
func hasMarker(text string) bool {
	return markerPattern.MatchString(text)
}
