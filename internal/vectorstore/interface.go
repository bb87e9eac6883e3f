package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks litcite/internal/vectorstore Index

import "context"

// SearchResult represents one hit from a semantic index.
//
// SourceID carries the document identifier from the payload. Index payloads
// are inconsistent about key casing ("doi" vs "DOI"); the conversion from raw
// payloads normalizes both into this one field, so nothing downstream ever
// branches on casing.
type SearchResult struct {
	SourceID string
	Text     string
	Distance float64 // cosine distance in [0, 2]
	Meta     map[string]any
}

// Index defines the interface for semantic index queries.
type Index interface {
	// Search performs a nearest-neighbor query with an optional metadata filter.
	Search(ctx context.Context, collection string, query []float32, k int, filter map[string]any) ([]SearchResult, error)

	// Fetch retrieves up to limit rows matching a metadata filter, without a
	// query vector. Used for page-number lookups by document id.
	Fetch(ctx context.Context, collection string, filter map[string]any, limit int) ([]SearchResult, error)

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
