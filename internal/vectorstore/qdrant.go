package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"litcite/internal/contextutil"
)

// QdrantStore implements Index using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant-backed index client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// Extract port from URL, default to 6333 for HTTP
	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
	}, nil
}

// Search performs a nearest-neighbor query with an optional metadata filter.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int, filter map[string]any) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	qdrantFilter, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}

	limit := uint64(k)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if qdrantFilter != nil {
		queryReq.Filter = qdrantFilter
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		meta := make(map[string]any)
		if point.Payload != nil {
			meta = convertPayloadToMap(point.Payload)
		}
		// Qdrant reports cosine similarity; the pipeline works in cosine
		// distance (0 identical, 2 opposite).
		results = append(results, fromPayload(meta, float64(1-point.Score)))
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// Fetch retrieves up to limit rows matching a metadata filter, without a query vector.
func (s *QdrantStore) Fetch(ctx context.Context, collection string, filter map[string]any, limit int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	qdrantFilter, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}

	scrollLimit := uint32(limit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         qdrantFilter,
		Limit:          &scrollLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch points", "collection", collection, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to fetch points: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		meta := make(map[string]any)
		if point.Payload != nil {
			meta = convertPayloadToMap(point.Payload)
		}
		results = append(results, fromPayload(meta, 0))
	}

	return results, nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// buildFilter converts a generic filter map into a Qdrant filter.
// String values become exact matches, integer values integer matches.
func buildFilter(filter map[string]any) (*qdrant.Filter, error) {
	if len(filter) == 0 {
		return nil, nil
	}

	mustConditions := make([]*qdrant.Condition, 0, len(filter))
	for field, value := range filter {
		switch v := value.(type) {
		case string:
			mustConditions = append(mustConditions, qdrant.NewMatch(field, v))
		case int:
			mustConditions = append(mustConditions, qdrant.NewMatchInt(field, int64(v)))
		case int64:
			mustConditions = append(mustConditions, qdrant.NewMatchInt(field, v))
		default:
			return nil, fmt.Errorf("unsupported filter value type %T for field %q", value, field)
		}
	}

	return &qdrant.Filter{Must: mustConditions}, nil
}

// fromPayload builds a SearchResult from a converted payload, normalizing the
// document-id key casing into SourceID.
func fromPayload(meta map[string]any, distance float64) SearchResult {
	result := SearchResult{
		Distance: distance,
		Meta:     meta,
	}

	if doi, ok := meta["doi"].(string); ok && doi != "" {
		result.SourceID = doi
	} else if doi, ok := meta["DOI"].(string); ok && doi != "" {
		result.SourceID = doi
	}

	if text, ok := meta["text"].(string); ok {
		result.Text = text
	}

	return result
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
