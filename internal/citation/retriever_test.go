package citation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/mock/gomock"

	"litcite/internal/vectorstore"
	"litcite/internal/vectorstore/mocks"
)

func TestDedupBySource(t *testing.T) {
	tests := []struct {
		name  string
		input []Candidate
		want  []Candidate
	}{
		{
			name:  "empty",
			input: nil,
			want:  nil,
		},
		{
			name: "keeps max score per id",
			input: []Candidate{
				{SourceID: "10.1000/a1", Score: 0.4},
				{SourceID: "10.1000/a1", Score: 0.9},
				{SourceID: "10.1000/a1", Score: 0.7},
			},
			want: []Candidate{
				{SourceID: "10.1000/a1", Score: 0.9},
			},
		},
		{
			name: "sorted by score desc then id asc",
			input: []Candidate{
				{SourceID: "10.1000/b2", Score: 0.5},
				{SourceID: "10.1000/a1", Score: 0.5},
				{SourceID: "10.1000/c3", Score: 0.8},
			},
			want: []Candidate{
				{SourceID: "10.1000/c3", Score: 0.8},
				{SourceID: "10.1000/a1", Score: 0.5},
				{SourceID: "10.1000/b2", Score: 0.5},
			},
		},
		{
			name: "anonymous hits pass through",
			input: []Candidate{
				{SourceID: "", Score: 0.6},
				{SourceID: "", Score: 0.6},
				{SourceID: "10.1000/a1", Score: 0.3},
			},
			want: []Candidate{
				{SourceID: "", Score: 0.6},
				{SourceID: "", Score: 0.6},
				{SourceID: "10.1000/a1", Score: 0.3},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupBySource(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DedupBySource() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDedupBySource_Idempotent(t *testing.T) {
	input := []Candidate{
		{SourceID: "10.1000/a1", Score: 0.4},
		{SourceID: "10.1000/a1", Score: 0.9},
		{SourceID: "10.1000/b2", Score: 0.9},
		{SourceID: "", Score: 0.2},
	}
	once := DedupBySource(input)
	twice := DedupBySource(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("DedupBySource not idempotent:\n once %+v\ntwice %+v", once, twice)
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// The fake embedder encodes the text length into the vector, so each
	// variant's index call can be pinned even though workers race.
	index := mocks.NewMockIndex(ctrl)
	index.EXPECT().
		Search(gomock.Any(), "paragraphs", []float32{5, 1, 0}, 10, nil).
		Return([]vectorstore.SearchResult{
			{SourceID: "10.1000/a1", Text: "passage a", Distance: 0.2},
			{SourceID: "10.1000/b2", Text: "passage b", Distance: 0.5},
		}, nil)
	index.EXPECT().
		Search(gomock.Any(), "paragraphs", []float32{14, 1, 0}, 10, nil).
		Return([]vectorstore.SearchResult{
			{SourceID: "10.1000/a1", Text: "passage a", Distance: 0.1},
		}, nil)

	r := NewRetriever(&fakeEmbedder{}, index, "paragraphs", 2)
	result := r.Retrieve(context.Background(), []string{"short", "a longer query"}, 10)

	if result.CountBeforeDedup != 3 {
		t.Errorf("CountBeforeDedup = %d, want 3", result.CountBeforeDedup)
	}
	if result.CountAfterDedup != 2 || len(result.Documents) != 2 {
		t.Fatalf("CountAfterDedup = %d (%d docs), want 2", result.CountAfterDedup, len(result.Documents))
	}
	// The duplicate of a1 with the smaller distance (higher score) must win.
	if result.Documents[0].SourceID != "10.1000/a1" || result.Documents[0].Score != 0.9 {
		t.Errorf("top document = %+v, want a1 with score 0.9", result.Documents[0])
	}
	if result.PerQueryContribution["short"] != 2 || result.PerQueryContribution["a longer query"] != 1 {
		t.Errorf("PerQueryContribution = %v", result.PerQueryContribution)
	}
}

func TestRetriever_Retrieve_EmbeddingFailureFailsAsUnit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	index := mocks.NewMockIndex(ctrl) // no Search calls expected

	r := NewRetriever(&fakeEmbedder{err: errors.New("embedding service down")}, index, "paragraphs", 2)
	result := r.Retrieve(context.Background(), []string{"q1", "q2"}, 10)

	if len(result.Documents) != 0 {
		t.Errorf("expected no documents after embedding failure, got %d", len(result.Documents))
	}
}

func TestRetriever_Retrieve_VariantFailureIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	index := mocks.NewMockIndex(ctrl)
	index.EXPECT().
		Search(gomock.Any(), "paragraphs", gomock.Any(), 10, nil).
		Return(nil, errors.New("qdrant unavailable"))
	index.EXPECT().
		Search(gomock.Any(), "paragraphs", gomock.Any(), 10, nil).
		Return([]vectorstore.SearchResult{
			{SourceID: "10.1000/a1", Text: "passage a", Distance: 0.3},
		}, nil)

	r := NewRetriever(&fakeEmbedder{}, index, "paragraphs", 1)
	result := r.Retrieve(context.Background(), []string{"failing", "working query"}, 10)

	if len(result.Documents) != 1 || result.Documents[0].SourceID != "10.1000/a1" {
		t.Errorf("expected the surviving variant's document, got %+v", result.Documents)
	}
}

func TestRetriever_Retrieve_NoQueries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := NewRetriever(&fakeEmbedder{}, mocks.NewMockIndex(ctrl), "paragraphs", 2)
	result := r.Retrieve(context.Background(), nil, 10)
	if len(result.Documents) != 0 {
		t.Errorf("expected empty result for no queries, got %+v", result.Documents)
	}
}
