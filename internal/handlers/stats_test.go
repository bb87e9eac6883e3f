package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"litcite/internal/cache"
	"litcite/internal/lexicon"
)

func TestStatsHandler_ServeHTTP(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	store.Set("a", 1)
	store.Get("a")
	store.Get("missing")

	lex, err := lexicon.Load("", "")
	if err != nil {
		t.Fatalf("lexicon.Load() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()

	NewStatsHandler(map[string]*cache.Store{"embeddings": store}, lex).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	stats, ok := resp.Caches["embeddings"]
	if !ok {
		t.Fatalf("response missing embeddings cache: %+v", resp)
	}
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("cache stats = %+v, want 1/1/1", stats)
	}
	if resp.LexiconTerms != 0 || resp.SynonymSets != 0 {
		t.Errorf("lexicon counts = %d/%d, want 0/0", resp.LexiconTerms, resp.SynonymSets)
	}
}

func TestStatsHandler_MethodNotAllowed(t *testing.T) {
	lex, err := lexicon.Load("", "")
	if err != nil {
		t.Fatalf("lexicon.Load() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/stats", nil)
	w := httptest.NewRecorder()

	NewStatsHandler(nil, lex).ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
