package handlers

import (
	"encoding/json"
	"net/http"

	"litcite/internal/cache"
	"litcite/internal/contextutil"
	"litcite/internal/lexicon"
)

// StatsHandler exposes process counters: cache usage and lexicon sizes.
type StatsHandler struct {
	caches  map[string]*cache.Store
	lexicon *lexicon.Lexicon
}

// NewStatsHandler creates a new StatsHandler. The caches map keys name each
// store in the response.
func NewStatsHandler(caches map[string]*cache.Store, lex *lexicon.Lexicon) *StatsHandler {
	return &StatsHandler{caches: caches, lexicon: lex}
}

// CacheStatsResponse represents one cache's usage counters.
//
// swagger:model CacheStatsResponse
type CacheStatsResponse struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// StatsResponse represents the stats endpoint payload.
//
// swagger:model StatsResponse
type StatsResponse struct {
	Caches       map[string]CacheStatsResponse `json:"caches"`
	LexiconTerms int                           `json:"lexicon_terms"`
	SynonymSets  int                           `json:"synonym_sets"`
}

// ServeHTTP handles GET /api/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp := StatsResponse{
		Caches:       make(map[string]CacheStatsResponse, len(h.caches)),
		LexiconTerms: h.lexicon.TermCount(),
		SynonymSets:  h.lexicon.SynonymCount(),
	}
	for name, store := range h.caches {
		stats := store.Stats()
		resp.Caches[name] = CacheStatsResponse{
			Entries: stats.Entries,
			Hits:    stats.Hits,
			Misses:  stats.Misses,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode stats response", "error", err)
	}
}
