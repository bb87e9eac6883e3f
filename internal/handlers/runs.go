package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"litcite/internal/contextutil"
	"litcite/internal/storage"
)

// RunsHandler handles HTTP requests for the attribution run log.
type RunsHandler struct {
	runs storage.RunStore
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(runs storage.RunStore) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// RunResponse represents one logged run in the HTTP response.
//
// swagger:model RunResponse
type RunResponse struct {
	ID             string  `json:"id"`
	Question       string  `json:"question"`
	QueryCount     int     `json:"query_count"`
	CandidateCount int     `json:"candidate_count"`
	CoverageRate   float64 `json:"coverage_rate"`
	ElapsedMs      int64   `json:"elapsed_ms"`
	CreatedAt      string  `json:"created_at"`
}

// List handles GET /api/runs, returning the most recent runs newest first.
// The limit query parameter caps the result, defaulting to 20.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	limit := 20
	if param := r.URL.Query().Get("limit"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed <= 0 {
			logger.WarnContext(ctx, "invalid limit parameter", "limit", param)
			writeJSONError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		if parsed > 100 {
			parsed = 100
		}
		limit = parsed
	}

	runs, err := h.runs.ListRecent(ctx, limit)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list runs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Get handles GET /api/runs/{id}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	run, err := h.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Run not found")
			return
		}
		logger.ErrorContext(ctx, "failed to get run", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toRunResponse(*run)); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func toRunResponse(run storage.RunRecord) RunResponse {
	return RunResponse{
		ID:             run.ID,
		Question:       run.Question,
		QueryCount:     run.QueryCount,
		CandidateCount: run.CandidateCount,
		CoverageRate:   run.CoverageRate,
		ElapsedMs:      run.ElapsedMs,
		CreatedAt:      run.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// writeJSONError writes an error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
