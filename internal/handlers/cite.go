package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"litcite/internal/citation"
	"litcite/internal/contextutil"
)

// Citer runs the attribution pipeline. It is satisfied by
// *citation.Pipeline and by test fakes.
type Citer interface {
	Run(ctx context.Context, question, answer string, referenceIDs []string) (citation.Result, error)
}

// CiteHandler handles HTTP requests for citation attribution.
type CiteHandler struct {
	pipeline Citer
}

// NewCiteHandler creates a new CiteHandler.
func NewCiteHandler(pipeline Citer) *CiteHandler {
	return &CiteHandler{pipeline: pipeline}
}

// CiteRequest represents the HTTP request payload for attribution.
//
// swagger:model CiteRequest
type CiteRequest struct {
	// The question the answer responds to; drives retrieval
	Question string `json:"question"`

	// The answer text to annotate with citation markers
	Answer string `json:"answer"`

	// Documents that must end up cited; optional, defaults to the top
	// reranked documents
	ReferenceIDs []string `json:"reference_ids,omitempty"`
}

// CiteResponse represents the HTTP response payload for attribution.
//
// swagger:model CiteResponse
type CiteResponse struct {
	// The answer with citation markers inserted
	AnnotatedAnswer string `json:"annotated_answer"`

	// Citation locations per document id
	Locations map[string][]citation.Location `json:"locations"`

	// Reference coverage summary
	Coverage citation.CoverageReport `json:"coverage"`

	// The query variants used for retrieval
	Queries []string `json:"queries"`

	// Total processing time in milliseconds
	ElapsedMs int64 `json:"elapsed_ms"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for citation attribution.
//
// swagger:route POST /api/cite citeAnswer
//
// # Attribute an answer to source documents
//
// Runs the attribution pipeline for the given question and answer and
// returns the annotated answer with citation locations and coverage.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
//
// responses:
//
//	'200':
//	  description: Successful response with annotated answer
//	  schema:
//	    "$ref": "#/definitions/CiteResponse"
//	'400':
//	  description: Bad request (missing question or answer)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: External service error (embedding service unavailable)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *CiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		h.writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		logger.WarnContext(ctx, "empty answer in request")
		h.writeError(w, http.StatusBadRequest, "Answer is required")
		return
	}

	result, err := h.pipeline.Run(ctx, req.Question, req.Answer, req.ReferenceIDs)
	if err != nil {
		h.handlePipelineError(w, ctx, err, "Failed to attribute answer")
		return
	}

	resp := CiteResponse{
		AnnotatedAnswer: result.AnnotatedAnswer,
		Locations:       result.Locations,
		Coverage:        result.Coverage,
		Queries:         result.Expansion.AllQueries,
		ElapsedMs:       result.Elapsed.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
}

// handlePipelineError maps pipeline errors to appropriate HTTP status codes.
func (h *CiteHandler) handlePipelineError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "pipeline error", "error", err)

	if err == nil {
		h.writeError(w, http.StatusInternalServerError, defaultMsg)
		return
	}

	errMsg := strings.ToLower(err.Error())

	// Vector store errors -> 503
	if strings.Contains(errMsg, "vector store") ||
		strings.Contains(errMsg, "vectorstore") ||
		strings.Contains(errMsg, "qdrant") ||
		strings.Contains(errMsg, "failed to search") {
		h.writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
		return
	}

	// Embedding errors -> 502
	if strings.Contains(errMsg, "embed") {
		h.writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	h.writeError(w, http.StatusInternalServerError, defaultMsg)
}

// writeError writes an error response.
func (h *CiteHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
