package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"litcite/internal/cache"
	"litcite/internal/citation"
	"litcite/internal/config"
	"litcite/internal/handlers"
	"litcite/internal/http"
	"litcite/internal/lexicon"
	"litcite/internal/llm"
	"litcite/internal/storage"
	"litcite/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API attributes generated answers to the scientific literature they came
// from: it retrieves candidate passages for a question, reranks them on
// sentence-level evidence and rewrites the answer with citation markers.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: LitCite API
//   description: |
//     Citation attribution API for literature-grounded answers. Submit a
//     question and answer pair and get the answer back annotated with
//     per-sentence citation markers, citation locations and reference
//     coverage.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	runRepo := storage.NewRunRepo(db)

	// Initialize Qdrant vector store
	ctx := context.Background()
	index, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Both collections are built by the ingestion side; fail fast when they
	// are missing rather than serving empty results.
	for _, collection := range []string{cfg.ParagraphCollection, cfg.SentenceCollection} {
		exists, err := index.CollectionExists(ctx, collection)
		if err != nil {
			log.Fatalf("Failed to check Qdrant collection %s: %v", collection, err)
		}
		if !exists {
			log.Fatalf("Qdrant collection %s does not exist", collection)
		}
	}
	slog.Info("Qdrant collections ready",
		"paragraph", cfg.ParagraphCollection,
		"sentence", cfg.SentenceCollection,
	)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.VectorSize)

	// Load the lexicon tables for query expansion
	lex, err := lexicon.Load(cfg.TermMappingPath, cfg.SynonymPath)
	if err != nil {
		log.Fatalf("Failed to load lexicon: %v", err)
	}

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Shared memo caches
	cleanup := 10 * time.Minute
	embedCache := cache.New(cfg.CacheTTL, cleanup)
	simCache := cache.New(cfg.CacheTTL, cleanup)
	pageCache := cache.New(cfg.CacheTTL, cleanup)

	// Assemble the attribution pipeline
	expander := citation.NewExpander(llmClient, lex, cfg.MaxQueries)
	retriever := citation.NewRetriever(embedder, index, cfg.ParagraphCollection, cfg.WorkerLimit)
	reranker := citation.NewReranker(embedder, index, cfg.SentenceCollection, embedCache, simCache)
	locator := citation.NewLocator(embedder, index, cfg.SentenceCollection, cfg.ParagraphCollection, embedCache, pageCache)
	scored := citation.NewScoredInserter(cfg.InsertThreshold, cfg.TextWeight, cfg.VectorWeight, cfg.MaxCompareChars)

	params := citation.Params{
		TopKPerQuery:        cfg.TopKPerQuery,
		RerankTopK:          cfg.RerankTopK,
		ReverseTopK:         cfg.ReverseTopK,
		MaxLocationsPerDoc:  cfg.MaxLocationsPerDoc,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}
	pipeline := citation.NewPipeline(expander, retriever, reranker, locator, scored, params, storage.NewRunLogger(runRepo))
	slog.Info("Attribution pipeline initialized")

	// Create router with dependencies
	deps := &http.Deps{
		CiteHandler:   handlers.NewCiteHandler(pipeline),
		HealthHandler: handlers.NewHealthHandler(index, cfg.ParagraphCollection, cfg.SentenceCollection),
		RunsHandler:   handlers.NewRunsHandler(runRepo),
		StatsHandler: handlers.NewStatsHandler(map[string]*cache.Store{
			"embeddings":   embedCache,
			"similarities": simCache,
			"pages":        pageCache,
		}, lex),
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
