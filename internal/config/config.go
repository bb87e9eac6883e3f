package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL          string
	LLMModelName        string
	LLMAPIKey           string
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	QdrantURL           string
	SentenceCollection  string
	ParagraphCollection string
	VectorSize          int
	DBPath              string
	TermMappingPath     string
	SynonymPath         string
	APIPort             string
	LogLevel            slog.Level
	LogFormat           string

	// Pipeline policy knobs. Defaults mirror the values the pipeline was
	// tuned with; every one of them can be overridden per deployment.
	MaxQueries          int
	TopKPerQuery        int
	RerankTopK          int
	ReverseTopK         int
	MaxLocationsPerDoc  int
	SimilarityThreshold float64
	InsertThreshold     float64
	TextWeight          float64
	VectorWeight        float64
	MaxCompareChars     int
	WorkerLimit         int
	CacheTTL            time.Duration
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:          getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:        getEnv("LLM_MODEL", "Qwen2.5-7B-Instruct"),
		LLMAPIKey:           getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName:  getEnv("EMBEDDING_MODEL_NAME", "bge-large-zh-v1.5"),
		QdrantURL:           getEnv("QDRANT_URL", "http://localhost:6333"),
		SentenceCollection:  getEnv("SENTENCE_COLLECTION", "papers_sentences"),
		ParagraphCollection: getEnv("PARAGRAPH_COLLECTION", "papers_paragraphs"),
		DBPath:              getEnv("DB_PATH", "./data/litcite.db"),
		TermMappingPath:     getEnv("TERM_MAPPING_PATH", ""),
		SynonymPath:         getEnv("SYNONYM_PATH", ""),
		APIPort:             getEnv("API_PORT", "9000"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// VECTOR_SIZE must match the output dimensionality of the embedding model.
	// If it changes, both Qdrant collections must be rebuilt.
	vectorSizeStr := getEnv("VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	if cfg.MaxQueries, err = getEnvInt("MAX_QUERIES", 3); err != nil {
		return nil, err
	}
	if cfg.TopKPerQuery, err = getEnvInt("TOP_K_PER_QUERY", 20); err != nil {
		return nil, err
	}
	if cfg.RerankTopK, err = getEnvInt("RERANK_TOP_K", 15); err != nil {
		return nil, err
	}
	if cfg.ReverseTopK, err = getEnvInt("REVERSE_TOP_K", 3); err != nil {
		return nil, err
	}
	if cfg.MaxLocationsPerDoc, err = getEnvInt("MAX_LOCATIONS_PER_DOC", 5); err != nil {
		return nil, err
	}
	if cfg.MaxCompareChars, err = getEnvInt("MAX_COMPARE_CHARS", 1000); err != nil {
		return nil, err
	}
	if cfg.WorkerLimit, err = getEnvInt("WORKER_LIMIT", 3); err != nil {
		return nil, err
	}
	if cfg.SimilarityThreshold, err = getEnvFloat("SIMILARITY_THRESHOLD", 0.3); err != nil {
		return nil, err
	}
	if cfg.InsertThreshold, err = getEnvFloat("INSERT_THRESHOLD", 0.22); err != nil {
		return nil, err
	}
	if cfg.TextWeight, err = getEnvFloat("TEXT_WEIGHT", 0.4); err != nil {
		return nil, err
	}
	if cfg.VectorWeight, err = getEnvFloat("VECTOR_WEIGHT", 0.6); err != nil {
		return nil, err
	}

	ttlStr := getEnv("CACHE_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("CACHE_TTL must be a valid duration: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be greater than 0")
	}
	cfg.CacheTTL = ttl

	// Create ./data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// parseLogLevel converts a level name to a slog.Level.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets a positive integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

// getEnvFloat gets a non-negative float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return parsed, nil
}
