package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VECTOR_SIZE", "1024")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.VectorSize != 1024 {
		t.Errorf("VectorSize = %d, want 1024", cfg.VectorSize)
	}
	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %q, want 9000", cfg.APIPort)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.MaxQueries != 3 || cfg.TopKPerQuery != 20 || cfg.RerankTopK != 15 {
		t.Errorf("retrieval knobs = %d/%d/%d, want 3/20/15", cfg.MaxQueries, cfg.TopKPerQuery, cfg.RerankTopK)
	}
	if cfg.ReverseTopK != 3 || cfg.MaxLocationsPerDoc != 5 || cfg.WorkerLimit != 3 {
		t.Errorf("matching knobs = %d/%d/%d, want 3/5/3", cfg.ReverseTopK, cfg.MaxLocationsPerDoc, cfg.WorkerLimit)
	}
	if cfg.SimilarityThreshold != 0.3 || cfg.InsertThreshold != 0.22 {
		t.Errorf("thresholds = %v/%v, want 0.3/0.22", cfg.SimilarityThreshold, cfg.InsertThreshold)
	}
	if cfg.TextWeight != 0.4 || cfg.VectorWeight != 0.6 {
		t.Errorf("weights = %v/%v, want 0.4/0.6", cfg.TextWeight, cfg.VectorWeight)
	}
}

func TestLoad_VectorSizeRequired(t *testing.T) {
	t.Setenv("VECTOR_SIZE", "")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without VECTOR_SIZE")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"vector size not a number", "VECTOR_SIZE", "big"},
		{"vector size zero", "VECTOR_SIZE", "0"},
		{"negative weight", "TEXT_WEIGHT", "-0.5"},
		{"top k not a number", "TOP_K_PER_QUERY", "many"},
		{"top k zero", "TOP_K_PER_QUERY", "0"},
		{"bad cache ttl", "CACHE_TTL", "soon"},
		{"bad log level", "LOG_LEVEL", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() should fail with %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("RERANK_TOP_K", "30")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CACHE_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.SimilarityThreshold != 0.5 {
		t.Errorf("SimilarityThreshold = %v, want 0.5", cfg.SimilarityThreshold)
	}
	if cfg.RerankTopK != 30 {
		t.Errorf("RerankTopK = %d, want 30", cfg.RerankTopK)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" {
		t.Errorf("logging = %v/%q, want debug/json", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.CacheTTL.Minutes() != 30 {
		t.Errorf("CacheTTL = %v, want 30m", cfg.CacheTTL)
	}
}
