package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")

	cfg := Load()
	if cfg.VectorBackend != "qdrant" {
		t.Fatalf("expected default vector backend qdrant, got %q", cfg.VectorBackend)
	}
	if cfg.RAGTopK != 3 {
		t.Fatalf("expected default top k 3, got %d", cfg.RAGTopK)
	}
	if cfg.ChunkSize != 600 || cfg.ChunkOverlap != 80 {
		t.Fatalf("expected chunking defaults 600/80, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "sqlite")
	t.Setenv("RAG_TOP_K", "5")
	t.Setenv("GEMINI_RATE_PER_MINUTE", "30")
	t.Setenv("MAX_CONCURRENT_CONNS", "64")

	cfg := Load()
	if cfg.VectorBackend != "sqlite" {
		t.Fatalf("expected vector backend override, got %q", cfg.VectorBackend)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected top k 5, got %d", cfg.RAGTopK)
	}
	if cfg.GeminiRatePerMinute != 30 {
		t.Fatalf("expected gemini rate 30, got %d", cfg.GeminiRatePerMinute)
	}
	if cfg.MaxConcurrentConns != 64 {
		t.Fatalf("expected max conns 64, got %d", cfg.MaxConcurrentConns)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("RAG_TOP_K", "many")

	if cfg := Load(); cfg.RAGTopK != 3 {
		t.Fatalf("expected fallback top k 3, got %d", cfg.RAGTopK)
	}
}

func TestLoadGeminiKeySingleVariableFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "")
	t.Setenv("GEMINI_API_KEY", "single-key")

	if cfg := Load(); cfg.GeminiAPIKeys != "single-key" {
		t.Fatalf("expected GEMINI_API_KEY fallback, got %q", cfg.GeminiAPIKeys)
	}
}
