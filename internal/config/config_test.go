package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_MEMORY_COLLECTION", "")
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("HYBRID_CANDIDATES", "")
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("MEMORY_TOP_K", "")

	cfg := Load()
	if cfg.QdrantCollection != "gov_schemes" {
		t.Fatalf("expected default scheme collection gov_schemes, got %q", cfg.QdrantCollection)
	}
	if cfg.QdrantMemoryCollection != "case_memory" {
		t.Fatalf("expected default memory collection case_memory, got %q", cfg.QdrantMemoryCollection)
	}
	if cfg.SearchTopK != 3 {
		t.Fatalf("expected default search top k 3, got %d", cfg.SearchTopK)
	}
	if cfg.HybridCandidates != 30 {
		t.Fatalf("expected default hybrid candidates 30, got %d", cfg.HybridCandidates)
	}
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.MemoryTopK != 3 {
		t.Fatalf("expected default memory top k 3, got %d", cfg.MemoryTopK)
	}
}

func TestLoadParsesRetrievalOverrides(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "5")
	t.Setenv("HYBRID_CANDIDATES", "40")
	t.Setenv("FUSION_RRF_K", "75")
	t.Setenv("MEMORY_TOP_K", "7")

	cfg := Load()
	if cfg.SearchTopK != 5 {
		t.Fatalf("expected search top k 5, got %d", cfg.SearchTopK)
	}
	if cfg.HybridCandidates != 40 {
		t.Fatalf("expected hybrid candidates 40, got %d", cfg.HybridCandidates)
	}
	if cfg.FusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.FusionRRFK)
	}
	if cfg.MemoryTopK != 7 {
		t.Fatalf("expected memory top k 7, got %d", cfg.MemoryTopK)
	}
}

func TestValidateRequiresQdrantURL(t *testing.T) {
	t.Setenv("QDRANT_URL", "")

	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing QDRANT_URL")
	}
}

func TestValidateRequiresOpenAIKeyForOpenAIBackend(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://localhost:6333")
	t.Setenv("EMBEDDING_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg = Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://localhost:6333")
	t.Setenv("EMBEDDING_BACKEND", "cohere")

	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}
