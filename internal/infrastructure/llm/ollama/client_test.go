package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
	"github.com/convolveai/yojana-drishti/internal/infrastructure/resilience"
)

func TestEmbedSendsModelAndInput(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, 0.2], [0.3, 0.4]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "nomic-embed-text", nil)
	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
	if gotBody["model"] != "nomic-embed-text" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
	input := gotBody["input"].([]any)
	if len(input) != 2 || input[0] != "first" {
		t.Fatalf("unexpected input %v", input)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[0.1]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "nomic-embed-text", nil)
	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected an error for an embedding count mismatch")
	}
}

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[0.5, 0.6, 0.7]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "nomic-embed-text", nil)
	vector, err := client.EmbedQuery(context.Background(), "query text")
	if err != nil {
		t.Fatalf("embed query failed: %v", err)
	}
	if len(vector) != 3 || vector[0] != 0.5 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestEmbedServerErrorIsTemporaryWithExecutor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 1,
		RetryMaxBackoff:     1,
		RetryMultiplier:     1,
		BreakerEnabled:      false,
	})
	client := New(server.URL, "nomic-embed-text", executor)

	_, err := client.Embed(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected a temporary error, got %v", err)
	}
}
