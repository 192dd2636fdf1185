package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

func TestExtractParsesVisionResponse(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Fatal("expected bearer auth")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "{\"housing_type\": \"kutcha\", \"assets\": [\"livestock\"], \"demographics\": [\"elderly resident\"], \"notes\": \"thatched roof visible\"}"}}]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "sk-test", "text-embedding-3-small", "gpt-4o-mini", nil)
	extractor := NewExtractor(client)

	signals, err := extractor.Extract(context.Background(), []byte("jpeg-bytes"), domain.EligibilitySignals{State: "Bihar"})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if signals.HousingType != domain.HousingKutcha {
		t.Fatalf("unexpected housing %q", signals.HousingType)
	}
	if len(signals.Assets) != 1 || signals.Assets[0] != "livestock" {
		t.Fatalf("unexpected assets %v", signals.Assets)
	}
	if signals.Notes != "thatched roof visible" {
		t.Fatalf("unexpected notes %q", signals.Notes)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("expected the vision model, got %v", gotBody["model"])
	}
	messages := gotBody["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "state=Bihar") {
		t.Fatalf("expected hints in the prompt, got %q", text)
	}
	imageURL := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(imageURL, "data:image/jpeg;base64,") {
		t.Fatalf("expected a data url, got %q", imageURL)
	}
}

func TestExtractToleratesProseAroundJSON(t *testing.T) {
	signals, err := parseExtractedSignals("Here is the analysis:\n{\"housing_type\": \"pucca\", \"assets\": []}\nDone.")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if signals.HousingType != domain.HousingPucca {
		t.Fatalf("unexpected housing %q", signals.HousingType)
	}
	if signals.Demographics == nil {
		t.Fatal("expected demographics initialized")
	}
}

func TestExtractUnknownHousingDefaultsToUnknown(t *testing.T) {
	signals, err := parseExtractedSignals(`{"housing_type": "castle"}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if signals.HousingType != domain.HousingUnknown {
		t.Fatalf("expected unknown housing, got %q", signals.HousingType)
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"data": [
				{"index": 1, "embedding": [0.2]},
				{"index": 0, "embedding": [0.1]}
			]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "sk-test", "text-embedding-3-small", "gpt-4o-mini", nil)
	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.2 {
		t.Fatalf("expected index-ordered vectors, got %v", vectors)
	}
}
