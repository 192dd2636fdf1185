package qdrant

import (
	"reflect"
	"testing"
)

func TestEncodeSparseDeterministic(t *testing.T) {
	text := "Housing assistance for rural households in kutcha houses"
	first := encodeSparse(text)
	second := encodeSparse(text)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical vectors for identical input")
	}
	if first.isEmpty() {
		t.Fatal("expected a non-empty vector")
	}
}

func TestEncodeSparseEmptyInputs(t *testing.T) {
	if !encodeSparse("").isEmpty() {
		t.Fatal("expected empty vector for empty text")
	}
	if !encodeSparse("!!! *** --- ???").isEmpty() {
		t.Fatal("expected empty vector for text with no alphanumeric runs")
	}
}

func TestEncodeSparseTopWeightIsOne(t *testing.T) {
	v := encodeSparse("housing housing scheme")

	if len(v.Indices) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(v.Indices))
	}
	if v.Values[0] != 1.0 {
		t.Fatalf("expected top weight 1.0, got %v", v.Values[0])
	}
	if v.Indices[0] != hashToken("housing")%sparseVocabSize {
		t.Fatalf("expected the repeated token's bucket first, got %d", v.Indices[0])
	}
	if v.Values[1] != 0.5 {
		t.Fatalf("expected second weight 0.5, got %v", v.Values[1])
	}
}

func TestEncodeSparseBatchPreservesOrder(t *testing.T) {
	texts := []string{"first scheme", "", "third scheme"}
	vectors := encodeSparseBatch(texts)

	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if vectors[0].isEmpty() || vectors[2].isEmpty() {
		t.Fatal("expected non-empty vectors for non-empty texts")
	}
	if !vectors[1].isEmpty() {
		t.Fatal("expected an empty vector for empty text")
	}
	if !reflect.DeepEqual(vectors[0], encodeSparse("first scheme")) {
		t.Fatal("expected batch encoding to match single encoding")
	}
}

func TestTokenizeAlphaNum(t *testing.T) {
	got := tokenizeAlphaNum("Kutcha-house, 123 ACRES!")
	want := []string{"kutcha", "house", "123", "acres"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCombineTextsSkipsEmptyParts(t *testing.T) {
	if got := combineTexts("a", "", "b"); got != "a b" {
		t.Fatalf("expected %q, got %q", "a b", got)
	}
	if got := combineTexts("", ""); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
