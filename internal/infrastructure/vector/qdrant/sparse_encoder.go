package qdrant

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"
)

// The sparse encoder is a lossy lexical sketch: tokens hash into a bounded
// bucket space, so distinct tokens can collide. That trade keeps the index
// small at the cost of exact term identity.
const (
	sparseVocabSize = 20000
	sparseMaxTerms  = 128
)

type sparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func (v sparseVector) isEmpty() bool {
	return len(v.Indices) == 0
}

// encodeSparse builds a weighted term-bucket vector from text. Counts are
// normalized by the maximum kept count, so the top bucket always has weight
// 1.0. Deterministic for a given input.
func encodeSparse(text string) sparseVector {
	tokens := tokenizeAlphaNum(text)
	if len(tokens) == 0 {
		return sparseVector{}
	}

	counts := make(map[uint32]int, len(tokens))
	for _, token := range tokens {
		counts[hashToken(token)%sparseVocabSize]++
	}

	buckets := make([]uint32, 0, len(counts))
	for idx := range counts {
		buckets = append(buckets, idx)
	}
	// Highest count first; equal counts break ties by bucket index so the
	// cut at maxTerms is stable.
	sort.Slice(buckets, func(i, j int) bool {
		if counts[buckets[i]] != counts[buckets[j]] {
			return counts[buckets[i]] > counts[buckets[j]]
		}
		return buckets[i] < buckets[j]
	})
	if len(buckets) > sparseMaxTerms {
		buckets = buckets[:sparseMaxTerms]
	}

	maxCount := counts[buckets[0]]
	indices := make([]uint32, 0, len(buckets))
	values := make([]float32, 0, len(buckets))
	for _, idx := range buckets {
		indices = append(indices, idx)
		values = append(values, float32(counts[idx])/float32(maxCount))
	}
	return sparseVector{Indices: indices, Values: values}
}

// encodeSparseBatch maps encodeSparse element-wise, preserving order.
func encodeSparseBatch(texts []string) []sparseVector {
	out := make([]sparseVector, 0, len(texts))
	for _, text := range texts {
		out = append(out, encodeSparse(text))
	}
	return out
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

// tokenizeAlphaNum lowercases and splits on maximal runs of ASCII letters and
// digits; everything else separates.
func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// combineTexts joins non-empty parts with spaces; used to build the sparse
// document text for a scheme.
func combineTexts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
