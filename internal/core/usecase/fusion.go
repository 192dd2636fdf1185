package usecase

import (
	"sort"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

type fusedCandidate struct {
	match domain.SchemeMatch
	score float64
}

// fuseMatchesRRF combines the dense and sparse branch rankings with
// reciprocal rank fusion: each candidate accumulates 1/(k+rank) per branch it
// appears in, so candidates found by both branches rise.
func fuseMatchesRRF(dense, sparse []domain.SchemeMatch, rrfK int) []domain.SchemeMatch {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedCandidate, len(dense)+len(sparse))
	addBranch := func(matches []domain.SchemeMatch) {
		for rank, match := range matches {
			key := matchKey(match)
			candidate := acc[key]
			candidate.match = preferRicherMatch(candidate.match, match)
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	addBranch(dense)
	addBranch(sparse)

	out := make([]domain.SchemeMatch, 0, len(acc))
	for _, c := range acc {
		match := c.match
		match.Score = c.score
		out = append(out, match)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Scheme.SchemeID != out[j].Scheme.SchemeID {
			return out[i].Scheme.SchemeID < out[j].Scheme.SchemeID
		}
		return out[i].PointID < out[j].PointID
	})

	return out
}

func trimMatches(matches []domain.SchemeMatch, limit int) []domain.SchemeMatch {
	if limit <= 0 || len(matches) <= limit {
		return matches
	}
	return matches[:limit]
}

func matchKey(match domain.SchemeMatch) string {
	if match.Scheme.SchemeID != "" {
		return match.Scheme.SchemeID
	}
	return match.PointID
}

func preferRicherMatch(current, candidate domain.SchemeMatch) domain.SchemeMatch {
	if current.PointID == "" && current.Scheme.SchemeID == "" {
		return candidate
	}
	if current.Scheme.Description == "" && candidate.Scheme.Description != "" {
		current.Scheme = candidate.Scheme
	}
	if current.PointID == "" {
		current.PointID = candidate.PointID
	}
	return current
}
