package qdrant

import (
	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

// buildSchemeFilter turns eligibility constraints into a Qdrant boolean
// filter. A record must satisfy every must clause AND, when a state was
// supplied, at least one of the should clauses (exact state or the "All"
// wildcard). Returns nil when every input is absent: no filter at all, not an
// always-true one.
func buildSchemeFilter(f domain.SchemeFilter) map[string]any {
	if f.IsZero() {
		return nil
	}

	var must []map[string]any
	var should []map[string]any

	if f.State != "" {
		should = append(should,
			matchClause("states", f.State),
			matchClause("states", domain.StateWildcard),
		)
	}
	if f.Housing != "" {
		must = append(must, matchClause("eligibility_rules.housing", f.Housing))
	}
	if f.Caste != "" {
		must = append(must, matchClause("eligibility_rules.caste", f.Caste))
	}
	if f.LandAcres != nil {
		// The applicant qualifies when their holding is at or below the
		// scheme's ceiling, so the ceiling must be >= the signal.
		must = append(must, map[string]any{
			"key":   "eligibility_rules.land_max_acres",
			"range": map[string]any{"gte": *f.LandAcres},
		})
	}

	filter := make(map[string]any, 2)
	if len(must) > 0 {
		filter["must"] = must
	}
	if len(should) > 0 {
		filter["should"] = should
	}
	return filter
}

func matchClause(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}
