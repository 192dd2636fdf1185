package usecase

import (
	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

// BuildExplanation maps a ranked match and the signals that produced it into
// a structured explanation. It is pure: no I/O and no failure modes. Each
// supplied signal dimension gets one matched_filters entry pairing the signal
// with the catalog rule it was checked against; absent signals get no entry.
func BuildExplanation(signals domain.EligibilitySignals, match domain.SchemeMatch) domain.Explanation {
	rules := match.Scheme.Rules
	matched := make(map[string]domain.FilterCheck)

	if signals.HousingType.Known() {
		matched["housing"] = domain.FilterCheck{
			Signal: string(signals.HousingType),
			Rule:   rules.Housing,
		}
	}
	if signals.State != "" {
		matched["state"] = domain.FilterCheck{
			Signal: signals.State,
			Rule:   match.Scheme.States,
		}
	}
	if signals.Caste != "" {
		matched["caste"] = domain.FilterCheck{
			Signal: signals.Caste,
			Rule:   rules.Caste,
		}
	}
	if signals.LandAcres != nil {
		var rule any
		if rules.LandMaxAcres != nil {
			rule = *rules.LandMaxAcres
		}
		matched["land_acres"] = domain.FilterCheck{
			Signal: *signals.LandAcres,
			Rule:   rule,
		}
	}

	return domain.Explanation{
		SchemeName:     match.Scheme.SchemeName,
		Benefits:       match.Scheme.Benefits,
		Score:          match.Score,
		MatchedFilters: matched,
		Notes:          signals.Notes,
	}
}
