package domain

// SchemeFilter carries the structured constraints derived from signals.
// A zero filter means "no filter at all", which collaborators must be able to
// distinguish from an always-true filter.
type SchemeFilter struct {
	State     string
	Housing   string
	Caste     string
	LandAcres *float64
}

func (f SchemeFilter) IsZero() bool {
	return f.State == "" && f.Housing == "" && f.Caste == "" && f.LandAcres == nil
}

// FilterFromSignals derives the search filter. Housing contributes only when
// it carries a known value.
func FilterFromSignals(s EligibilitySignals) SchemeFilter {
	f := SchemeFilter{
		State:     s.State,
		Caste:     s.Caste,
		LandAcres: s.LandAcres,
	}
	if s.HousingType.Known() {
		f.Housing = string(s.HousingType)
	}
	return f
}

// SchemeMatch is one ranked retrieval result with its full catalog payload.
// Score is branch similarity before fusion and the fused RRF score after.
type SchemeMatch struct {
	PointID string  `json:"point_id"`
	Score   float64 `json:"score"`
	Scheme  Scheme  `json:"scheme"`
}

// FilterCheck pairs an applicant signal value with the catalog rule it was
// checked against. It is a display aid, not a re-verification.
type FilterCheck struct {
	Signal any `json:"signal"`
	Rule   any `json:"rule"`
}

// Explanation annotates one match for human inspection. MatchedFilters holds
// one entry per signal dimension the applicant actually supplied.
type Explanation struct {
	SchemeName     string                 `json:"scheme_name"`
	Benefits       string                 `json:"benefits"`
	Score          float64                `json:"score"`
	MatchedFilters map[string]FilterCheck `json:"matched_filters"`
	Notes          string                 `json:"notes,omitempty"`
}

// AnalysisResult is the full outcome of one retrieval pipeline run. CaseID is
// empty and MemoryError set when the best-effort case save failed.
type AnalysisResult struct {
	Signals      EligibilitySignals `json:"signals"`
	Matches      []SchemeMatch      `json:"matches"`
	Explanations []Explanation      `json:"explanations"`
	Memories     []RecalledCase     `json:"memories"`
	CaseID       string             `json:"memory_id,omitempty"`
	MemoryError  string             `json:"memory_error,omitempty"`
}
