package domain

// StateWildcard in a scheme's state list means the scheme applies everywhere.
const StateWildcard = "All"

// EligibilityRules are the structured, filterable conditions of a scheme.
// LandMaxAcres is a ceiling: an applicant qualifies when their holding is at
// or below it.
type EligibilityRules struct {
	Housing        string   `json:"housing,omitempty"`
	Caste          string   `json:"caste,omitempty"`
	LandMaxAcres   *float64 `json:"land_max_acres,omitempty"`
	AssetsExcluded []string `json:"assets_excluded,omitempty"`
}

// Scheme is one welfare catalog record. SchemeID is the stable external
// identifier; re-ingesting the same id overwrites the indexed point in place.
type Scheme struct {
	SchemeID    string           `json:"scheme_id"`
	SchemeName  string           `json:"scheme_name"`
	Description string           `json:"description"`
	States      []string         `json:"states"`
	Rules       EligibilityRules `json:"eligibility_rules"`
	Benefits    string           `json:"benefits"`
	SourceURL   string           `json:"source_url,omitempty"`
}
