package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// HousingType is a tri-state housing classification. Unknown means the
// applicant's housing was never observed; it must not narrow search results.
type HousingType string

const (
	HousingUnknown HousingType = "unknown"
	HousingKutcha  HousingType = "kutcha"
	HousingPucca   HousingType = "pucca"
)

func ParseHousingType(raw string) (HousingType, error) {
	switch HousingType(strings.ToLower(strings.TrimSpace(raw))) {
	case HousingKutcha:
		return HousingKutcha, nil
	case HousingPucca:
		return HousingPucca, nil
	case HousingUnknown, "":
		return HousingUnknown, nil
	default:
		return HousingUnknown, WrapError(ErrInvalidInput, "parse housing type", fmt.Errorf("unknown housing type %q", raw))
	}
}

// Known reports whether the housing type carries a usable signal.
func (h HousingType) Known() bool {
	return h == HousingKutcha || h == HousingPucca
}

// EligibilitySignals holds everything known about an applicant. Absent fields
// mean "unknown", never "excluded": an unset field adds no filter clause.
type EligibilitySignals struct {
	HousingType  HousingType `json:"housing_type"`
	Assets       []string    `json:"assets"`
	Demographics []string    `json:"demographics"`
	State        string      `json:"state,omitempty"`
	Caste        string      `json:"caste,omitempty"`
	LandAcres    *float64    `json:"land_acres,omitempty"`
	Intent       string      `json:"intent,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

// SummaryText renders the signals as a deterministic, field-ordered string.
// It is the embedding input whenever no explicit query intent is given.
func (s EligibilitySignals) SummaryText() string {
	housing := s.HousingType
	if housing == "" {
		housing = HousingUnknown
	}
	segments := []string{"housing=" + string(housing)}
	if s.State != "" {
		segments = append(segments, "state="+s.State)
	}
	if s.Caste != "" {
		segments = append(segments, "caste="+s.Caste)
	}
	if s.LandAcres != nil {
		segments = append(segments, "land_acres="+strconv.FormatFloat(*s.LandAcres, 'g', -1, 64))
	}
	if len(s.Assets) > 0 {
		segments = append(segments, "assets="+strings.Join(s.Assets, ", "))
	}
	if len(s.Demographics) > 0 {
		segments = append(segments, "demographics="+strings.Join(s.Demographics, ", "))
	}
	if s.Intent != "" {
		segments = append(segments, "intent="+s.Intent)
	}
	if s.Notes != "" {
		segments = append(segments, "notes="+s.Notes)
	}
	return strings.Join(segments, " | ")
}
