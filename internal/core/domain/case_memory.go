package domain

import (
	"fmt"
	"strings"
	"time"
)

type CaseStatus string

const (
	CaseStatusDraft     CaseStatus = "draft"
	CaseStatusSubmitted CaseStatus = "submitted"
	CaseStatusApproved  CaseStatus = "approved"
	CaseStatusRejected  CaseStatus = "rejected"
)

func ParseCaseStatus(raw string) (CaseStatus, error) {
	switch CaseStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case CaseStatusDraft:
		return CaseStatusDraft, nil
	case CaseStatusSubmitted:
		return CaseStatusSubmitted, nil
	case CaseStatusApproved:
		return CaseStatusApproved, nil
	case CaseStatusRejected:
		return CaseStatusRejected, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse case status", fmt.Errorf("unknown status %q", raw))
	}
}

// CaseMemory is one persisted query event. CreatedAt is set once; UpdatedAt
// advances on every mutation. Cases are never deleted by this service.
type CaseMemory struct {
	CaseID             string             `json:"case_id,omitempty"`
	Signals            EligibilitySignals `json:"signals"`
	QueryIntent        string             `json:"query_intent"`
	RetrievedSchemeIDs []string           `json:"retrieved_scheme_ids"`
	ChosenSchemeID     string             `json:"chosen_scheme_id,omitempty"`
	Status             CaseStatus         `json:"status,omitempty"`
	FeedbackScore      *float64           `json:"feedback_score,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// SummaryText is the embedding input for the case: the query intent followed
// by the signal summary, deterministically ordered.
func (c CaseMemory) SummaryText() string {
	return "intent=" + c.QueryIntent + " | " + c.Signals.SummaryText()
}

// CaseUpdate is a partial mutation of a case's outcome fields. Nil fields are
// left untouched; UpdatedAt is always bumped by the applier.
type CaseUpdate struct {
	Status         *CaseStatus `json:"status,omitempty"`
	FeedbackScore  *float64    `json:"feedback_score,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
	ChosenSchemeID *string     `json:"chosen_scheme_id,omitempty"`
}

func (u CaseUpdate) IsEmpty() bool {
	return u.Status == nil && u.FeedbackScore == nil && u.Notes == nil && u.ChosenSchemeID == nil
}

// Validate rejects out-of-range values before any mutation happens.
func (u CaseUpdate) Validate() error {
	if u.FeedbackScore != nil && (*u.FeedbackScore < 0 || *u.FeedbackScore > 1) {
		return WrapError(ErrInvalidInput, "validate case update",
			fmt.Errorf("feedback_score %v outside [0,1]", *u.FeedbackScore))
	}
	if u.Status != nil {
		if _, err := ParseCaseStatus(string(*u.Status)); err != nil {
			return err
		}
	}
	return nil
}

// CaseHit is a raw vector-similarity hit before recency re-ranking.
type CaseHit struct {
	Similarity float64
	Case       CaseMemory
}

// RecalledCase is a re-ranked hit. Score = Similarity + RecencyBoost, where
// the boost is 1/(1+age_in_days) from the case's UpdatedAt.
type RecalledCase struct {
	Score        float64    `json:"score"`
	Similarity   float64    `json:"similarity"`
	RecencyBoost float64    `json:"recency_boost"`
	Case         CaseMemory `json:"case"`
}
