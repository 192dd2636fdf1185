package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

// MemoryClient persists case memories in their own collection with a single
// unnamed dense vector per point, keyed by case id.
type MemoryClient struct {
	transport  *transport
	collection string

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func NewMemoryClient(baseURL, apiKey, collection string) *MemoryClient {
	return &MemoryClient{
		transport:  newTransport(baseURL, apiKey),
		collection: collection,
	}
}

func (c *MemoryClient) EnsureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	existsPath := fmt.Sprintf("/collections/%s/exists", c.collection)
	if err := c.transport.doJSON(ctx, http.MethodGet, existsPath, nil, &resp, "memory collection exists"); err != nil {
		return err
	}
	if !resp.Result.Exists {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     vectorSize,
				"distance": "Cosine",
			},
		}
		path := fmt.Sprintf("/collections/%s", c.collection)
		if err := c.transport.doJSON(ctx, http.MethodPut, path, body, nil, "create memory collection"); err != nil {
			return err
		}
		indexBody := map[string]any{
			"field_name":   "updated_at",
			"field_schema": "datetime",
		}
		indexPath := fmt.Sprintf("/collections/%s/index", c.collection)
		if err := c.transport.doJSON(ctx, http.MethodPut, indexPath, indexBody, nil, "create memory payload index"); err != nil {
			return err
		}
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *MemoryClient) UpsertCase(ctx context.Context, cm domain.CaseMemory, vector []float32) error {
	if cm.CaseID == "" {
		return fmt.Errorf("case id is required for upsert")
	}
	if len(vector) == 0 {
		return fmt.Errorf("case vector is empty")
	}
	if err := c.EnsureCollection(ctx, len(vector)); err != nil {
		return err
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      cm.CaseID,
				"vector":  vector,
				"payload": casePayload(cm),
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.transport.doJSON(ctx, http.MethodPut, path, body, nil, "upsert case")
}

func (c *MemoryClient) SearchCases(ctx context.Context, queryVector []float32, limit int) ([]domain.CaseHit, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	body := map[string]any{
		"query":        queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp queryResponse
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	if err := c.transport.doJSON(ctx, http.MethodPost, path, body, &resp, "query cases"); err != nil {
		return nil, err
	}

	out := make([]domain.CaseHit, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, domain.CaseHit{
			Similarity: p.Score,
			Case:       caseFromPayload(pointIDString(p.ID), p.Payload),
		})
	}
	return out, nil
}

// UpdateCasePayload sets only the supplied outcome fields plus updated_at;
// existing payload keys are left untouched.
func (c *MemoryClient) UpdateCasePayload(
	ctx context.Context,
	caseID string,
	update domain.CaseUpdate,
	updatedAt time.Time,
) error {
	payload := map[string]any{
		"updated_at": updatedAt.UTC().Format(time.RFC3339),
	}
	if update.Status != nil {
		payload["status"] = string(*update.Status)
	}
	if update.FeedbackScore != nil {
		payload["feedback_score"] = *update.FeedbackScore
	}
	if update.Notes != nil {
		payload["notes"] = *update.Notes
	}
	if update.ChosenSchemeID != nil {
		payload["chosen_scheme_id"] = *update.ChosenSchemeID
	}

	body := map[string]any{
		"payload": payload,
		"points":  []string{caseID},
	}
	path := fmt.Sprintf("/collections/%s/points/payload?wait=true", c.collection)
	return c.transport.doJSON(ctx, http.MethodPost, path, body, nil, "update case payload")
}

func casePayload(cm domain.CaseMemory) map[string]any {
	payload := map[string]any{
		"signals":              cm.Signals,
		"query_intent":         cm.QueryIntent,
		"retrieved_scheme_ids": cm.RetrievedSchemeIDs,
		"status":               string(cm.Status),
		"created_at":           cm.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":           cm.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if cm.ChosenSchemeID != "" {
		payload["chosen_scheme_id"] = cm.ChosenSchemeID
	}
	if cm.FeedbackScore != nil {
		payload["feedback_score"] = *cm.FeedbackScore
	}
	if cm.Notes != "" {
		payload["notes"] = cm.Notes
	}
	return payload
}

type storedCase struct {
	Signals            domain.EligibilitySignals `json:"signals"`
	QueryIntent        string                    `json:"query_intent"`
	RetrievedSchemeIDs []string                  `json:"retrieved_scheme_ids"`
	ChosenSchemeID     string                    `json:"chosen_scheme_id"`
	Status             string                    `json:"status"`
	FeedbackScore      *float64                  `json:"feedback_score"`
	Notes              string                    `json:"notes"`
	CreatedAt          string                    `json:"created_at"`
	UpdatedAt          string                    `json:"updated_at"`
}

func caseFromPayload(caseID string, payload map[string]any) domain.CaseMemory {
	var stored storedCase
	// Best effort: a malformed payload yields zero-value fields, never an
	// error, so a single bad point cannot poison recall.
	_ = decodePayloadInto(payload, &stored)
	return domain.CaseMemory{
		CaseID:             caseID,
		Signals:            stored.Signals,
		QueryIntent:        stored.QueryIntent,
		RetrievedSchemeIDs: stored.RetrievedSchemeIDs,
		ChosenSchemeID:     stored.ChosenSchemeID,
		Status:             domain.CaseStatus(stored.Status),
		FeedbackScore:      stored.FeedbackScore,
		Notes:              stored.Notes,
		CreatedAt:          parseTimestamp(stored.CreatedAt),
		UpdatedAt:          parseTimestamp(stored.UpdatedAt),
	}
}

// parseTimestamp returns the zero time for missing or unparsable values;
// recall treats that as "no recency boost" rather than an error.
func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
