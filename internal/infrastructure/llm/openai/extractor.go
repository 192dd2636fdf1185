package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

const extractionPrompt = "Analyze this image for Indian government welfare eligibility. " +
	"Return JSON with keys: housing_type (kutcha/pucca/unknown), assets (list of short strings), " +
	"demographics (list of short strings), notes (string). Keep lists short."

// Extractor derives eligibility signals from a household photo via the
// vision chat endpoint. Best effort: the model's structured guess, not a
// verified assessment.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(
	ctx context.Context,
	image []byte,
	hints domain.EligibilitySignals,
) (domain.EligibilitySignals, error) {
	prompt := extractionPrompt
	if hintText := formatHints(hints); hintText != "" {
		prompt += "\nHints: " + hintText
	}

	request := map[string]any{
		"model": e.client.visionModel,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
					{
						"type": "image_url",
						"image_url": map[string]any{
							"url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
						},
					},
				},
			},
		},
		"response_format": map[string]any{"type": "json_object"},
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := e.client.postJSON(ctx, "/v1/chat/completions", request, &response, "vision"); err != nil {
		return domain.EligibilitySignals{}, err
	}
	if len(response.Choices) == 0 {
		return domain.EligibilitySignals{}, fmt.Errorf("vision extraction returned no choices")
	}

	return parseExtractedSignals(response.Choices[0].Message.Content)
}

func parseExtractedSignals(content string) (domain.EligibilitySignals, error) {
	var extracted struct {
		HousingType  string   `json:"housing_type"`
		Assets       []string `json:"assets"`
		Demographics []string `json:"demographics"`
		Notes        string   `json:"notes"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &extracted); err != nil {
		return domain.EligibilitySignals{}, fmt.Errorf("parse extracted signals: %w", err)
	}

	housing, err := domain.ParseHousingType(extracted.HousingType)
	if err != nil {
		housing = domain.HousingUnknown
	}
	signals := domain.EligibilitySignals{
		HousingType:  housing,
		Assets:       extracted.Assets,
		Demographics: extracted.Demographics,
		Notes:        extracted.Notes,
	}
	if signals.Assets == nil {
		signals.Assets = []string{}
	}
	if signals.Demographics == nil {
		signals.Demographics = []string{}
	}
	return signals, nil
}

func formatHints(hints domain.EligibilitySignals) string {
	var parts []string
	if hints.State != "" {
		parts = append(parts, "state="+hints.State)
	}
	if hints.Caste != "" {
		parts = append(parts, "caste="+hints.Caste)
	}
	if hints.LandAcres != nil {
		parts = append(parts, "land_acres="+strconv.FormatFloat(*hints.LandAcres, 'g', -1, 64))
	}
	return strings.Join(parts, ", ")
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
