package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"shuttle/internal/modules/analytics"
)

// GeminiProvider implements Summarizer using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.0-flash")
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Digest(ctx context.Context, snap *analytics.Snapshot) (*Digest, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	resp, err := p.model.GenerateContent(ctx, genai.Text(buildDigestPrompt(string(data))))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	return parseDigest(text.String())
}

func parseDigest(raw string) (*Digest, error) {
	clean := cleanJSONString(raw)
	var d Digest
	if err := json.Unmarshal([]byte(clean), &d); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, clean)
	}
	d.Source = "gemini"
	return &d, nil
}

func buildDigestPrompt(snapshotJSON string) string {
	return fmt.Sprintf(`Role: You write the daily operations digest for a student shuttle service.
Input: a JSON snapshot with weekly revenue for the last 30 days ("revenue"), seat utilization per
active route ("utilization", bands full/high/medium/low) and 30-day route averages ("routes").

Rules:
- Use only numbers present in the snapshot. Never invent routes or amounts.
- "headline": one sentence.
- "highlights": at most 4 short bullet strings.
- "risks": routes in band "full" or "high", weeks with zero revenue, and a non-zero "skipped"
  revenue count (bookings that could not be priced). Empty array if none.

Respond with JSON only: {"headline": string, "highlights": [string], "risks": [string]}

Snapshot:
%s`, snapshotJSON)
}

func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
