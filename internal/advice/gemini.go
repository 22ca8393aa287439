package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	glang "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

// GeminiGenerator calls the Generative Language API.
type GeminiGenerator struct {
	svc   *glang.Service
	model string
}

var _ TextGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator builds a generator for model (e.g. "gemini-2.0-flash").
// Extra options are appended after the API key, which lets tests point the
// client at a fake endpoint.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	svc, err := glang.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("generative language service: %w", err)
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return &GeminiGenerator{svc: svc, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := &glang.GenerateContentRequest{
		Contents: []*glang.Content{{
			Role:  "user",
			Parts: []*glang.Part{{Text: prompt}},
		}},
	}
	resp, err := g.svc.Models.GenerateContent(g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", errors.New("generate content: no text in response")
	}
	return b.String(), nil
}
