package resolver

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"dublette/internal/logging"
)

// Client is the LLM transport the resolver talks to. Tests substitute a fake.
type Client interface {
	// Generate sends one prompt and returns the raw model text plus token
	// counts. Transport failures surface as errors, never as verdicts.
	Generate(ctx context.Context, prompt string) (*Response, error)
}

// Response is the raw model output before verdict parsing.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// GeminiClient calls the Gemini API requesting application/json output.
type GeminiClient struct {
	cli             *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
	timeout         time.Duration
}

// NewGeminiClient builds a client for the given model. The request timeout
// bounds each individual Generate call.
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float64, maxOutputTokens int, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		cli:             cli,
		model:           model,
		temperature:     float32(temperature),
		maxOutputTokens: int32(maxOutputTokens),
		timeout:         timeout,
	}, nil
}

// Generate implements Client.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (*Response, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	temp := g.temperature
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      &temp,
			MaxOutputTokens:  g.maxOutputTokens,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	out := &Response{Text: resp.Candidates[0].Content.Parts[0].Text}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	logging.API("%s responded in %v (%d in / %d out tokens)",
		g.model, time.Since(start), out.InputTokens, out.OutputTokens)
	return out, nil
}
