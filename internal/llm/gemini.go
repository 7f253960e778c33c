package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini completes through the Google Gen AI API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int64
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model, maxTokens: cfg.MaxTokens}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, content string) (string, error) {
	ctx, span := startSpan(ctx, ProviderGemini, g.model, g.maxTokens, system, content)
	defer span.End()

	gc := &genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxTokens)}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(content), gc)
	if err != nil {
		failSpan(span, "api_error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		failSpan(span, "empty_response", nil)
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	u := usage{model: g.model}
	if resp.ModelVersion != "" {
		u.model = resp.ModelVersion
	}
	if md := resp.UsageMetadata; md != nil {
		u.input = int64(md.PromptTokenCount)
		u.output = int64(md.CandidatesTokenCount)
	}
	if len(resp.Candidates) > 0 {
		u.finishReason = string(resp.Candidates[0].FinishReason)
	}
	endSpan(span, u, text)
	return text, nil
}
