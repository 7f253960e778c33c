package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI completes through any Chat Completions compatible endpoint.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
}

func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

func (o *OpenAI) Complete(ctx context.Context, system, content string) (string, error) {
	ctx, span := startSpan(ctx, ProviderOpenAI, o.model, o.maxTokens, system, content)
	defer span.End()

	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(content))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               o.model,
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		failSpan(span, "api_error", err)
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		failSpan(span, "empty_response", nil)
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	text := resp.Choices[0].Message.Content
	endSpan(span, usage{
		model:        resp.Model,
		input:        resp.Usage.PromptTokens,
		output:       resp.Usage.CompletionTokens,
		finishReason: string(resp.Choices[0].FinishReason),
	}, text)
	return text, nil
}
