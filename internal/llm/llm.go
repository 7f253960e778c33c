// Package llm talks to the text-completion endpoint that scores documents.
// Providers return the model's free text untouched; extracting the record
// is the caller's job.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	defaultMaxTokens = 8192
)

var (
	ErrEmptyResponse   = errors.New("completion endpoint returned no text")
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrMissingAPIKey   = errors.New("llm api key is required")
)

// Completer sends a system instruction and user content and returns the
// model's text. An empty system sends content alone.
type Completer interface {
	Complete(ctx context.Context, system, content string) (string, error)
}

type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int64
}

// New builds the completer for cfg.Provider.
func New(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGemini(ctx, cfg)
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

var tracer = otel.Tracer("study-evaluator/llm")

func startSpan(ctx context.Context, provider, model string, maxTokens int64, system, content string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "chat "+model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", provider),
			attribute.String("gen_ai.request.model", model),
			attribute.Int64("gen_ai.request.max_tokens", maxTokens),
		),
	)
	msgs := []map[string]string{{"role": "user", "content": content}}
	if system != "" {
		msgs = append([]map[string]string{{"role": "system", "content": system}}, msgs...)
	}
	if b, err := json.Marshal(msgs); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(b)))
	}
	return ctx, span
}

type usage struct {
	model        string
	input        int64
	output       int64
	finishReason string
}

func endSpan(span trace.Span, u usage, text string) {
	span.SetAttributes(
		attribute.String("gen_ai.response.model", u.model),
		attribute.Int64("gen_ai.usage.input_tokens", u.input),
		attribute.Int64("gen_ai.usage.output_tokens", u.output),
	)
	if u.finishReason != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{u.finishReason}))
	}
	out := []map[string]string{{"role": "assistant", "content": text}}
	if b, err := json.Marshal(out); err == nil {
		span.SetAttributes(attribute.String("gen_ai.output.messages", string(b)))
	}
}

func failSpan(span trace.Span, kind string, err error) {
	span.SetAttributes(attribute.String("error.type", kind))
	if err != nil {
		span.RecordError(err)
	}
}
