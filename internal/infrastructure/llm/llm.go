// Package llm adapts hosted language models to ports.TextCompleter and layers
// rate limiting, retries and tracing on top.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Hamza-cpp/research-assistant/internal/config"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
	"github.com/Hamza-cpp/research-assistant/internal/telemetry"
)

// New builds the configured provider wrapped as limiter, then retry, then tracing.
func New(cfg config.LLMConfig, logger *slog.Logger) (ports.TextCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key for provider %s is not set", cfg.Provider)
	}

	var completer ports.TextCompleter
	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI:
		completer = NewOpenAIClient(cfg)
	case config.ProviderAnthropic:
		completer = NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}

	if cfg.TokensPerSecond > 0 {
		completer = WithRateLimit(completer, cfg.TokensPerSecond, cfg.BurstTokens, cfg.TokenizerEncoding, int(cfg.MaxTokens), logger)
	}
	if cfg.MaxRetries > 0 {
		completer = WithRetry(completer, cfg.MaxRetries, logger)
	}

	return &traced{
		next:   completer,
		tracer: telemetry.Tracer("github.com/Hamza-cpp/research-assistant/internal/infrastructure/llm"),
		attrs: []attribute.KeyValue{
			attribute.String("llm.provider", cfg.Provider),
			attribute.String("llm.model", cfg.Model),
		},
	}, nil
}

type traced struct {
	next   ports.TextCompleter
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func (t *traced) Complete(ctx context.Context, prompt string) (out string, err error) {
	ctx, span := t.tracer.Start(ctx, "llm.Complete", trace.WithAttributes(t.attrs...))
	defer func() { telemetry.End(span, err) }()

	span.SetAttributes(attribute.Int("llm.prompt_len", len(prompt)))
	return t.next.Complete(ctx, prompt)
}
