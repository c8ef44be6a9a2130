package llm

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/time/rate"

	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// RateLimited throttles completions by an estimate of the tokens each call
// consumes (prompt plus the output budget).
type RateLimited struct {
	next         ports.TextCompleter
	limiter      *rate.Limiter
	enc          *tiktoken.Tiktoken
	outputTokens int
}

var _ ports.TextCompleter = (*RateLimited)(nil)

// WithRateLimit wraps next with a token bucket. When the tokenizer encoding
// cannot be loaded, token counts fall back to runes/4.
func WithRateLimit(next ports.TextCompleter, tokensPerSecond float64, burst int, encoding string, outputTokens int, logger *slog.Logger) *RateLimited {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		if logger != nil {
			logger.Warn("tokenizer unavailable, estimating tokens from length", "encoding", encoding, "error", err)
		}
		enc = nil
	}
	if burst <= 0 {
		burst = int(tokensPerSecond)
	}
	// the bucket must hold at least one call's output budget
	burst = max(burst, outputTokens, 1)

	return &RateLimited{
		next:         next,
		limiter:      rate.NewLimiter(rate.Limit(tokensPerSecond), burst),
		enc:          enc,
		outputTokens: outputTokens,
	}
}

// Complete waits for the limiter, then delegates.
func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	n := r.EstimateTokens(prompt)
	if burst := r.limiter.Burst(); n > burst {
		n = burst
	}
	if err := r.limiter.WaitN(ctx, n); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}
	return r.next.Complete(ctx, prompt)
}

// EstimateTokens returns the number of tokens charged for prompt.
func (r *RateLimited) EstimateTokens(prompt string) int {
	var n int
	if r.enc != nil {
		n = len(r.enc.Encode(prompt, nil, nil))
	} else {
		n = (utf8.RuneCountInString(prompt) + 3) / 4
	}
	return n + r.outputTokens
}
