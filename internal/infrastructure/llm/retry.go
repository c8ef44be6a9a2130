package llm

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go/v3"

	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// Retrying re-issues completions that failed with a transient error.
type Retrying struct {
	next            ports.TextCompleter
	maxTries        uint
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          *slog.Logger
}

var _ ports.TextCompleter = (*Retrying)(nil)

// WithRetry wraps next with exponential backoff, up to maxRetries extra attempts.
func WithRetry(next ports.TextCompleter, maxRetries int, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retrying{
		next:            next,
		maxTries:        uint(maxRetries) + 1,
		initialInterval: time.Second,
		maxInterval:     30 * time.Second,
		logger:          logger,
	}
}

// Complete delegates and retries transient failures.
func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	operation := func() (string, error) {
		out, err := r.next.Complete(ctx, prompt)
		if err != nil && !Retryable(err) {
			return "", backoff.Permanent(err)
		}
		return out, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval
	policy.MaxInterval = r.maxInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.Warn("completion failed, retrying", "error", err, "wait", wait)
		}),
	)
}

// Retryable reports whether err is worth another attempt: rate limiting,
// server errors and network timeouts.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return retryableStatus(oaiErr.StatusCode)
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return retryableStatus(antErr.StatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
