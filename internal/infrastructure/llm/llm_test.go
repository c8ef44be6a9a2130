package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/Hamza-cpp/research-assistant/internal/config"
)

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "FINAL SUMMARY: ok"}}]
}`

func newChatServer(t *testing.T, failures int32, failStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "test-model" || len(body.Messages) == 0 || body.Messages[len(body.Messages)-1].Content != "hello" {
			t.Errorf("unexpected request body: %s", raw)
		}

		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(chatCompletionBody))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    config.ProviderOpenAI,
		BaseURL:     baseURL,
		Model:       "test-model",
		APIKey:      "test-key",
		Temperature: 0.2,
		MaxTokens:   256,
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	server, calls := newChatServer(t, 0, 0)
	client := NewOpenAIClient(testLLMConfig(server.URL))

	out, err := client.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if out != "FINAL SUMMARY: ok" {
		t.Fatalf("unexpected completion: %q", out)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one request, got %d", calls.Load())
	}
}

func TestRetryRecoversFromRateLimit(t *testing.T) {
	t.Parallel()

	server, calls := newChatServer(t, 2, http.StatusTooManyRequests)
	retrying := &Retrying{
		next:            NewOpenAIClient(testLLMConfig(server.URL)),
		maxTries:        4,
		initialInterval: time.Millisecond,
		maxInterval:     5 * time.Millisecond,
		logger:          slog.New(slog.DiscardHandler),
	}

	out, err := retrying.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if out != "FINAL SUMMARY: ok" {
		t.Fatalf("unexpected completion: %q", out)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	server, calls := newChatServer(t, 10, http.StatusBadRequest)
	retrying := &Retrying{
		next:            NewOpenAIClient(testLLMConfig(server.URL)),
		maxTries:        4,
		initialInterval: time.Millisecond,
		maxInterval:     5 * time.Millisecond,
		logger:          slog.New(slog.DiscardHandler),
	}

	if _, err := retrying.Complete(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for bad request")
	}
	if calls.Load() != 1 {
		t.Fatalf("bad request must not be retried, got %d requests", calls.Load())
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryable(t *testing.T) {
	t.Parallel()

	if Retryable(context.Canceled) || Retryable(context.DeadlineExceeded) {
		t.Fatalf("context errors must not be retried")
	}
	if Retryable(errors.New("boom")) {
		t.Fatalf("plain errors must not be retried")
	}
	if !Retryable(timeoutErr{}) {
		t.Fatalf("network timeouts must be retried")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), `"max_tokens":256`) || !strings.Contains(string(raw), "hello") {
			t.Errorf("unexpected request body: %s", raw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
		  "content": [{"type": "text", "text": "part one, "}, {"type": "text", "text": "part two"}],
		  "stop_reason": "end_turn",
		  "usage": {"input_tokens": 3, "output_tokens": 4}
		}`))
	}))
	defer server.Close()

	cfg := testLLMConfig(server.URL)
	cfg.Provider = config.ProviderAnthropic
	client := NewAnthropicClient(cfg)

	out, err := client.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if out != "part one, part two" {
		t.Fatalf("unexpected completion: %q", out)
	}
}

type echoCompleter struct{ calls atomic.Int32 }

func (e *echoCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	e.calls.Add(1)
	return prompt, nil
}

func TestRateLimitedEstimatesAndDelegates(t *testing.T) {
	t.Parallel()

	next := &echoCompleter{}
	limited := &RateLimited{
		next:         next,
		limiter:      rate.NewLimiter(rate.Limit(1000), 50),
		outputTokens: 10,
	}

	if got := limited.EstimateTokens(strings.Repeat("a", 40)); got != 20 {
		t.Fatalf("unexpected estimate: %d", got)
	}

	// prompt estimate exceeds burst and must be clamped rather than rejected
	out, err := limited.Complete(context.Background(), strings.Repeat("b", 1000))
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(out) != 1000 || next.calls.Load() != 1 {
		t.Fatalf("expected delegation, got %d calls", next.calls.Load())
	}
}

func TestRateLimitedHonoursCancellation(t *testing.T) {
	t.Parallel()

	limited := &RateLimited{
		next:    &echoCompleter{},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := limited.Complete(ctx, "hello"); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestNewRejectsMissingKeyAndUnknownProvider(t *testing.T) {
	t.Parallel()

	if _, err := New(config.LLMConfig{Provider: config.ProviderGroq}, nil); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	if _, err := New(config.LLMConfig{Provider: "mystery", APIKey: "k"}, nil); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestWithRateLimitClampsBurst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		tps          float64
		burst        int
		outputTokens int
		want         int
	}{
		{name: "fractional rate", tps: 0.5, want: 1},
		{name: "output budget above rate", tps: 10, outputTokens: 256, want: 256},
		{name: "explicit burst kept", tps: 10, burst: 1000, outputTokens: 256, want: 1000},
		{name: "rate as burst", tps: 2000, outputTokens: 256, want: 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limited := WithRateLimit(&echoCompleter{}, tt.tps, tt.burst, "no-such-encoding", tt.outputTokens, nil)
			if got := limited.limiter.Burst(); got != tt.want {
				t.Fatalf("burst: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWithRateLimitThrottlesBelowOneTokenPerSecond(t *testing.T) {
	t.Parallel()

	next := &echoCompleter{}
	limited := WithRateLimit(next, 0.5, 0, "no-such-encoding", 0, nil)

	if _, err := limited.Complete(context.Background(), "first"); err != nil {
		t.Fatalf("first call must pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := limited.Complete(ctx, "second"); err == nil {
		t.Fatalf("second call must wait for the bucket to refill")
	}
	if next.calls.Load() != 1 {
		t.Fatalf("throttled call must not reach the provider, got %d calls", next.calls.Load())
	}
}
