package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/summarizer"
)

type fakeService struct {
	digest  domain.ArticleDigest
	err     error
	query   string
	source  string
	max     int
	matches []domain.StoredMatch
}

func (f *fakeService) Summarize(_ context.Context, articleURL string) (domain.ArticleDigest, error) {
	if articleURL == "panic" {
		panic("boom")
	}
	return f.digest, f.err
}

func (f *fakeService) SearchSource(_ context.Context, query, source string, maxResults int) ([]domain.Article, error) {
	f.query, f.source, f.max = query, source, maxResults
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Article{{ID: "1", Title: "T", Abstract: "A", Source: source, Authors: []string{"X", "Y"}}}, nil
}

func (f *fakeService) SearchStored(_ context.Context, query string, topK int) ([]domain.StoredMatch, error) {
	f.query, f.max = query, topK
	return f.matches, f.err
}

func serve(t *testing.T, svc ArticleService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	NewServer(":0", svc, nil).Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeService{}, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "healthy" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected generated request id, got %q", rec.Header().Get(requestIDHeader))
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, id)

	rec := serve(t, &fakeService{}, req)
	if rec.Header().Get(requestIDHeader) != id {
		t.Fatalf("expected request id %s, got %s", id, rec.Header().Get(requestIDHeader))
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	svc := &fakeService{digest: domain.ArticleDigest{
		Article: domain.Article{ID: "2401.12345", Title: "Sparse Attention", Source: "arxiv", Authors: []string{"A", "B", "C"}},
		Result:  domain.SummaryResult{Summary: "S", Structured: true},
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"article_url":"https://arxiv.org/abs/2401.12345"}`))

	rec := serve(t, svc, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "success" || body["summary"] != "S" {
		t.Fatalf("unexpected body: %v", body)
	}
	if concepts, ok := body["key_concepts"].([]any); !ok || len(concepts) != 0 {
		t.Fatalf("key_concepts must be an empty array, got %v", body["key_concepts"])
	}
	article := body["article"].(map[string]any)
	if article["authors"] != "A et al." || article["id"] != "2401.12345" {
		t.Fatalf("unexpected article: %v", article)
	}
}

func TestSummarizeBadRequests(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{`not json`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(payload))
		rec := serve(t, &fakeService{}, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: unexpected status %d", payload, rec.Code)
		}
	}

	rec := serve(t, &fakeService{}, httptest.NewRequest(http.MethodGet, "/api/summarize", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSummarizeErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{err: &summarizer.Failure{Kind: summarizer.KindInsufficientData, Message: "no abstract"}, status: http.StatusUnprocessableEntity, kind: "insufficient_data"},
		{err: &summarizer.Failure{Kind: summarizer.KindEmptyText, Message: "blank"}, status: http.StatusUnprocessableEntity, kind: "empty_text"},
		{err: &summarizer.Failure{Kind: summarizer.KindMapStage, Message: "chunk"}, status: http.StatusBadGateway, kind: "map_stage_error"},
		{err: &summarizer.Failure{Kind: summarizer.KindReduceStage, Message: "synth"}, status: http.StatusBadGateway, kind: "reduce_stage_error"},
		{err: &summarizer.Failure{Kind: summarizer.KindCancelled, Message: "stop"}, status: http.StatusServiceUnavailable, kind: "cancelled"},
		{err: &summarizer.Failure{Kind: summarizer.KindConfiguration, Message: "cfg"}, status: http.StatusInternalServerError, kind: "configuration_error"},
		{err: fmt.Errorf("extract: %w", domain.ErrUnsupportedURL), status: http.StatusBadRequest, kind: "unsupported_source"},
		{err: fmt.Errorf("extract: %w", domain.ErrNotFound), status: http.StatusNotFound, kind: "not_found"},
		{err: errors.New("connection reset"), status: http.StatusBadGateway, kind: "upstream_error"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"article_url":"u"}`))
		rec := serve(t, &fakeService{err: tt.err}, req)
		if rec.Code != tt.status {
			t.Fatalf("%v: status %d, want %d", tt.err, rec.Code, tt.status)
		}
		body := decode(t, rec)
		if body["status"] != "error" || body["kind"] != tt.kind || body["error"] == "" {
			t.Fatalf("%v: unexpected body %v", tt.err, body)
		}
	}
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"article_url":"panic"}`))
	rec := serve(t, &fakeService{}, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/search?q=attention&source=hal&max_results=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if svc.query != "attention" || svc.source != "hal" || svc.max != 3 {
		t.Fatalf("unexpected call: %+v", svc)
	}
	body := decode(t, rec)
	results := body["results"].([]any)
	first := results[0].(map[string]any)
	if body["count"] != float64(1) || first["abstract"] != "A" || first["authors"] != "X and Y" {
		t.Fatalf("unexpected body: %v", body)
	}

	rec = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/search?q=x&max_results=ten", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad max_results, got %d", rec.Code)
	}

	rec = serve(t, &fakeService{err: fmt.Errorf("search: %w", domain.ErrInvalidQuery)}, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing query, got %d", rec.Code)
	}
}

func TestSearchStored(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/articles/search?q=graphs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if svc.max != 5 {
		t.Fatalf("top_k must default to 5, got %d", svc.max)
	}
	if body := decode(t, rec); body["count"] != float64(0) {
		t.Fatalf("unexpected body: %v", body)
	}

	rec = serve(t, &fakeService{err: domain.ErrFeatureDisabled}, httptest.NewRequest(http.MethodGet, "/api/articles/search?q=graphs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeService{}, httptest.NewRequest(http.MethodOptions, "/api/summarize", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
