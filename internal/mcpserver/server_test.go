package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/summarizer"
)

type fakeService struct {
	err error
}

func (f fakeService) Summarize(_ context.Context, articleURL string) (domain.ArticleDigest, error) {
	if f.err != nil {
		return domain.ArticleDigest{}, f.err
	}
	return domain.ArticleDigest{
		Article: domain.Article{ID: "2401.12345", Title: "Sparse Attention", Source: "arxiv", URL: articleURL, Authors: []string{"A", "B"}},
		Result:  domain.SummaryResult{Summary: "S", KeyConcepts: []string{"attention"}, Structured: true},
	}, nil
}

func (f fakeService) SearchSource(_ context.Context, query, source string, maxResults int) ([]domain.Article, error) {
	return []domain.Article{{ID: query, Source: source}}, f.err
}

func (f fakeService) SearchStored(context.Context, string, int) ([]domain.StoredMatch, error) {
	return nil, f.err
}

func connect(t *testing.T, svc ArticleService) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	server := New(svc, "test", nil)
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func structured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()

	var out T
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func TestListTools(t *testing.T) {
	t.Parallel()

	session := connect(t, fakeService{})
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools returned error: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"summarize-article", "search-articles", "search-summaries"} {
		if !names[want] {
			t.Fatalf("tool %s not registered: %v", want, names)
		}
	}
}

func TestSummarizeArticleTool(t *testing.T) {
	t.Parallel()

	session := connect(t, fakeService{})
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "summarize-article",
		Arguments: map[string]any{"article_url": "https://arxiv.org/abs/2401.12345"},
	})
	if err != nil {
		t.Fatalf("CallTool returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}

	out := structured[SummarizeArticleResponse](t, res)
	if out.Summary != "S" || out.Authors != "A and B" || len(out.KeyConcepts) != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestSummarizeArticleToolFailure(t *testing.T) {
	t.Parallel()

	failure := &summarizer.Failure{Kind: summarizer.KindInsufficientData, Message: "document has no abstract"}
	session := connect(t, fakeService{err: failure})
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "summarize-article",
		Arguments: map[string]any{"article_url": "https://arxiv.org/abs/2401.12345"},
	})
	if err != nil {
		t.Fatalf("CallTool returned error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}
}

func TestSearchArticlesTool(t *testing.T) {
	t.Parallel()

	session := connect(t, fakeService{})
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search-articles",
		Arguments: map[string]any{"query": "attention", "source": "hal"},
	})
	if err != nil {
		t.Fatalf("CallTool returned error: %v", err)
	}

	out := structured[SearchArticlesResponse](t, res)
	if out.Count != 1 || out.Items[0].ID != "attention" || out.Items[0].Source != "hal" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestSearchSummariesTool(t *testing.T) {
	t.Parallel()

	session := connect(t, fakeService{err: domain.ErrFeatureDisabled})
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search-summaries",
		Arguments: map[string]any{"query": "graphs"},
	})
	if err != nil {
		t.Fatalf("CallTool returned error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("disabled vector search must surface as a tool error")
	}
}
