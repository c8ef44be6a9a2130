package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/summarizer"
)

const testURL = "https://arxiv.org/abs/2401.12345"

func testArticle() domain.Article {
	return domain.Article{
		ID:       "2401.12345",
		Source:   "arxiv",
		Title:    "Sparse Attention",
		Abstract: "We study sparse attention.",
		URL:      testURL,
	}
}

func TestSummarizeStoresResult(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{}
	cache := &fakeCache{}
	repo := &fakeRepository{}
	articles := NewArticles(ArticlesDeps{
		Resolver:   &fakeResolver{articles: map[string]domain.Article{testURL: testArticle()}},
		Summarizer: sum,
		FullText:   fakeFullText{text: "Body text."},
		Cache:      cache,
		Embedder:   fakeEmbedder{},
		Repository: repo,
	})

	digest, err := articles.Summarize(context.Background(), "  "+testURL+" ")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if digest.Cached || digest.Result.Summary != "summary of Sparse Attention" {
		t.Fatalf("unexpected digest: %+v", digest)
	}
	if sum.calls[0].FullText != "Body text." {
		t.Fatalf("full text must reach the summarizer, got %+v", sum.calls[0])
	}
	if _, ok := cache.entries["arxiv:2401.12345"]; !ok {
		t.Fatalf("result must be cached by article key")
	}
	if len(repo.saved) != 1 || len(repo.saved[0].Embedding) != 2 || repo.saved[0].Status != domain.StatusSummarized {
		t.Fatalf("unexpected persisted rows: %+v", repo.saved)
	}

	again, err := articles.Summarize(context.Background(), testURL)
	if err != nil {
		t.Fatalf("second Summarize returned error: %v", err)
	}
	if !again.Cached || sum.count() != 1 {
		t.Fatalf("second call must be served from cache, summarizer calls %d", sum.count())
	}
}

func TestSummarizeToleratesOptionalFailures(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{}
	repo := &fakeRepository{saveErr: errors.New("db down")}
	articles := NewArticles(ArticlesDeps{
		Resolver:   &fakeResolver{articles: map[string]domain.Article{testURL: testArticle()}},
		Summarizer: sum,
		FullText:   fakeFullText{err: errors.New("no html render")},
		Cache:      &fakeCache{setErr: errors.New("redis down")},
		Embedder:   fakeEmbedder{err: errors.New("quota")},
		Repository: repo,
	})

	digest, err := articles.Summarize(context.Background(), testURL)
	if err != nil {
		t.Fatalf("optional collaborators must not fail the request: %v", err)
	}
	if digest.Result.Summary == "" {
		t.Fatalf("expected a summary")
	}
	if sum.calls[0].FullText != "" {
		t.Fatalf("full text must stay empty when fetching fails")
	}
}

func TestSummarizeErrors(t *testing.T) {
	t.Parallel()

	failure := &summarizer.Failure{Kind: summarizer.KindInsufficientData, Message: "document has no abstract"}
	articles := NewArticles(ArticlesDeps{
		Resolver:   &fakeResolver{articles: map[string]domain.Article{testURL: testArticle()}},
		Summarizer: &fakeSummarizer{fail: map[string]error{"Sparse Attention": failure}},
	})

	if _, err := articles.Summarize(context.Background(), ""); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := articles.Summarize(context.Background(), "https://example.com/x"); !errors.Is(err, domain.ErrUnsupportedURL) {
		t.Fatalf("expected ErrUnsupportedURL, got %v", err)
	}

	_, err := articles.Summarize(context.Background(), testURL)
	if summarizer.KindOf(err) != summarizer.KindInsufficientData {
		t.Fatalf("summarizer failure must keep its kind, got %v", err)
	}
}

func TestSearchSource(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{}
	articles := NewArticles(ArticlesDeps{Resolver: resolver, Summarizer: &fakeSummarizer{}})

	got, err := articles.SearchSource(context.Background(), "attention", "", 0)
	if err != nil {
		t.Fatalf("SearchSource returned error: %v", err)
	}
	if len(got) != defaultSearchResults || resolver.searched[0] != "arxiv" {
		t.Fatalf("expected %d arxiv results, got %d from %v", defaultSearchResults, len(got), resolver.searched)
	}

	got, err = articles.SearchSource(context.Background(), "attention", "HAL", 1000)
	if err != nil {
		t.Fatalf("SearchSource returned error: %v", err)
	}
	if len(got) != maxSearchResults || got[0].Source != "hal" {
		t.Fatalf("expected capped hal results, got %d", len(got))
	}

	if _, err := articles.SearchSource(context.Background(), " ", "arxiv", 1); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := articles.SearchSource(context.Background(), "x", "pubmed", 1); !errors.Is(err, domain.ErrUnsupportedURL) {
		t.Fatalf("expected ErrUnsupportedURL, got %v", err)
	}
}

func TestSearchStored(t *testing.T) {
	t.Parallel()

	repo := &fakeRepository{matches: []domain.StoredMatch{{ArticleID: "2401.12345", Source: "arxiv"}}}
	articles := NewArticles(ArticlesDeps{
		Resolver:   &fakeResolver{},
		Summarizer: &fakeSummarizer{},
		Embedder:   fakeEmbedder{},
		Repository: repo,
	})

	matches, err := articles.SearchStored(context.Background(), "graph attention", 0)
	if err != nil {
		t.Fatalf("SearchStored returned error: %v", err)
	}
	if len(matches) != 1 || repo.lastTopK != defaultTopK {
		t.Fatalf("unexpected matches %v (topK %d)", matches, repo.lastTopK)
	}

	disabled := NewArticles(ArticlesDeps{Resolver: &fakeResolver{}, Summarizer: &fakeSummarizer{}})
	if _, err := disabled.SearchStored(context.Background(), "x", 3); !errors.Is(err, domain.ErrFeatureDisabled) {
		t.Fatalf("expected ErrFeatureDisabled, got %v", err)
	}
}
