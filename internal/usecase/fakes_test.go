package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
)

type fakeResolver struct {
	articles map[string]domain.Article
	searched []string
}

func (f *fakeResolver) Extract(_ context.Context, articleURL string) (domain.Article, error) {
	article, ok := f.articles[articleURL]
	if !ok {
		return domain.Article{}, domain.ErrUnsupportedURL
	}
	return article, nil
}

func (f *fakeResolver) Search(_ context.Context, source, query string, maxResults int) ([]domain.Article, error) {
	f.searched = append(f.searched, source)
	if source != "arxiv" && source != "hal" {
		return nil, domain.ErrUnsupportedURL
	}
	out := make([]domain.Article, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		out = append(out, domain.Article{ID: query, Source: source})
	}
	return out, nil
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls []domain.Document
	fail  map[string]error
}

func (f *fakeSummarizer) Run(ctx context.Context, doc domain.Document) (domain.SummaryResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.SummaryResult{}, err
	}
	if err := f.fail[doc.Title]; err != nil {
		return domain.SummaryResult{}, err
	}
	return domain.SummaryResult{
		Summary:     "summary of " + doc.Title,
		KeyConcepts: []string{"alpha", "beta"},
		Structured:  true,
	}, nil
}

func (f *fakeSummarizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCache struct {
	entries map[string]domain.SummaryResult
	setErr  error
}

func (f *fakeCache) Get(_ context.Context, key string) (domain.SummaryResult, error) {
	result, ok := f.entries[key]
	if !ok {
		return domain.SummaryResult{}, errors.New("miss")
	}
	return result, nil
}

func (f *fakeCache) Set(_ context.Context, key string, result domain.SummaryResult) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.entries == nil {
		f.entries = map[string]domain.SummaryResult{}
	}
	f.entries[key] = result
	return nil
}

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeRepository struct {
	mu        sync.Mutex
	statuses  map[string]domain.ProcessingStatus
	saved     []domain.ProcessedArticle
	saveErr   error
	matches   []domain.StoredMatch
	lastTopK  int
}

func (f *fakeRepository) AlreadyProcessed(_ context.Context, ids []string, reached domain.ProcessingStatus) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		stored, ok := f.statuses[id]
		if !ok {
			continue
		}
		for _, st := range reached.AndLater() {
			if stored == st {
				out[id] = true
			}
		}
	}
	return out, nil
}

func (f *fakeRepository) SaveProcessed(_ context.Context, article domain.ProcessedArticle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, article)
	if f.statuses == nil {
		f.statuses = map[string]domain.ProcessingStatus{}
	}
	f.statuses[article.Article.Key()] = article.Status
	return nil
}

func (f *fakeRepository) SearchSimilar(_ context.Context, _ []float32, topK int) ([]domain.StoredMatch, error) {
	f.lastTopK = topK
	return f.matches, nil
}

type fakeFullText struct {
	text string
	err  error
}

func (f fakeFullText) FetchFullText(context.Context, domain.Article) (string, error) {
	return f.text, f.err
}

type fakeSource struct {
	articles []domain.Article
	err      error
}

func (f fakeSource) FetchDaily(context.Context, time.Time) ([]domain.Article, error) {
	return f.articles, f.err
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, digest)
	return nil
}

type daySource func(time.Time)

func (f daySource) FetchDaily(_ context.Context, day time.Time) ([]domain.Article, error) {
	f(day)
	return nil, nil
}
