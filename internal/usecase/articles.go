package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

const (
	defaultSearchResults = 10
	maxSearchResults     = 100
	defaultTopK          = 5
)

// ArticlesDeps wires the driven adapters of the on-demand use cases. Only
// Resolver and Summarizer are required.
type ArticlesDeps struct {
	Resolver   ports.ArticleResolver
	Summarizer ports.DocumentSummarizer
	FullText   ports.FullTextFetcher
	Cache      ports.SummaryCache
	Embedder   ports.Embedder
	Repository ports.ArticleRepository
	Logger     *slog.Logger
}

// Articles serves single-article summarization and search requests.
type Articles struct {
	resolver   ports.ArticleResolver
	summarizer ports.DocumentSummarizer
	fullText   ports.FullTextFetcher
	cache      ports.SummaryCache
	embedder   ports.Embedder
	repository ports.ArticleRepository
	logger     *slog.Logger
}

// NewArticles constructs the use case.
func NewArticles(deps ArticlesDeps) *Articles {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Articles{
		resolver:   deps.Resolver,
		summarizer: deps.Summarizer,
		fullText:   deps.FullText,
		cache:      deps.Cache,
		embedder:   deps.Embedder,
		repository: deps.Repository,
		logger:     logger,
	}
}

// Summarize resolves articleURL, runs the summarizer and stores the result.
// Summarizer failures are returned unchanged so callers can inspect their
// kind. Cache, embedding and storage problems only produce warnings.
func (a *Articles) Summarize(ctx context.Context, articleURL string) (domain.ArticleDigest, error) {
	articleURL = strings.TrimSpace(articleURL)
	if articleURL == "" {
		return domain.ArticleDigest{}, fmt.Errorf("%w: article url is required", domain.ErrInvalidQuery)
	}

	article, err := a.resolver.Extract(ctx, articleURL)
	if err != nil {
		return domain.ArticleDigest{}, fmt.Errorf("extract %s: %w", articleURL, err)
	}
	logger := a.logger.With("article", article.Key())

	if cached, ok := a.cached(ctx, logger, article); ok {
		return domain.ArticleDigest{Article: article, Result: cached, Cached: true}, nil
	}

	if a.fullText != nil && article.FullText == "" {
		text, err := a.fullText.FetchFullText(ctx, article)
		if err != nil {
			logger.Warn("full text unavailable, summarizing title and abstract", "error", err)
		} else {
			article.FullText = text
		}
	}

	started := time.Now()
	result, err := a.summarizer.Run(ctx, article.Document())
	if err != nil {
		return domain.ArticleDigest{}, err
	}
	logger.Info("article summarized", "duration", time.Since(started).String(), "key_concepts", len(result.KeyConcepts), "structured", result.Structured)

	if a.cache != nil {
		if err := a.cache.Set(ctx, article.Key(), result); err != nil {
			logger.Warn("cache store failed", "error", err)
		}
	}
	a.persist(ctx, logger, article, result)

	return domain.ArticleDigest{Article: article, Result: result}, nil
}

func (a *Articles) cached(ctx context.Context, logger *slog.Logger, article domain.Article) (domain.SummaryResult, bool) {
	if a.cache == nil {
		return domain.SummaryResult{}, false
	}
	result, err := a.cache.Get(ctx, article.Key())
	if err != nil {
		logger.Debug("summary cache miss", "error", err)
		return domain.SummaryResult{}, false
	}
	logger.Info("summary served from cache")
	return result, true
}

func (a *Articles) persist(ctx context.Context, logger *slog.Logger, article domain.Article, result domain.SummaryResult) {
	if a.repository == nil {
		return
	}

	var vector []float32
	if a.embedder != nil {
		var err error
		vector, err = a.embedder.Embed(ctx, article.Title+"\n\n"+result.Summary)
		if err != nil {
			logger.Warn("embedding failed, storing summary without vector", "error", err)
		}
	}

	err := a.repository.SaveProcessed(ctx, domain.ProcessedArticle{
		Article:   article,
		Summary:   result,
		Embedding: vector,
		Status:    domain.StatusSummarized,
	})
	if err != nil {
		logger.Warn("persist summary failed", "error", err)
	}
}

// SearchSource queries a remote provider. maxResults defaults to 10 and is
// capped at 100.
func (a *Articles) SearchSource(ctx context.Context, query, source string, maxResults int) ([]domain.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if source == "" {
		source = "arxiv"
	}
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	maxResults = min(maxResults, maxSearchResults)

	articles, err := a.resolver.Search(ctx, strings.ToLower(source), query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", source, err)
	}
	return articles, nil
}

// SearchStored embeds query and returns the nearest stored summaries.
func (a *Articles) SearchStored(ctx context.Context, query string, topK int) ([]domain.StoredMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if a.embedder == nil || a.repository == nil {
		return nil, fmt.Errorf("%w: vector search needs an embedder and a database", domain.ErrFeatureDisabled)
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := a.repository.SearchSimilar(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search stored: %w", err)
	}
	return matches, nil
}
