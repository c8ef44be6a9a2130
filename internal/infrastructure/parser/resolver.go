package parser

import (
	"context"
	"fmt"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// Resolver dispatches article URLs and searches to the provider that owns them.
type Resolver struct {
	extractors map[string]ports.ArticleExtractor
	searchers  map[string]ports.ArticleSearcher
}

var _ ports.ArticleResolver = (*Resolver)(nil)

// NewResolver builds an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		extractors: map[string]ports.ArticleExtractor{},
		searchers:  map[string]ports.ArticleSearcher{},
	}
}

// Register adds a provider. Values implementing both interfaces serve both roles.
func (r *Resolver) Register(provider any) {
	if e, ok := provider.(ports.ArticleExtractor); ok {
		r.extractors[e.Source()] = e
	}
	if s, ok := provider.(ports.ArticleSearcher); ok {
		r.searchers[s.Source()] = s
	}
}

// Extract detects the provider of articleURL and resolves it.
func (r *Resolver) Extract(ctx context.Context, articleURL string) (domain.Article, error) {
	source, err := DetectSource(articleURL)
	if err != nil {
		return domain.Article{}, err
	}
	extractor, ok := r.extractors[source]
	if !ok {
		return domain.Article{}, fmt.Errorf("%w: no extractor for %s", ErrUnsupportedURL, source)
	}
	return extractor.Extract(ctx, articleURL)
}

// Search queries a single provider by name.
func (r *Resolver) Search(ctx context.Context, source, query string, maxResults int) ([]domain.Article, error) {
	searcher, ok := r.searchers[source]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrUnsupportedURL, source)
	}
	return searcher.Search(ctx, query, maxResults)
}
