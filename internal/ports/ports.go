package ports

import (
	"context"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
)

// TextCompleter is the opaque language-model capability: prompt in, text out.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ArticleSource pulls fresh articles from configured listing pages.
type ArticleSource interface {
	FetchDaily(ctx context.Context, day time.Time) ([]domain.Article, error)
}

// ArticleExtractor resolves a single article URL into its metadata.
type ArticleExtractor interface {
	Source() string
	Extract(ctx context.Context, articleURL string) (domain.Article, error)
}

// ArticleSearcher runs a keyword search against a remote provider.
type ArticleSearcher interface {
	Source() string
	Search(ctx context.Context, query string, maxResults int) ([]domain.Article, error)
}

// FullTextFetcher downloads the body text of an article when available.
type FullTextFetcher interface {
	FetchFullText(ctx context.Context, article domain.Article) (string, error)
}

// ArticleRepository persists summaries for deduplication and similarity search.
type ArticleRepository interface {
	AlreadyProcessed(ctx context.Context, ids []string, reached domain.ProcessingStatus) (map[string]bool, error)
	SaveProcessed(ctx context.Context, article domain.ProcessedArticle) error
	SearchSimilar(ctx context.Context, vector []float32, topK int) ([]domain.StoredMatch, error)
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SummaryCache memoizes summaries by article key.
type SummaryCache interface {
	Get(ctx context.Context, key string) (domain.SummaryResult, error)
	Set(ctx context.Context, key string, result domain.SummaryResult) error
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// DocumentSummarizer runs the map-reduce summarization of one document.
type DocumentSummarizer interface {
	Run(ctx context.Context, doc domain.Document) (domain.SummaryResult, error)
}

// ArticleResolver routes article URLs and searches to the owning provider.
type ArticleResolver interface {
	Extract(ctx context.Context, articleURL string) (domain.Article, error)
	Search(ctx context.Context, source, query string, maxResults int) ([]domain.Article, error)
}
