// Package mcpserver exposes the article use cases as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/summarizer"
)

// ArticleService is the use case surface behind the tools.
type ArticleService interface {
	Summarize(ctx context.Context, articleURL string) (domain.ArticleDigest, error)
	SearchSource(ctx context.Context, query, source string, maxResults int) ([]domain.Article, error)
	SearchStored(ctx context.Context, query string, topK int) ([]domain.StoredMatch, error)
}

type SummarizeArticleQuery struct {
	ArticleURL string `json:"article_url" jsonschema:"arXiv or HAL article URL, e.g. https://arxiv.org/abs/2401.12345"`
}

type SummarizeArticleResponse struct {
	ArticleID   string   `json:"article_id"`
	Title       string   `json:"title"`
	Authors     string   `json:"authors"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	Summary     string   `json:"summary"`
	KeyConcepts []string `json:"key_concepts"`
	Structured  bool     `json:"structured"`
	Cached      bool     `json:"cached"`
}

type SearchArticlesQuery struct {
	Query      string `json:"query" jsonschema:"provider search query, e.g. all:transformers"`
	Source     string `json:"source,omitempty" jsonschema:"arxiv (default) or hal"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results, default 10"`
}

type SearchArticlesResponse struct {
	Items []ArticleItem `json:"items"`
	Count int           `json:"count"`
}

type ArticleItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Abstract string `json:"abstract"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

type SearchSummariesQuery struct {
	Query string `json:"query" jsonschema:"free text matched against stored summaries"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of matches, default 5"`
}

type SearchSummariesResponse struct {
	Matches []SummaryMatch `json:"matches"`
	Count   int            `json:"count"`
}

type SummaryMatch struct {
	ArticleID   string   `json:"article_id"`
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	KeyConcepts []string `json:"key_concepts"`
	Distance    float64  `json:"distance"`
	StoredAt    string   `json:"stored_at"`
}

func tool[T any](name, description string) *mcp.Tool {
	inputschema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{Name: name, Description: description, InputSchema: inputschema}
}

// New builds the MCP server with all tools registered.
func New(svc ArticleService, version string, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "research-assistant", Version: version}, nil)

	mcp.AddTool(server, tool[SummarizeArticleQuery]("summarize-article",
		"Summarize a research article from arXiv or HAL. Returns a five point summary and the key concepts."),
		func(ctx context.Context, _ *mcp.CallToolRequest, query SummarizeArticleQuery) (*mcp.CallToolResult, *SummarizeArticleResponse, error) {
			logger.Info("summarize-article tool called", "url", query.ArticleURL)
			digest, err := svc.Summarize(ctx, query.ArticleURL)
			if err != nil {
				if kind := summarizer.KindOf(err); kind != "" {
					return nil, nil, fmt.Errorf("summarization failed (%s): %w", kind, err)
				}
				return nil, nil, err
			}
			concepts := digest.Result.KeyConcepts
			if concepts == nil {
				concepts = []string{}
			}
			return nil, &SummarizeArticleResponse{
				ArticleID:   digest.Article.ID,
				Title:       digest.Article.Title,
				Authors:     domain.FormatAuthors(digest.Article.Authors),
				Source:      digest.Article.Source,
				URL:         digest.Article.URL,
				Summary:     digest.Result.Summary,
				KeyConcepts: concepts,
				Structured:  digest.Result.Structured,
				Cached:      digest.Cached,
			}, nil
		})

	mcp.AddTool(server, tool[SearchArticlesQuery]("search-articles",
		"Search arXiv or HAL for articles. Use the returned URLs with summarize-article."),
		func(ctx context.Context, _ *mcp.CallToolRequest, query SearchArticlesQuery) (*mcp.CallToolResult, *SearchArticlesResponse, error) {
			logger.Info("search-articles tool called", "query", query.Query, "source", query.Source)
			articles, err := svc.SearchSource(ctx, query.Query, query.Source, query.MaxResults)
			if err != nil {
				return nil, nil, err
			}
			items := make([]ArticleItem, 0, len(articles))
			for _, a := range articles {
				items = append(items, ArticleItem{
					ID:       a.ID,
					Title:    a.Title,
					Authors:  domain.FormatAuthors(a.Authors),
					Abstract: a.Abstract,
					Source:   a.Source,
					URL:      a.URL,
				})
			}
			return nil, &SearchArticlesResponse{Items: items, Count: len(items)}, nil
		})

	mcp.AddTool(server, tool[SearchSummariesQuery]("search-summaries",
		"Find previously summarized articles closest to a free text query."),
		func(ctx context.Context, _ *mcp.CallToolRequest, query SearchSummariesQuery) (*mcp.CallToolResult, *SearchSummariesResponse, error) {
			logger.Info("search-summaries tool called", "query", query.Query)
			matches, err := svc.SearchStored(ctx, query.Query, query.TopK)
			if err != nil {
				return nil, nil, err
			}
			out := make([]SummaryMatch, 0, len(matches))
			for _, m := range matches {
				if m.KeyConcepts == nil {
					m.KeyConcepts = []string{}
				}
				out = append(out, SummaryMatch{
					ArticleID:   m.ArticleID,
					Source:      m.Source,
					Title:       m.Title,
					Summary:     m.Summary,
					KeyConcepts: m.KeyConcepts,
					Distance:    m.Distance,
					StoredAt:    m.CreatedAt.Format(time.RFC3339),
				})
			}
			return nil, &SearchSummariesResponse{Matches: out, Count: len(out)}, nil
		})

	return server
}
