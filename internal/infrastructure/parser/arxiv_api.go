package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

type atomFeed struct {
	XMLName      xml.Name    `xml:"feed"`
	TotalResults int         `xml:"totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Updated   string       `xml:"updated"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

// ArxivClient resolves and searches articles through the arXiv Atom API.
type ArxivClient struct {
	http    httpGetter
	baseURL string
}

var (
	_ ports.ArticleExtractor = (*ArxivClient)(nil)
	_ ports.ArticleSearcher  = (*ArxivClient)(nil)
)

// NewArxivClient wires an HTTP client against the export API endpoint.
func NewArxivClient(client *http.Client, baseURL, userAgent string) *ArxivClient {
	if baseURL == "" {
		baseURL = "http://export.arxiv.org/api/query"
	}
	return &ArxivClient{http: newHTTPGetter(client, userAgent), baseURL: baseURL}
}

// Source identifies the provider.
func (a *ArxivClient) Source() string {
	return SourceArxiv
}

// Extract resolves an abs/pdf URL into article metadata.
func (a *ArxivClient) Extract(ctx context.Context, articleURL string) (domain.Article, error) {
	id, err := ArxivID(articleURL)
	if err != nil {
		return domain.Article{}, err
	}
	return a.ByID(ctx, id)
}

// ByID fetches a single article.
func (a *ArxivClient) ByID(ctx context.Context, id string) (domain.Article, error) {
	query := url.Values{}
	query.Set("id_list", id)
	query.Set("max_results", "1")

	feed, err := a.fetch(ctx, query)
	if err != nil {
		return domain.Article{}, fmt.Errorf("arxiv %s: %w", id, err)
	}
	if len(feed.Entries) == 0 {
		return domain.Article{}, fmt.Errorf("arxiv %s: %w", id, ErrNotFound)
	}

	entry := feed.Entries[0]
	if strings.TrimSpace(entry.Title) == "Error" {
		return domain.Article{}, fmt.Errorf("arxiv %s: api error: %s", id, clean(entry.Summary))
	}

	article := entry.toArticle()
	if article.ID == "" {
		article.ID = id
	}
	return article, nil
}

// Search runs a relevance-sorted query. Error entries are skipped.
func (a *ArxivClient) Search(ctx context.Context, q string, maxResults int) ([]domain.Article, error) {
	query := url.Values{}
	query.Set("search_query", q)
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	feed, err := a.fetch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("arxiv search %q: %w", q, err)
	}

	articles := make([]domain.Article, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if strings.TrimSpace(entry.Title) == "Error" {
			continue
		}
		article := entry.toArticle()
		if article.ID == "" {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (a *ArxivClient) fetch(ctx context.Context, query url.Values) (atomFeed, error) {
	body, err := a.http.get(ctx, a.baseURL+"?"+query.Encode())
	if err != nil {
		return atomFeed{}, err
	}
	defer body.Close()

	var feed atomFeed
	if err := xml.NewDecoder(body).Decode(&feed); err != nil {
		return atomFeed{}, fmt.Errorf("decode atom feed: %w", err)
	}
	return feed, nil
}

func (e atomEntry) toArticle() domain.Article {
	article := domain.Article{
		Title:    clean(e.Title),
		Abstract: clean(e.Summary),
		Source:   SourceArxiv,
	}
	if _, after, ok := strings.Cut(e.ID, "/abs/"); ok {
		article.ID = strings.TrimSpace(after)
	}

	for _, author := range e.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			article.Authors = append(article.Authors, name)
		}
	}

	for _, link := range e.Links {
		switch {
		case link.Title == "pdf" && link.Rel == "related":
			article.PDFURL = link.Href
		case link.Rel == "alternate" && link.Type == "text/html":
			article.URL = link.Href
		}
	}
	if article.URL == "" && article.ID != "" {
		article.URL = "https://arxiv.org/abs/" + article.ID
	}

	if published, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		article.PublishedAt = published
	}
	return article
}

// clean collapses the hard line wraps of Atom text fields.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
