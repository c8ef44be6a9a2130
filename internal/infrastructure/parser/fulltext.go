package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// ArxivHTMLFetcher scrapes the body of the arXiv HTML rendering of a paper.
type ArxivHTMLFetcher struct {
	http    httpGetter
	baseURL string
}

var _ ports.FullTextFetcher = (*ArxivHTMLFetcher)(nil)

// NewArxivHTMLFetcher builds a fetcher; baseURL defaults to https://arxiv.org/html/.
func NewArxivHTMLFetcher(client *http.Client, baseURL, userAgent string) *ArxivHTMLFetcher {
	if baseURL == "" {
		baseURL = "https://arxiv.org/html/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ArxivHTMLFetcher{http: newHTTPGetter(client, userAgent), baseURL: baseURL}
}

// FetchFullText returns the paragraphs of the rendered paper joined by blank
// lines. Only arXiv articles are supported.
func (f *ArxivHTMLFetcher) FetchFullText(ctx context.Context, article domain.Article) (string, error) {
	if article.Source != SourceArxiv || article.ID == "" {
		return "", fmt.Errorf("full text: %w: %s", ErrUnsupportedURL, article.Key())
	}

	body, err := f.http.get(ctx, f.baseURL+article.ID)
	if err != nil {
		return "", fmt.Errorf("full text %s: %w", article.ID, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse html %s: %w", article.ID, err)
	}

	return extractParagraphs(doc), nil
}

func extractParagraphs(doc *goquery.Document) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find(".ltx_page_content").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	root.Find("script, style, nav, .ltx_bibliography, .ltx_authors").Remove()

	var paragraphs []string
	root.Find("h1, h2, h3, h4, p").Each(func(_ int, s *goquery.Selection) {
		if text := clean(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}
