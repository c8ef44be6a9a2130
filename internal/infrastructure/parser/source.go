package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
)

// Source names as stored alongside articles.
const (
	SourceArxiv = "arxiv"
	SourceHAL   = "hal"
)

var (
	// ErrUnsupportedURL is returned for URLs that belong to no known provider.
	ErrUnsupportedURL = domain.ErrUnsupportedURL
	// ErrNotFound is returned when the provider has no such article.
	ErrNotFound = domain.ErrNotFound
)

var (
	arxivIDExpr = regexp.MustCompile(`/(?:abs|pdf|html)/([^?#]+)`)
	halIDExpr   = regexp.MustCompile(`hal-\d+`)
)

// DetectSource maps an article URL to its provider name.
func DetectSource(articleURL string) (string, error) {
	switch {
	case strings.Contains(articleURL, "arxiv.org"):
		return SourceArxiv, nil
	case strings.Contains(articleURL, "hal.archives-ouvertes.fr"), strings.Contains(articleURL, "hal-"):
		return SourceHAL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, articleURL)
	}
}

// ArxivID extracts the identifier from an abs, pdf or html URL. Old-style IDs
// keep their slash (hep-ex/0101001) and a trailing .pdf is dropped.
func ArxivID(articleURL string) (string, error) {
	match := arxivIDExpr.FindStringSubmatch(articleURL)
	if match == nil {
		return "", fmt.Errorf("%w: no arXiv id in %s", ErrUnsupportedURL, articleURL)
	}
	id := strings.TrimSuffix(match[1], "/")
	if strings.HasSuffix(strings.ToLower(id), ".pdf") {
		id = id[:len(id)-len(".pdf")]
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty arXiv id in %s", ErrUnsupportedURL, articleURL)
	}
	return id, nil
}

// HALID extracts the hal-XXXXXXXX identifier.
func HALID(articleURL string) (string, error) {
	id := halIDExpr.FindString(articleURL)
	if id == "" {
		return "", fmt.Errorf("%w: no HAL id in %s", ErrUnsupportedURL, articleURL)
	}
	return id, nil
}

// httpGetter is the shared GET helper of the API clients.
type httpGetter struct {
	client    *http.Client
	userAgent string
}

func newHTTPGetter(client *http.Client, userAgent string) httpGetter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = "research-assistant/1.0"
	}
	return httpGetter{client: client, userAgent: userAgent}
}

func (g httpGetter) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}
