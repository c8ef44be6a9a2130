package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

const (
	halUnknownTitle = "Unknown Title"
	halNoAbstract   = "No abstract available"
	halFacetSep     = "_FacetSep_"
)

type halResponse struct {
	Response struct {
		NumFound int      `json:"numFound"`
		Docs     []halDoc `json:"docs"`
	} `json:"response"`
}

type halDoc struct {
	DocID           json.Number `json:"docid"`
	HalID           string      `json:"halId_s"`
	Title           []string    `json:"title_s"`
	Abstract        []string    `json:"abstract_s"`
	AuthorFacets    []string    `json:"authIdHalFullName_s"`
	PublicationYear int         `json:"publicationDateY_i"`
	Files           []string    `json:"files_s"`
	URI             string      `json:"uri_s"`
}

// HALClient resolves and searches articles through the HAL Solr API.
type HALClient struct {
	http    httpGetter
	baseURL string
}

var (
	_ ports.ArticleExtractor = (*HALClient)(nil)
	_ ports.ArticleSearcher  = (*HALClient)(nil)
)

// NewHALClient wires an HTTP client against the search endpoint.
func NewHALClient(client *http.Client, baseURL, userAgent string) *HALClient {
	if baseURL == "" {
		baseURL = "https://api.archives-ouvertes.fr/search/"
	}
	return &HALClient{http: newHTTPGetter(client, userAgent), baseURL: baseURL}
}

// Source identifies the provider.
func (h *HALClient) Source() string {
	return SourceHAL
}

// Extract resolves a HAL URL into article metadata.
func (h *HALClient) Extract(ctx context.Context, articleURL string) (domain.Article, error) {
	id, err := HALID(articleURL)
	if err != nil {
		return domain.Article{}, err
	}
	return h.ByID(ctx, id)
}

// ByID fetches a single document by its hal-XXXX identifier.
func (h *HALClient) ByID(ctx context.Context, id string) (domain.Article, error) {
	if !strings.HasPrefix(id, "hal-") {
		id = "hal-" + id
	}

	query := url.Values{}
	query.Set("q", "docid:"+id)
	query.Set("fl", "*")
	query.Set("wt", "json")

	resp, err := h.fetch(ctx, query)
	if err != nil {
		return domain.Article{}, fmt.Errorf("hal %s: %w", id, err)
	}
	if resp.Response.NumFound == 0 || len(resp.Response.Docs) == 0 {
		return domain.Article{}, fmt.Errorf("hal %s: %w", id, ErrNotFound)
	}

	article := resp.Response.Docs[0].toArticle()
	article.ID = id
	return article, nil
}

// Search runs a score-sorted query.
func (h *HALClient) Search(ctx context.Context, q string, maxResults int) ([]domain.Article, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("rows", strconv.Itoa(maxResults))
	query.Set("sort", "score desc")
	query.Set("fl", "docid,halId_s,title_s,abstract_s,uri_s,authIdHalFullName_s,publicationDateY_i")
	query.Set("wt", "json")

	resp, err := h.fetch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("hal search %q: %w", q, err)
	}

	articles := make([]domain.Article, 0, len(resp.Response.Docs))
	for _, doc := range resp.Response.Docs {
		articles = append(articles, doc.toArticle())
	}
	return articles, nil
}

func (h *HALClient) fetch(ctx context.Context, query url.Values) (halResponse, error) {
	body, err := h.http.get(ctx, h.baseURL+"?"+query.Encode())
	if err != nil {
		return halResponse{}, err
	}
	defer body.Close()

	var resp halResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return halResponse{}, fmt.Errorf("decode hal response: %w", err)
	}
	return resp, nil
}

func (d halDoc) toArticle() domain.Article {
	article := domain.Article{
		ID:       d.HalID,
		Title:    halUnknownTitle,
		Abstract: halNoAbstract,
		URL:      d.URI,
		Source:   SourceHAL,
	}
	if article.ID == "" {
		article.ID = d.DocID.String()
	}
	if len(d.Title) > 0 {
		article.Title = d.Title[0]
	}
	if len(d.Abstract) > 0 {
		article.Abstract = d.Abstract[0]
	}

	for _, facet := range d.AuthorFacets {
		if _, name, ok := strings.Cut(facet, halFacetSep); ok && name != "" {
			article.Authors = append(article.Authors, name)
		}
	}

	for _, file := range d.Files {
		if strings.HasSuffix(file, ".pdf") {
			article.PDFURL = file
			break
		}
	}

	if d.PublicationYear > 0 {
		article.PublishedAt = time.Date(d.PublicationYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return article
}
