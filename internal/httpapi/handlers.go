package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/summarizer"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	svc    ArticleService
	logger *slog.Logger
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
}

type articleView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Authors     string     `json:"authors"`
	AuthorList  []string   `json:"author_list"`
	Abstract    string     `json:"abstract,omitempty"`
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	PDFURL      string     `json:"pdf_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type summarizeRequest struct {
	ArticleURL string `json:"article_url"`
}

type summarizeResponse struct {
	Status      string      `json:"status"`
	Article     articleView `json:"article"`
	Summary     string      `json:"summary"`
	KeyConcepts []string    `json:"key_concepts"`
	Structured  bool        `json:"structured"`
	Cached      bool        `json:"cached"`
}

type searchResponse struct {
	Status  string        `json:"status"`
	Count   int           `json:"count"`
	Results []articleView `json:"results"`
}

type storedSearchResponse struct {
	Status  string               `json:"status"`
	Count   int                  `json:"count"`
	Results []domain.StoredMatch `json:"results"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Research Assistant API is running",
	})
}

func (h *handlers) summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "invalid JSON body: " + err.Error(), Kind: "invalid_request"})
		return
	}
	if req.ArticleURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "article_url is required", Kind: "invalid_request"})
		return
	}

	digest, err := h.svc.Summarize(r.Context(), req.ArticleURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	concepts := digest.Result.KeyConcepts
	if concepts == nil {
		concepts = []string{}
	}
	writeJSON(w, http.StatusOK, summarizeResponse{
		Status:      "success",
		Article:     toView(digest.Article, false),
		Summary:     digest.Result.Summary,
		KeyConcepts: concepts,
		Structured:  digest.Result.Structured,
		Cached:      digest.Cached,
	})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxResults, err := intParam(q.Get("max_results"), 10)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "max_results must be an integer", Kind: "invalid_request"})
		return
	}

	articles, err := h.svc.SearchSource(r.Context(), q.Get("q"), q.Get("source"), maxResults)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, article := range articles {
		views = append(views, toView(article, true))
	}
	writeJSON(w, http.StatusOK, searchResponse{Status: "success", Count: len(views), Results: views})
}

func (h *handlers) searchStored(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topK, err := intParam(q.Get("top_k"), 5)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "top_k must be an integer", Kind: "invalid_request"})
		return
	}

	matches, err := h.svc.SearchStored(r.Context(), q.Get("q"), topK)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if matches == nil {
		matches = []domain.StoredMatch{}
	}
	writeJSON(w, http.StatusOK, storedSearchResponse{Status: "success", Count: len(matches), Results: matches})
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	h.logger.Warn("request failed", "request_id", RequestIDFrom(r.Context()), "path", r.URL.Path, "kind", kind, "error", err)
	writeJSON(w, status, errorResponse{Status: "error", Error: err.Error(), Kind: kind})
}

// classify maps use case errors to an HTTP status and a stable kind string.
func classify(err error) (int, string) {
	if kind := summarizer.KindOf(err); kind != "" {
		switch kind {
		case summarizer.KindInsufficientData, summarizer.KindEmptyText:
			return http.StatusUnprocessableEntity, string(kind)
		case summarizer.KindMapStage, summarizer.KindReduceStage:
			return http.StatusBadGateway, string(kind)
		case summarizer.KindCancelled:
			return http.StatusServiceUnavailable, string(kind)
		default:
			return http.StatusInternalServerError, string(kind)
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrUnsupportedURL):
		return http.StatusBadRequest, "unsupported_source"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrFeatureDisabled):
		return http.StatusServiceUnavailable, "feature_disabled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

func toView(article domain.Article, withAbstract bool) articleView {
	view := articleView{
		ID:         article.ID,
		Title:      article.Title,
		Authors:    domain.FormatAuthors(article.Authors),
		AuthorList: article.Authors,
		Source:     article.Source,
		URL:        article.URL,
		PDFURL:     article.PDFURL,
	}
	if view.AuthorList == nil {
		view.AuthorList = []string{}
	}
	if withAbstract {
		view.Abstract = article.Abstract
	}
	if !article.PublishedAt.IsZero() {
		published := article.PublishedAt
		view.PublishedAt = &published
	}
	return view
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
