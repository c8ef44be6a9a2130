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

// WatchDeps wires the driven adapters of the daily watch.
type WatchDeps struct {
	Source     ports.ArticleSource
	Summarizer ports.DocumentSummarizer
	Repository ports.ArticleRepository
	Embedder   ports.Embedder
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Watch implements the daily ingestion workflow: scan listings, summarize
// new articles, persist them and publish a digest.
type Watch struct {
	source     ports.ArticleSource
	summarizer ports.DocumentSummarizer
	repository ports.ArticleRepository
	embedder   ports.Embedder
	notifier   ports.Notifier
	logger     *slog.Logger
}

// NewWatch constructs the orchestration component.
func NewWatch(deps WatchDeps) *Watch {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watch{
		source:     deps.Source,
		summarizer: deps.Summarizer,
		repository: deps.Repository,
		embedder:   deps.Embedder,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// DayReport describes one ProcessDay run.
type DayReport struct {
	Fetched    int
	Skipped    int
	Failed     int
	Summarized []domain.ArticleDigest
	Delivered  bool
}

// ProcessDay orchestrates fetching, summarizing, persisting and notifying.
// Articles the summarizer rejects are logged and left out of the digest; a
// cancelled context aborts the run. With a notifier configured an article
// counts as done only once delivered, so a failed publish is retried on the
// next run.
func (w *Watch) ProcessDay(ctx context.Context, day time.Time) (DayReport, error) {
	var report DayReport
	if w.source == nil || w.summarizer == nil {
		return report, nil
	}

	articles, err := w.source.FetchDaily(ctx, day)
	if err != nil {
		return report, fmt.Errorf("fetch daily: %w", err)
	}
	report.Fetched = len(articles)

	keys := make([]string, len(articles))
	for i, art := range articles {
		keys[i] = art.Key()
	}

	done := domain.StatusSummarized
	if w.notifier != nil {
		done = domain.StatusDelivered
	}

	skip := map[string]bool{}
	if w.repository != nil && len(keys) > 0 {
		skip, err = w.repository.AlreadyProcessed(ctx, keys, done)
		if err != nil {
			return report, fmt.Errorf("load processed: %w", err)
		}
	}

	for _, article := range articles {
		if skip[article.Key()] {
			report.Skipped++
			continue
		}

		result, err := w.summarizer.Run(ctx, article.Document())
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("summarize article %s: %w", article.Key(), err)
			}
			w.logger.Warn("article not summarized", "article", article.Key(), "error", err)
			report.Failed++
			continue
		}

		if err := w.save(ctx, article, result, domain.StatusSummarized); err != nil {
			return report, fmt.Errorf("persist article %s: %w", article.Key(), err)
		}
		report.Summarized = append(report.Summarized, domain.ArticleDigest{Article: article, Result: result})
	}

	w.logger.Info("watch run summarized",
		"day", day.Format(time.DateOnly),
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"summarized", len(report.Summarized),
	)

	if len(report.Summarized) == 0 || w.notifier == nil {
		return report, nil
	}

	if err := w.notifier.PublishDigest(ctx, BuildDigestMessage(day, report.Summarized)); err != nil {
		return report, fmt.Errorf("publish digest: %w", err)
	}
	report.Delivered = true

	for _, digest := range report.Summarized {
		if err := w.save(ctx, digest.Article, digest.Result, domain.StatusDelivered); err != nil {
			w.logger.Warn("mark delivered failed", "article", digest.Article.Key(), "error", err)
		}
	}
	return report, nil
}

func (w *Watch) save(ctx context.Context, article domain.Article, result domain.SummaryResult, status domain.ProcessingStatus) error {
	if w.repository == nil {
		return nil
	}

	var vector []float32
	if w.embedder != nil && status == domain.StatusSummarized {
		v, err := w.embedder.Embed(ctx, article.Title+"\n\n"+result.Summary)
		if err != nil {
			w.logger.Warn("embedding failed", "article", article.Key(), "error", err)
		}
		vector = v
	}

	return w.repository.SaveProcessed(ctx, domain.ProcessedArticle{
		Article:   article,
		Summary:   result,
		Embedding: vector,
		Status:    status,
	})
}

// BuildDigestMessage renders the digest in Telegram MarkdownV2. Titles,
// summaries and links are model or publisher text and are escaped.
func BuildDigestMessage(day time.Time, digests []domain.ArticleDigest) string {
	if len(digests) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Research digest for %s*\n\n", EscapeMarkdown(day.Format(time.DateOnly)))
	for i, digest := range digests {
		fmt.Fprintf(&b, "%d\\. *%s*\n", i+1, EscapeMarkdown(digest.Article.Title))
		if authors := domain.FormatAuthors(digest.Article.Authors); authors != "" {
			fmt.Fprintf(&b, "_%s_\n", EscapeMarkdown(authors))
		}
		b.WriteString(EscapeMarkdown(digest.Result.Summary))
		b.WriteString("\n")
		if len(digest.Result.KeyConcepts) > 0 {
			fmt.Fprintf(&b, "Key concepts: %s\n", EscapeMarkdown(strings.Join(digest.Result.KeyConcepts, ", ")))
		}
		if digest.Article.URL != "" {
			b.WriteString(EscapeMarkdown(digest.Article.URL))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var markdownEscaper = func() *strings.Replacer {
	var pairs []string
	for _, r := range "\\_*[]()~`>#+-=|{}.!" {
		pairs = append(pairs, string(r), "\\"+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdown escapes every MarkdownV2 control character so text renders
// literally.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
