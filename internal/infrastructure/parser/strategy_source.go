package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/config"
	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
	"github.com/Hamza-cpp/research-assistant/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchDaily runs the scanner of every configured site. A failing site is
// logged and skipped; the call fails only when every site failed.
func (s *StrategySource) FetchDaily(ctx context.Context, day time.Time) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.logger.Debug("fetch daily", "sites", len(s.sites), "day", day.Format(time.DateOnly))

	var (
		aggregated []domain.Article
		failures   []error
		seen       = map[string]struct{}{}
	)
	for _, site := range s.sites {
		results, err := s.scanSite(ctx, site, day)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("site scan failed", "site", site.Name, "error", err)
			failures = append(failures, err)
			continue
		}

		for _, article := range results {
			if _, ok := seen[article.Key()]; ok {
				continue
			}
			seen[article.Key()] = struct{}{}
			aggregated = append(aggregated, article)
		}
		s.logger.Debug("site produced articles", "site", site.Name, "count", len(results))
	}

	if len(failures) > 0 && len(failures) == len(s.sites) {
		return nil, errors.Join(failures...)
	}

	s.logger.Debug("strategy source done", "total_articles", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig, day time.Time) ([]domain.Article, error) {
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	results, err := strategy.Scan(ctx, scanner.Request{
		Day:        day,
		SiteName:   site.Name,
		Options:    site.Options,
		Categories: toScannerCategories(site.Categories),
	})
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
	}

	for i := range results {
		if results[i].Source == "" {
			results[i].Source = site.Name
		}
	}
	return results, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}
