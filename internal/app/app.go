package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Hamza-cpp/research-assistant/internal/config"
	"github.com/Hamza-cpp/research-assistant/internal/httpapi"
	"github.com/Hamza-cpp/research-assistant/internal/infrastructure/cache"
	"github.com/Hamza-cpp/research-assistant/internal/infrastructure/embedding"
	"github.com/Hamza-cpp/research-assistant/internal/infrastructure/llm"
	"github.com/Hamza-cpp/research-assistant/internal/infrastructure/parser"
	"github.com/Hamza-cpp/research-assistant/internal/infrastructure/scheduler"
	"github.com/Hamza-cpp/research-assistant/internal/infrastructure/storage"
	"github.com/Hamza-cpp/research-assistant/internal/infrastructure/telegram"
	"github.com/Hamza-cpp/research-assistant/internal/logging"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
	"github.com/Hamza-cpp/research-assistant/internal/scanner"
	"github.com/Hamza-cpp/research-assistant/internal/summarizer"
	"github.com/Hamza-cpp/research-assistant/internal/telemetry"
	"github.com/Hamza-cpp/research-assistant/internal/usecase"
)

// Version is reported to tracing and MCP clients.
const Version = "0.4.0"

// Application wires configuration to use cases and owns their lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	articles  *usecase.Articles
	watch     *usecase.Watch
	scheduler *usecase.Scheduler
	closers   []func(context.Context) error
}

// New builds every adapter the configuration enables. Redis and Postgres
// are optional; an unreachable backend is logged and left out.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Disable:        !cfg.Telemetry.Enabled,
		Logger:         logging.Component(baseLogger, "telemetry"),
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	completer, err := llm.New(cfg.LLM, logging.Component(baseLogger, "llm"))
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	pipeline, err := summarizer.NewPipeline(completer, summarizer.Options{
		ChunkSize:      cfg.Summarizer.ChunkSize,
		ChunkOverlap:   cfg.Summarizer.ChunkOverlap,
		MapConcurrency: cfg.Summarizer.MapConcurrency,
		CallTimeout:    cfg.Summarizer.CallTimeout,
	}, logging.Component(baseLogger, "summarizer"))
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resolver := parser.NewResolver()
	resolver.Register(parser.NewArxivClient(httpClient, cfg.Sources.ArxivAPIURL, cfg.Sources.UserAgent))
	resolver.Register(parser.NewHALClient(httpClient, cfg.Sources.HALAPIURL, cfg.Sources.UserAgent))

	var fullText ports.FullTextFetcher
	if cfg.Sources.FullText {
		fullText = parser.NewArxivHTMLFetcher(httpClient, cfg.Sources.ArxivHTMLURL, cfg.Sources.UserAgent)
	}

	summaryCache := a.openCache(ctx)
	repository := a.openRepository(ctx)

	var embedder ports.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = embedding.NewOpenAIEmbedder(cfg.Embedding)
	}

	a.articles = usecase.NewArticles(usecase.ArticlesDeps{
		Resolver:   resolver,
		Summarizer: pipeline,
		FullText:   fullText,
		Cache:      summaryCache,
		Embedder:   embedder,
		Repository: repository,
		Logger:     logging.Component(baseLogger, "articles"),
	})

	registry := scanner.NewRegistry(parser.NewArxivScanner(httpClient, cfg.Sources.UserAgent, logging.Component(baseLogger, "scanner.arxiv")))
	source := parser.NewStrategySource(registry, cfg.Sites, logging.Component(baseLogger, "source"))

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram, nil); tg.Enabled() {
		notifier = tg
	}

	a.watch = usecase.NewWatch(usecase.WatchDeps{
		Source:     source,
		Summarizer: pipeline,
		Repository: repository,
		Embedder:   embedder,
		Notifier:   notifier,
		Logger:     logging.Component(baseLogger, "watch"),
	})

	if cfg.Scheduler.Enabled {
		driver, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), logging.Component(baseLogger, "scheduler"))
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.scheduler = usecase.NewScheduler(driver, a.watch, logging.Component(baseLogger, "scheduler"))
	}

	return a, nil
}

func (a *Application) openCache(ctx context.Context) ports.SummaryCache {
	if a.cfg.Redis.Addr == "" {
		return nil
	}
	client := cache.NewRedisClient(a.cfg.Redis)
	c := cache.NewRedisCache(client, a.cfg.Redis.Prefix, a.cfg.Redis.TTL)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		a.logger.Warn("redis unavailable, summary cache disabled", "addr", a.cfg.Redis.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	a.closers = append(a.closers, closeRedis(client))
	return c
}

func closeRedis(client *redis.Client) func(context.Context) error {
	return func(context.Context) error { return client.Close() }
}

func (a *Application) openRepository(ctx context.Context) ports.ArticleRepository {
	if a.cfg.Database.DSN == "" {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := storage.Open(pingCtx, a.cfg.Database.DSN)
	if err != nil {
		a.logger.Warn("postgres unavailable, persistence disabled", "error", err)
		return nil
	}

	repo, err := storage.NewPostgresRepository(db, a.cfg.Database.Table, a.cfg.Embedding.Dimension)
	if err == nil {
		err = repo.EnsureSchema(pingCtx)
	}
	if err != nil {
		a.logger.Warn("postgres schema setup failed, persistence disabled", "error", err)
		_ = db.Close()
		return nil
	}
	a.closers = append(a.closers, closeDB(db))
	return repo
}

func closeDB(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}

// Articles exposes the on-demand use cases to the transport layers.
func (a *Application) Articles() *usecase.Articles {
	return a.articles
}

// RunOnce executes the daily watch for day.
func (a *Application) RunOnce(ctx context.Context, day time.Time) (usecase.DayReport, error) {
	return a.watch.ProcessDay(ctx, day.In(a.cfg.Scheduler.Location()))
}

// Serve starts the HTTP API and the scheduler, and blocks until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	server := httpapi.NewServer(a.cfg.Server.Addr, a.articles, logging.Component(a.logger, "http"))
	if err := server.Start(); err != nil {
		return err
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes traces and releases database and cache connections.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
