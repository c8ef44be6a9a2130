package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "RESEARCH_ASSISTANT_CONFIG"
	portEnv           = "PORT"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	llmProviderEnv    = "LLM_PROVIDER"
	llmModelEnv       = "LLM_MODEL"
	llmAPIKeyEnv      = "LLM_API_KEY"
	groqAPIKeyEnv     = "GROQ_API_KEY"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Provider names accepted by LLMConfig.Provider.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Logging       LoggingConfig      `yaml:"logging"`
	LLM           LLMConfig          `yaml:"llm"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	Embedding     EmbeddingConfig    `yaml:"embedding"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Sources       SourcesConfig      `yaml:"sources"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Telemetry     TelemetryConfig    `yaml:"telemetry"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig selects slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig defines how to reach the text-completion provider.
type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"baseUrl"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"apiKey"`
	SystemPrompt      string  `yaml:"systemPrompt"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int64   `yaml:"maxTokens"`
	MaxRetries        int     `yaml:"maxRetries"`
	TokensPerSecond   float64 `yaml:"tokensPerSecond"`
	BurstTokens       int     `yaml:"burstTokens"`
	TokenizerEncoding string  `yaml:"tokenizerEncoding"`
}

// SummarizerConfig tunes chunking and the map stage.
type SummarizerConfig struct {
	ChunkSize      int           `yaml:"chunkSize"`
	ChunkOverlap   int           `yaml:"chunkOverlap"`
	MapConcurrency int           `yaml:"mapConcurrency"`
	CallTimeout    time.Duration `yaml:"callTimeout"`
}

// EmbeddingConfig describes the embeddings endpoint used for similarity search.
type EmbeddingConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"apiKey"`
	Dimension int    `yaml:"dimension"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// RedisConfig describes the summary cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// SourcesConfig groups upstream article APIs.
type SourcesConfig struct {
	ArxivAPIURL  string `yaml:"arxivApiUrl"`
	ArxivHTMLURL string `yaml:"arxivHtmlUrl"`
	HALAPIURL    string `yaml:"halApiUrl"`
	FullText     bool   `yaml:"fullText"`
	UserAgent    string `yaml:"userAgent"`
}

// SchedulerConfig defines when the watch job should run.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIURL   string `yaml:"apiUrl"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// SiteConfig describes a single watched site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete listing pages to crawl (e.g., arXiv category URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if fileCfg, err := readFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	raw = []byte(os.ExpandEnv(string(raw)))

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate reports settings the application cannot start with.
func (c Config) Validate() error {
	var problems []string

	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderAnthropic:
	default:
		problems = append(problems, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.Summarizer.ChunkSize <= 0 {
		problems = append(problems, fmt.Sprintf("summarizer.chunkSize must be positive, got %d", c.Summarizer.ChunkSize))
	}
	if c.Summarizer.ChunkOverlap < 0 || c.Summarizer.ChunkOverlap >= c.Summarizer.ChunkSize {
		problems = append(problems, fmt.Sprintf("summarizer.chunkOverlap %d must be in [0, chunkSize)", c.Summarizer.ChunkOverlap))
	}
	if c.Embedding.Dimension <= 0 {
		problems = append(problems, "embedding.dimension must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Addr = ":" + v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(providerKeyEnv(c.LLM.Provider))
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func providerKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return openAIAPIKeyEnv
	case ProviderAnthropic:
		return anthropicKeyEnv
	default:
		return groqAPIKeyEnv
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	base.LLM = mergeLLM(base.LLM, override.LLM)

	if override.Summarizer.ChunkSize != 0 {
		base.Summarizer.ChunkSize = override.Summarizer.ChunkSize
	}
	if override.Summarizer.ChunkOverlap != 0 {
		base.Summarizer.ChunkOverlap = override.Summarizer.ChunkOverlap
	}
	if override.Summarizer.MapConcurrency != 0 {
		base.Summarizer.MapConcurrency = override.Summarizer.MapConcurrency
	}
	if override.Summarizer.CallTimeout != 0 {
		base.Summarizer.CallTimeout = override.Summarizer.CallTimeout
	}

	if override.Embedding.BaseURL != "" {
		base.Embedding.BaseURL = override.Embedding.BaseURL
	}
	if override.Embedding.Model != "" {
		base.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.APIKey != "" {
		base.Embedding.APIKey = override.Embedding.APIKey
	}
	if override.Embedding.Dimension != 0 {
		base.Embedding.Dimension = override.Embedding.Dimension
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Table != "" {
		base.Database.Table = override.Database.Table
	}

	if override.Redis.Addr != "" {
		base.Redis = mergeRedis(base.Redis, override.Redis)
	}

	if override.Sources.ArxivAPIURL != "" {
		base.Sources.ArxivAPIURL = override.Sources.ArxivAPIURL
	}
	if override.Sources.ArxivHTMLURL != "" {
		base.Sources.ArxivHTMLURL = override.Sources.ArxivHTMLURL
	}
	if override.Sources.HALAPIURL != "" {
		base.Sources.HALAPIURL = override.Sources.HALAPIURL
	}
	if override.Sources.UserAgent != "" {
		base.Sources.UserAgent = override.Sources.UserAgent
	}
	base.Sources.FullText = base.Sources.FullText || override.Sources.FullText

	base.Scheduler.Enabled = base.Scheduler.Enabled || override.Scheduler.Enabled
	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.APIURL != "" {
		base.Notifications.Telegram.APIURL = override.Notifications.Telegram.APIURL
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	base.Telemetry.Enabled = base.Telemetry.Enabled || override.Telemetry.Enabled
	if override.Telemetry.ServiceName != "" {
		base.Telemetry.ServiceName = override.Telemetry.ServiceName
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func mergeLLM(base, override LLMConfig) LLMConfig {
	if override.Provider != "" {
		base.Provider = strings.ToLower(override.Provider)
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	if override.Temperature != 0 {
		base.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		base.MaxTokens = override.MaxTokens
	}
	if override.MaxRetries != 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.TokensPerSecond != 0 {
		base.TokensPerSecond = override.TokensPerSecond
	}
	if override.BurstTokens != 0 {
		base.BurstTokens = override.BurstTokens
	}
	if override.TokenizerEncoding != "" {
		base.TokenizerEncoding = override.TokenizerEncoding
	}
	return base
}

func mergeRedis(base, override RedisConfig) RedisConfig {
	base.Addr = override.Addr
	if override.Password != "" {
		base.Password = override.Password
	}
	if override.DB != 0 {
		base.DB = override.DB
	}
	if override.Prefix != "" {
		base.Prefix = override.Prefix
	}
	if override.TTL != 0 {
		base.TTL = override.TTL
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		LLM: LLMConfig{
			Provider:          ProviderGroq,
			Model:             "meta-llama/llama-4-scout-17b-16e-instruct",
			Temperature:       0.2,
			MaxTokens:         2048,
			MaxRetries:        3,
			TokensPerSecond:   2000,
			BurstTokens:       12000,
			TokenizerEncoding: "cl100k_base",
		},
		Summarizer: SummarizerConfig{
			ChunkSize:      4000,
			ChunkOverlap:   200,
			MapConcurrency: 4,
			CallTimeout:    2 * time.Minute,
		},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimension: 1536},
		Database:  DatabaseConfig{DSN: "", Table: "research_summaries"},
		Redis:     RedisConfig{Addr: "", Prefix: "research-assistant:summary:", TTL: 7 * 24 * time.Hour},
		Sources: SourcesConfig{
			ArxivAPIURL:  "http://export.arxiv.org/api/query",
			ArxivHTMLURL: "https://arxiv.org/html/",
			HALAPIURL:    "https://api.archives-ouvertes.fr/search/",
			UserAgent:    "research-assistant/1.0",
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org", BotToken: "", ChatID: ""},
		},
		Telemetry: TelemetryConfig{Enabled: false, ServiceName: "research-assistant"},
		Sites: []SiteConfig{
			{
				Name:    "arxiv-default",
				Scanner: "arxiv",
				Categories: []CategoryConfig{
					{Name: "cs.AI", URL: "https://export.arxiv.org/list/cs.AI/pastweek"},
				},
			},
		},
	}
}
