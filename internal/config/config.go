// Package config provides application configuration management.
// It loads settings from environment variables (optionally from a .env file)
// and validates them for the binary that is starting.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings must be present.
type ValidationMode int

const (
	// ServerMode requires an LLM provider and a listen port.
	ServerMode ValidationMode = iota
	// CLIMode requires an LLM provider only.
	CLIMode
	// CrawlMode requires a seed URL only.
	CrawlMode
	// IngestMode requires an embedding provider.
	IngestMode
)

// Supported LLM providers.
const (
	ProviderGroq     = "groq"
	ProviderCerebras = "cerebras"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
)

var llmProviders = []string{ProviderGroq, ProviderCerebras, ProviderOpenAI, ProviderGemini}

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ChatTimeout     time.Duration // Wall-clock budget for one RouteAndAnswer call
	DataDir         string

	LLM           LLMConfig
	KnowledgeBase KnowledgeBaseConfig
	WebSearch     WebSearchConfig
	Document      DocumentConfig
	Crawler       CrawlerConfig
	Ingest        IngestConfig
	Line          LineConfig
	RateLimit     RateLimitConfig
	R2            R2Config
	Sentry        SentryConfig
	BetterStack   BetterStackConfig
	Metrics       MetricsConfig
}

// LLMConfig selects the generation and embedding backends.
// Empty model names fall back to the genai package defaults.
type LLMConfig struct {
	Provider string // groq, cerebras, openai, gemini
	BaseURL  string // Overrides the OpenAI-compatible endpoint

	GroqAPIKey     string
	CerebrasAPIKey string
	OpenAIAPIKey   string
	GeminiAPIKey   string

	ClassifierModel string
	ExpanderModel   string
	AnswerModel     string

	EmbeddingProvider  string // gemini or openai; empty picks whichever key is set
	EmbeddingModel     string
	EmbeddingDimension int
}

// KnowledgeBaseConfig configures university retrieval.
type KnowledgeBaseConfig struct {
	PineconeAPIKey    string
	PineconeHost      string // Index host, e.g. https://aup-website-data-xxxx.svc.pinecone.io
	PineconeNamespace string

	TopK               int     // Results per query variant (default: 3)
	ScoreThreshold     float64 // Minimum similarity (default: 0.4)
	QueryVariants      int     // Paraphrases generated per query (default: 5)
	LocalIndex         bool    // Use the SQLite BM25 index when Pinecone is not configured
	EmbeddingCacheSize int
}

// WebSearchConfig configures the Tavily search backend.
type WebSearchConfig struct {
	TavilyAPIKey      string
	BaseURL           string
	MaxResults        int
	IncludeDomains    []string
	ExcludeDomains    []string
	IncludeRawContent bool
	SearchDepth       string // basic or advanced
	TimeRange         string // day, week, month, year
}

// DocumentConfig configures uploaded-document mode.
type DocumentConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MaxChars     int   // Context cap before the truncation marker
	MaxFileBytes int64 // Per-upload size limit
	MaxFiles     int
}

// CrawlerConfig configures the offline site crawler.
type CrawlerConfig struct {
	SeedURL    string
	MaxPages   int
	Delay      time.Duration
	Timeout    time.Duration
	MaxRetries int
}

// IngestConfig configures offline chunking and upsert.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// LineConfig enables the LINE chat channel when both values are set.
type LineConfig struct {
	ChannelToken  string
	ChannelSecret string
}

// RateLimitConfig configures chat request limiting.
type RateLimitConfig struct {
	UserBurst        float64 // Maximum burst tokens per user
	UserRefillPerSec float64 // Tokens refilled per second
	UserDailyLimit   int     // Rolling 24h cap per user; zero disables
	GlobalRPS        float64 // Outbound LINE reply rate
}

// R2Config configures corpus snapshot distribution.
type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	SnapshotKey     string
	LockKey         string        // Guards concurrent ingest publishes
	PollInterval    time.Duration // Server refresh interval; zero disables
}

// SentryConfig configures error tracking (Better Stack compatible).
type SentryConfig struct {
	Token       string
	Host        string
	Environment string
	SampleRate  float64
}

// BetterStackConfig configures log shipping.
type BetterStackConfig struct {
	Token    string
	Endpoint string
}

// MetricsConfig configures /metrics Basic Auth (empty password = no auth).
type MetricsConfig struct {
	Username string
	Password string
}

// Load reads configuration for the server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from environment variables and validates
// it for the given mode. A .env file in the working directory is loaded first.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Ignore error: .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ChatTimeout:     getDurationEnv(EnvChatTimeout, ChatProcessing),
		DataDir:         getEnv(EnvDataDir, getDefaultDataDir()),

		LLM: LLMConfig{
			Provider:           strings.ToLower(getEnv(EnvLLMProvider, ProviderGroq)),
			BaseURL:            getEnv(EnvLLMBaseURL, ""),
			GroqAPIKey:         getEnv(EnvGroqAPIKey, ""),
			CerebrasAPIKey:     getEnv(EnvCerebrasAPIKey, ""),
			OpenAIAPIKey:       getEnv(EnvOpenAIAPIKey, ""),
			GeminiAPIKey:       getEnv(EnvGeminiAPIKey, ""),
			ClassifierModel:    getEnv(EnvClassifierModel, ""),
			ExpanderModel:      getEnv(EnvExpanderModel, ""),
			AnswerModel:        getEnv(EnvAnswerModel, ""),
			EmbeddingProvider:  strings.ToLower(getEnv(EnvEmbeddingProvider, "")),
			EmbeddingModel:     getEnv(EnvEmbeddingModel, ""),
			EmbeddingDimension: getIntEnv(EnvEmbeddingDimension, 768),
		},

		KnowledgeBase: KnowledgeBaseConfig{
			PineconeAPIKey:     getEnv(EnvPineconeAPIKey, ""),
			PineconeHost:       getEnv(EnvPineconeHost, ""),
			PineconeNamespace:  getEnv(EnvPineconeNamespace, ""),
			TopK:               getIntEnv(EnvKBTopK, 3),
			ScoreThreshold:     getFloatEnv(EnvKBScoreThreshold, 0.4),
			QueryVariants:      getIntEnv(EnvKBQueryVariants, 5),
			LocalIndex:         getBoolEnv(EnvKBLocalIndex, true),
			EmbeddingCacheSize: getIntEnv(EnvEmbeddingCacheSize, 512),
		},

		WebSearch: WebSearchConfig{
			TavilyAPIKey:      getEnv(EnvTavilyAPIKey, ""),
			BaseURL:           getEnv(EnvTavilyBaseURL, "https://api.tavily.com"),
			MaxResults:        getIntEnv(EnvSearchMaxResults, 1),
			IncludeDomains:    getListEnv(EnvSearchIncludeDomains),
			ExcludeDomains:    getListEnv(EnvSearchExcludeDomains),
			IncludeRawContent: getBoolEnv(EnvSearchRawContent, true),
			SearchDepth:       getEnv(EnvSearchDepth, "advanced"),
			TimeRange:         getEnv(EnvSearchTimeRange, "year"),
		},

		Document: DocumentConfig{
			ChunkSize:    getIntEnv(EnvDocChunkSize, 1000),
			ChunkOverlap: getIntEnv(EnvDocChunkOverlap, 100),
			MaxChars:     getIntEnv(EnvDocMaxChars, 32000),
			MaxFileBytes: int64(getIntEnv(EnvDocMaxFileBytes, 20<<20)),
			MaxFiles:     getIntEnv(EnvDocMaxFiles, 10),
		},

		Crawler: CrawlerConfig{
			SeedURL:    getEnv(EnvCrawlSeedURL, "https://www.aup.edu.pk/"),
			MaxPages:   getIntEnv(EnvCrawlMaxPages, 200),
			Delay:      getDurationEnv(EnvCrawlDelay, ScraperRateLimit),
			Timeout:    getDurationEnv(EnvCrawlTimeout, ScraperRequest),
			MaxRetries: getIntEnv(EnvCrawlMaxRetries, 3),
		},

		Ingest: IngestConfig{
			ChunkSize:    getIntEnv(EnvIngestChunkSize, 800),
			ChunkOverlap: getIntEnv(EnvIngestChunkOverlap, 100),
			BatchSize:    getIntEnv(EnvIngestBatchSize, 32),
		},

		Line: LineConfig{
			ChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
			ChannelSecret: getEnv(EnvLineChannelSecret, ""),
		},

		RateLimit: RateLimitConfig{
			UserBurst:        getFloatEnv(EnvUserRateBurst, 10),
			UserRefillPerSec: getFloatEnv(EnvUserRateRefill, 0.2), // 1 per 5s
			UserDailyLimit:   getIntEnv(EnvUserRateDaily, 0),
			GlobalRPS:        getFloatEnv(EnvGlobalRateRPS, 50),
		},

		R2: R2Config{
			Enabled:         getBoolEnv(EnvR2Enabled, false),
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			SnapshotKey:     getEnv(EnvR2SnapshotKey, "snapshots/corpus.db.zst"),
			LockKey:         getEnv(EnvR2LockKey, "locks/ingest.json"),
			PollInterval:    getDurationEnv(EnvR2PollInterval, 15*time.Minute),
		},

		Sentry: SentryConfig{
			Token:       getEnv(EnvSentryToken, ""),
			Host:        getEnv(EnvSentryHost, ""),
			Environment: getEnv(EnvSentryEnvironment, "production"),
			SampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		},

		BetterStack: BetterStackConfig{
			Token:    getEnv(EnvBetterStackToken, ""),
			Endpoint: getEnv(EnvBetterStackEndpoint, ""),
		},

		Metrics: MetricsConfig{
			Username: getEnv(EnvMetricsUsername, "prometheus"),
			Password: getEnv(EnvMetricsPassword, ""),
		},
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for server mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks required values for the given mode and
// collects every problem into one joined error.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required"))
	}

	switch mode {
	case ServerMode, CLIMode:
		if mode == ServerMode && c.Port == "" {
			errs = append(errs, errors.New(EnvPort+" is required"))
		}
		if c.ChatTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvChatTimeout, c.ChatTimeout))
		}
		errs = append(errs, c.LLM.validate()...)
		errs = append(errs, c.KnowledgeBase.validate()...)
		errs = append(errs, c.WebSearch.validate()...)
		errs = append(errs, c.Document.validate()...)
		if (c.Line.ChannelToken == "") != (c.Line.ChannelSecret == "") {
			errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
		}
		if c.RateLimit.UserBurst <= 0 || c.RateLimit.UserRefillPerSec <= 0 {
			errs = append(errs, errors.New("user rate limit burst and refill must be positive"))
		}
	case CrawlMode:
		errs = append(errs, c.Crawler.validate()...)
	case IngestMode:
		if c.HasPinecone() && c.EmbeddingProvider() == "" {
			errs = append(errs, fmt.Errorf("an embedding provider is required for Pinecone (%s or %s)", EnvGeminiAPIKey, EnvOpenAIAPIKey))
		}
		if c.Ingest.ChunkSize <= 0 || c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
			errs = append(errs, fmt.Errorf("ingest chunk overlap must be in [0, chunk size), got %d/%d",
				c.Ingest.ChunkOverlap, c.Ingest.ChunkSize))
		}
		if c.Ingest.BatchSize <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvIngestBatchSize, c.Ingest.BatchSize))
		}
	}

	if c.R2.Enabled {
		if c.R2.AccountID == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "" || c.R2.BucketName == "" {
			errs = append(errs, errors.New("R2 is enabled but account, access key, secret or bucket is missing"))
		}
	}
	if c.Sentry.Token != "" && c.Sentry.Host == "" {
		errs = append(errs, errors.New(EnvSentryHost+" is required when "+EnvSentryToken+" is set"))
	}

	return errors.Join(errs...)
}

func (l LLMConfig) validate() []error {
	var errs []error
	if !slices.Contains(llmProviders, l.Provider) {
		errs = append(errs, fmt.Errorf("%s must be one of %v, got %q", EnvLLMProvider, llmProviders, l.Provider))
		return errs
	}
	if l.APIKey() == "" {
		errs = append(errs, fmt.Errorf("API key for LLM provider %q is required", l.Provider))
	}
	return errs
}

func (k KnowledgeBaseConfig) validate() []error {
	var errs []error
	if k.TopK <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvKBTopK, k.TopK))
	}
	if k.ScoreThreshold < 0 || k.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvKBScoreThreshold, k.ScoreThreshold))
	}
	if k.QueryVariants < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvKBQueryVariants, k.QueryVariants))
	}
	if (k.PineconeAPIKey == "") != (k.PineconeHost == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvPineconeAPIKey, EnvPineconeHost))
	}
	return errs
}

func (w WebSearchConfig) validate() []error {
	var errs []error
	if w.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvSearchMaxResults, w.MaxResults))
	}
	if w.SearchDepth != "basic" && w.SearchDepth != "advanced" {
		errs = append(errs, fmt.Errorf("%s must be basic or advanced, got %q", EnvSearchDepth, w.SearchDepth))
	}
	return errs
}

func (d DocumentConfig) validate() []error {
	var errs []error
	if d.ChunkSize <= 0 || d.ChunkOverlap < 0 || d.ChunkOverlap >= d.ChunkSize {
		errs = append(errs, fmt.Errorf("document chunk overlap must be in [0, chunk size), got %d/%d", d.ChunkOverlap, d.ChunkSize))
	}
	if d.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvDocMaxChars, d.MaxChars))
	}
	if d.MaxFileBytes <= 0 || d.MaxFiles <= 0 {
		errs = append(errs, errors.New("document upload limits must be positive"))
	}
	return errs
}

func (c CrawlerConfig) validate() []error {
	var errs []error
	u, err := url.Parse(c.SeedURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("%s must be an absolute http(s) URL, got %q", EnvCrawlSeedURL, c.SeedURL))
	}
	if c.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvCrawlMaxPages, c.MaxPages))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvCrawlDelay, c.Delay))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvCrawlMaxRetries, c.MaxRetries))
	}
	return errs
}

// APIKey returns the key for the selected LLM provider.
func (l LLMConfig) APIKey() string {
	switch l.Provider {
	case ProviderGroq:
		return l.GroqAPIKey
	case ProviderCerebras:
		return l.CerebrasAPIKey
	case ProviderOpenAI:
		return l.OpenAIAPIKey
	case ProviderGemini:
		return l.GeminiAPIKey
	default:
		return ""
	}
}

// EmbeddingProvider resolves the embedding backend: the explicit setting,
// otherwise Gemini, then OpenAI, depending on which key is present.
func (c *Config) EmbeddingProvider() string {
	switch {
	case c.LLM.EmbeddingProvider == ProviderGemini && c.LLM.GeminiAPIKey != "":
		return ProviderGemini
	case c.LLM.EmbeddingProvider == ProviderOpenAI && c.LLM.OpenAIAPIKey != "":
		return ProviderOpenAI
	case c.LLM.EmbeddingProvider != "":
		return ""
	case c.LLM.GeminiAPIKey != "":
		return ProviderGemini
	case c.LLM.OpenAIAPIKey != "":
		return ProviderOpenAI
	default:
		return ""
	}
}

// HasPinecone reports whether the remote vector store is configured.
func (c *Config) HasPinecone() bool {
	return c.KnowledgeBase.PineconeAPIKey != "" && c.KnowledgeBase.PineconeHost != ""
}

// HasLine reports whether the LINE channel is configured.
func (c *Config) HasLine() bool {
	return c.Line.ChannelToken != "" && c.Line.ChannelSecret != ""
}

// Endpoint returns the S3-compatible endpoint for the R2 account.
func (r R2Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

// SQLitePath returns the full path to the corpus database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "corpus.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for part := range strings.SplitSeq(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
