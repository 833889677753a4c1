// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "UNIASSIST_PORT"
	EnvLogLevel        = "UNIASSIST_LOG_LEVEL"
	EnvShutdownTimeout = "UNIASSIST_SHUTDOWN_TIMEOUT"
	EnvDataDir         = "UNIASSIST_DATA_DIR"
	EnvChatTimeout     = "UNIASSIST_CHAT_TIMEOUT"

	// LLM
	EnvLLMProvider        = "UNIASSIST_LLM_PROVIDER"
	EnvLLMBaseURL         = "UNIASSIST_LLM_BASE_URL"
	EnvGroqAPIKey         = "UNIASSIST_GROQ_API_KEY"
	EnvCerebrasAPIKey     = "UNIASSIST_CEREBRAS_API_KEY"
	EnvOpenAIAPIKey       = "UNIASSIST_OPENAI_API_KEY"
	EnvGeminiAPIKey       = "UNIASSIST_GEMINI_API_KEY"
	EnvClassifierModel    = "UNIASSIST_CLASSIFIER_MODEL"
	EnvExpanderModel      = "UNIASSIST_EXPANDER_MODEL"
	EnvAnswerModel        = "UNIASSIST_ANSWER_MODEL"
	EnvEmbeddingProvider  = "UNIASSIST_EMBEDDING_PROVIDER"
	EnvEmbeddingModel     = "UNIASSIST_EMBEDDING_MODEL"
	EnvEmbeddingDimension = "UNIASSIST_EMBEDDING_DIMENSION"

	// Knowledge base
	EnvPineconeAPIKey     = "UNIASSIST_PINECONE_API_KEY"
	EnvPineconeHost       = "UNIASSIST_PINECONE_HOST"
	EnvPineconeNamespace  = "UNIASSIST_PINECONE_NAMESPACE"
	EnvKBTopK             = "UNIASSIST_KB_TOP_K"
	EnvKBScoreThreshold   = "UNIASSIST_KB_SCORE_THRESHOLD"
	EnvKBQueryVariants    = "UNIASSIST_KB_QUERY_VARIANTS"
	EnvKBLocalIndex       = "UNIASSIST_KB_LOCAL_INDEX"
	EnvEmbeddingCacheSize = "UNIASSIST_EMBEDDING_CACHE_SIZE"

	// Web search
	EnvTavilyAPIKey         = "UNIASSIST_TAVILY_API_KEY"
	EnvTavilyBaseURL        = "UNIASSIST_TAVILY_BASE_URL"
	EnvSearchMaxResults     = "UNIASSIST_SEARCH_MAX_RESULTS"
	EnvSearchIncludeDomains = "UNIASSIST_SEARCH_INCLUDE_DOMAINS"
	EnvSearchExcludeDomains = "UNIASSIST_SEARCH_EXCLUDE_DOMAINS"
	EnvSearchRawContent     = "UNIASSIST_SEARCH_RAW_CONTENT"
	EnvSearchDepth          = "UNIASSIST_SEARCH_DEPTH"
	EnvSearchTimeRange      = "UNIASSIST_SEARCH_TIME_RANGE"

	// Document mode
	EnvDocChunkSize    = "UNIASSIST_DOC_CHUNK_SIZE"
	EnvDocChunkOverlap = "UNIASSIST_DOC_CHUNK_OVERLAP"
	EnvDocMaxChars     = "UNIASSIST_DOC_MAX_CHARS"
	EnvDocMaxFileBytes = "UNIASSIST_DOC_MAX_FILE_BYTES"
	EnvDocMaxFiles     = "UNIASSIST_DOC_MAX_FILES"

	// Crawler
	EnvCrawlSeedURL    = "UNIASSIST_CRAWL_SEED_URL"
	EnvCrawlMaxPages   = "UNIASSIST_CRAWL_MAX_PAGES"
	EnvCrawlDelay      = "UNIASSIST_CRAWL_DELAY"
	EnvCrawlTimeout    = "UNIASSIST_CRAWL_TIMEOUT"
	EnvCrawlMaxRetries = "UNIASSIST_CRAWL_MAX_RETRIES"

	// Ingest
	EnvIngestChunkSize    = "UNIASSIST_INGEST_CHUNK_SIZE"
	EnvIngestChunkOverlap = "UNIASSIST_INGEST_CHUNK_OVERLAP"
	EnvIngestBatchSize    = "UNIASSIST_INGEST_BATCH_SIZE"

	// LINE channel
	EnvLineChannelAccessToken = "UNIASSIST_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "UNIASSIST_LINE_CHANNEL_SECRET"

	// Rate limits
	EnvUserRateBurst  = "UNIASSIST_USER_RATE_BURST"
	EnvUserRateRefill = "UNIASSIST_USER_RATE_REFILL"
	EnvUserRateDaily  = "UNIASSIST_USER_RATE_DAILY"
	EnvGlobalRateRPS  = "UNIASSIST_GLOBAL_RATE_RPS"

	// R2 snapshot
	EnvR2Enabled         = "UNIASSIST_R2_ENABLED"
	EnvR2AccountID       = "UNIASSIST_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "UNIASSIST_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "UNIASSIST_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "UNIASSIST_R2_BUCKET_NAME"
	EnvR2SnapshotKey     = "UNIASSIST_R2_SNAPSHOT_KEY"
	EnvR2LockKey         = "UNIASSIST_R2_LOCK_KEY"
	EnvR2PollInterval    = "UNIASSIST_R2_POLL_INTERVAL"

	// Sentry
	EnvSentryToken       = "UNIASSIST_SENTRY_TOKEN"
	EnvSentryHost        = "UNIASSIST_SENTRY_HOST"
	EnvSentryEnvironment = "UNIASSIST_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "UNIASSIST_SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "UNIASSIST_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "UNIASSIST_BETTERSTACK_ENDPOINT"

	// Metrics auth
	EnvMetricsUsername = "UNIASSIST_METRICS_USERNAME"
	EnvMetricsPassword = "UNIASSIST_METRICS_PASSWORD"
)
