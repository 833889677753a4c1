// Package config provides centralized timeout constants for the application.
//
// A chat answer is up to three sequential network round-trips
// (classification, retrieval, generation) plus up to six parallel
// retrieval calls in knowledge-base mode. ChatProcessing bounds the whole
// pipeline; every sub-call shares that single deadline.
package config

import "time"

// Chat pipeline timeouts
const (
	// ChatProcessing is the wall-clock budget for one answer.
	// It matches the LINE loading animation maximum (60s).
	ChatProcessing = 60 * time.Second

	// HTTPRead is the server read timeout. Uploads are capped at
	// DocumentConfig.MaxFileBytes, which fits well within this budget.
	HTTPRead = 30 * time.Second

	// HTTPWrite must exceed ChatProcessing plus response serialization.
	HTTPWrite = 65 * time.Second

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second
)

// Outbound service timeouts. These are transport ceilings; the chat
// deadline above usually fires first.
const (
	// LLMRequest bounds a single completion call.
	LLMRequest = 50 * time.Second

	// SearchRequest bounds a single Tavily or Pinecone call.
	SearchRequest = 20 * time.Second

	// EmbeddingRequest bounds a single embedding call.
	EmbeddingRequest = 15 * time.Second
)

// Scraper timeouts
const (
	// ScraperRequest is the timeout for a single page fetch while crawling.
	ScraperRequest = 30 * time.Second

	// ScraperRetryInitial is the first retry delay (exponential backoff).
	ScraperRetryInitial = 2 * time.Second

	// ScraperRateLimit is the minimum delay between page fetches.
	ScraperRateLimit = 2 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background jobs
const (
	// RateLimiterCleanupInterval is how often idle per-user limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute

	// SnapshotDownload bounds the startup corpus download from R2.
	SnapshotDownload = 2 * time.Minute

	// SnapshotLockTTL is the lease on the ingest publish lock.
	SnapshotLockTTL = 10 * time.Minute

	// ReadinessCheck bounds the /ready database ping.
	ReadinessCheck = 3 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second
)
