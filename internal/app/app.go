// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/uni-assistant-go/internal/api"
	"github.com/garyellow/uni-assistant-go/internal/buildinfo"
	"github.com/garyellow/uni-assistant-go/internal/chat"
	"github.com/garyellow/uni-assistant-go/internal/config"
	"github.com/garyellow/uni-assistant-go/internal/ctxutil"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/r2client"
	"github.com/garyellow/uni-assistant-go/internal/ratelimit"
	"github.com/garyellow/uni-assistant-go/internal/sentry"
	"github.com/garyellow/uni-assistant-go/internal/snapshot"
	"github.com/garyellow/uni-assistant-go/internal/storage"
	"github.com/garyellow/uni-assistant-go/internal/webhook"
)

const serviceName = "uni-assistant-go"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *storage.DB
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	components  *Components
	snapshots   *snapshot.Manager // Nil unless R2 is enabled
	userLimiter *ratelimit.KeyedLimiter
	webhook     *webhook.Handler // Nil unless LINE is configured
	router      *gin.Engine
	server      *http.Server
	wg          sync.WaitGroup
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:               cfg.LogLevel,
		Writer:              os.Stdout,
		BetterStackToken:    cfg.BetterStack.Token,
		BetterStackEndpoint: cfg.BetterStack.Endpoint,
	})
	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls pick up request ids through the ContextHandler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStack.Token != "" {
		log.WithField("endpoint", cfg.BetterStack.Endpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.Sentry.Token,
		Host:        cfg.Sentry.Host,
		Environment: cfg.Sentry.Environment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.Sentry.SampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.Sentry.Environment).Info("Sentry error tracking enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	var snapshots *snapshot.Manager
	if cfg.R2.Enabled {
		mgr, err := newSnapshotManager(ctx, cfg, log, m)
		if err != nil {
			return nil, err
		}
		snapshots = mgr
		if err := restoreIfMissing(ctx, snapshots, cfg.SQLitePath(), log); err != nil {
			log.WithError(err).Warn("Snapshot restore failed, starting with local corpus")
		}
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	components, err := BuildPipeline(ctx, cfg, db, log, m)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "user",
		Burst:         cfg.RateLimit.UserBurst,
		RefillRate:    cfg.RateLimit.UserRefillPerSec,
		DailyLimit:    cfg.RateLimit.UserDailyLimit,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	chatService := chat.New(chat.Config{
		Answerer: components.Orchestrator,
		Log:      db,
		Limiter:  userLimiter,
		Logger:   log,
		Metrics:  m,
	})

	app := &Application{
		cfg:         cfg,
		logger:      log,
		db:          db,
		metrics:     m,
		registry:    registry,
		components:  components,
		snapshots:   snapshots,
		userLimiter: userLimiter,
	}

	if cfg.HasLine() {
		client, err := webhook.NewClient(cfg.Line.ChannelToken)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("line client: %w", err)
		}
		app.webhook = webhook.NewHandler(webhook.Config{
			ChannelSecret: cfg.Line.ChannelSecret,
			Messenger:     client,
			Chat:          chatService,
			ReplyRPS:      cfg.RateLimit.GlobalRPS,
			Logger:        log,
			Metrics:       m,
		})
		log.Info("LINE channel enabled")
	}

	apiHandler := api.NewHandler(api.Config{
		Chat:         chatService,
		History:      db,
		MaxFiles:     cfg.Document.MaxFiles,
		MaxFileBytes: cfg.Document.MaxFileBytes,
		Logger:       log,
	})

	gin.SetMode(gin.ReleaseMode)
	app.router = app.routes(apiHandler)

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.WithField("features", components.Features()).Info("Initialization complete")
	return app, nil
}

func newSnapshotManager(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*snapshot.Manager, error) {
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2.Endpoint(),
		AccessKeyID: cfg.R2.AccessKeyID,
		SecretKey:   cfg.R2.SecretAccessKey,
		BucketName:  cfg.R2.BucketName,
	})
	if err != nil {
		return nil, fmt.Errorf("r2: %w", err)
	}
	return snapshot.New(client, snapshot.Config{
		Key:          cfg.R2.SnapshotKey,
		PollInterval: cfg.R2.PollInterval,
	}, log, m), nil
}

// restoreIfMissing downloads the published corpus when no local database
// exists yet. A missing remote snapshot is not an error.
func restoreIfMissing(ctx context.Context, mgr *snapshot.Manager, path string, log *logger.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, config.SnapshotDownload)
	defer cancel()

	if _, err := mgr.Restore(ctx, path); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			log.Info("No published snapshot yet")
			return nil
		}
		return err
	}
	return nil
}

func (a *Application) routes(apiHandler *api.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentry.Middleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/healthz", a.livenessCheck)
	router.HEAD("/healthz", a.livenessCheck)
	router.GET("/ready", a.readinessCheck)
	router.HEAD("/ready", a.readinessCheck)
	router.GET("/metrics",
		basicAuth("metrics", a.cfg.Metrics.Username, a.cfg.Metrics.Password),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	apiHandler.Register(router)
	apiHandler.RegisterHistory(router, basicAuth("history", a.cfg.Metrics.Username, a.cfg.Metrics.Password))
	if a.webhook != nil {
		router.POST("/callback", a.webhook.Handle)
	}
	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	body := gin.H{
		"status":   "ready",
		"database": "connected",
		"corpus":   a.corpusStats(ctx),
		"features": a.components.Features(),
	}
	if a.snapshots != nil {
		body["snapshot"] = a.snapshots.ETag()
	}
	c.JSON(http.StatusOK, body)
}

func (a *Application) corpusStats(ctx context.Context) map[string]int {
	stats := make(map[string]int)
	if n, err := a.db.CountPages(ctx); err == nil {
		stats["pages"] = n
	} else {
		a.logger.WithError(err).Warn("Failed to count pages")
	}
	if n, err := a.db.CountChunks(ctx); err == nil {
		stats["chunks"] = n
	} else {
		a.logger.WithError(err).Warn("Failed to count chunks")
	}
	if a.components.Keyword != nil {
		stats["indexed"] = a.components.Keyword.Count()
	}
	return stats
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT or SIGTERM. Background jobs finish before resources close.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.snapshots != nil {
		a.wg.Go(func() {
			a.snapshots.Poll(ctx, a.db, a.reloadIndex)
		})
	}
}

// reloadIndex rebuilds the keyword index after a corpus swap.
func (a *Application) reloadIndex(ctx context.Context) {
	if a.components.Keyword == nil {
		return
	}
	if err := a.components.Keyword.Load(ctx, a.db); err != nil {
		a.logger.WithError(err).Warn("Keyword index reload failed")
		return
	}
	a.logger.WithField("chunks", a.components.Keyword.Count()).Info("Keyword index reloaded")
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops accepting requests, drains LINE events, then closes
// resources. Call it after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.webhook != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhook.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	a.logger.Info("Closing resources...")
	a.closeResources()
	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

func (a *Application) closeResources() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	if a.userLimiter != nil {
		a.userLimiter.Stop()
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// requestIDHeaders are checked in order for an upstream request id.
var requestIDHeaders = []string{"X-Request-Id", "X-Correlation-Id"}

// loggingMiddleware assigns a request id and logs each request at a level
// chosen by status: 5xx Error, 4xx Warn, everything else Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		var requestID string
		for _, h := range requestIDHeaders {
			if requestID = c.GetHeader(h); requestID != "" {
				break
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-Id", requestID)

		c.Next()

		status := c.Writer.Status()
		entry := log.WithRequestID(requestID).
			WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status >= 400 && status != http.StatusNotFound:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
