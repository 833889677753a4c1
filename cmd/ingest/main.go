// Package main chunks crawled pages into the local index, upserts their
// embeddings to Pinecone and optionally publishes the corpus snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/app"
	"github.com/garyellow/uni-assistant-go/internal/config"
	"github.com/garyellow/uni-assistant-go/internal/ingest"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/r2client"
	"github.com/garyellow/uni-assistant-go/internal/rag"
	"github.com/garyellow/uni-assistant-go/internal/snapshot"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

var (
	publishFlag     = flag.Bool("publish", true, "Publish the corpus snapshot to R2 when R2 is enabled")
	skipVectorsFlag = flag.Bool("skip-vectors", false, "Only rebuild local chunks; do not embed or upsert")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadForMode(config.IngestMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting ingest")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer func() { _ = db.Close() }()

	stats, err := execute(ctx, cfg, db, log)
	if err != nil {
		log.WithError(err).Fatal("Ingest failed")
	}
	fmt.Printf("Ingest complete: %d pages, %d chunks, %d vectors upserted in %v\n",
		stats.Pages, stats.Chunks, stats.Upserted, stats.Duration.Round(time.Second))
}

// execute holds the R2 lock, if publishing, for the whole ingest and
// publish sequence.
func execute(ctx context.Context, cfg *config.Config, db *storage.DB, log *logger.Logger) (ingest.Stats, error) {
	if !cfg.R2.Enabled || !*publishFlag {
		return run(ctx, cfg, db, log, *skipVectorsFlag)
	}

	r2, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2.Endpoint(),
		AccessKeyID: cfg.R2.AccessKeyID,
		SecretKey:   cfg.R2.SecretAccessKey,
		BucketName:  cfg.R2.BucketName,
	})
	if err != nil {
		return ingest.Stats{}, fmt.Errorf("r2: %w", err)
	}
	lock := r2client.NewLock(r2, cfg.R2.LockKey, config.SnapshotLockTTL)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return ingest.Stats{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ingest.Stats{}, fmt.Errorf("another ingest holds %s", cfg.R2.LockKey)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("Failed to release ingest lock")
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Go(func() { keepLock(runCtx, cancel, lock, log) })
	defer func() {
		cancel()
		wg.Wait()
	}()

	stats, err := run(runCtx, cfg, db, log, *skipVectorsFlag)
	if err != nil {
		return stats, err
	}
	if _, err := snapshot.New(r2, snapshot.Config{Key: cfg.R2.SnapshotKey}, log, nil).Publish(runCtx, db); err != nil {
		return stats, err
	}
	return stats, nil
}

func run(ctx context.Context, cfg *config.Config, db *storage.DB, log *logger.Logger, skipVectors bool) (ingest.Stats, error) {
	var upserter ingest.Upserter
	embedder, err := app.NewEmbedder(ctx, cfg, nil)
	if err != nil {
		return ingest.Stats{}, err
	}
	if !skipVectors && embedder != nil {
		store, err := rag.NewPineconeStore(rag.PineconeConfig{
			APIKey:     cfg.KnowledgeBase.PineconeAPIKey,
			Host:       cfg.KnowledgeBase.PineconeHost,
			Namespace:  cfg.KnowledgeBase.PineconeNamespace,
			Timeout:    config.SearchRequest,
			RetryCount: 3,
		}, embedder)
		if err != nil {
			return ingest.Stats{}, fmt.Errorf("pinecone: %w", err)
		}
		if store != nil {
			upserter = store
		}
	}
	if upserter == nil {
		log.Info("Vector upsert disabled, writing local chunks only")
		embedder = nil
	}

	in := ingest.New(db, db, embedder, upserter, ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		BatchSize:    cfg.Ingest.BatchSize,
	}, log, nil)
	return in.Run(ctx)
}

// keepLock renews the lease at half its TTL and cancels the run if the
// lease is lost.
func keepLock(ctx context.Context, cancel context.CancelFunc, lock *r2client.Lock, log *logger.Logger) {
	ticker := time.NewTicker(config.SnapshotLockTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := lock.Renew(ctx)
			if err != nil {
				log.WithError(err).Warn("Lock renewal failed")
				continue
			}
			if !ok {
				log.Error("Ingest lock lost, aborting")
				cancel()
				return
			}
		}
	}
}
