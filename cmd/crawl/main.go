// Package main crawls the university website into the local corpus.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/config"
	"github.com/garyellow/uni-assistant-go/internal/crawler"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/scraper"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

var (
	exportFlag   = flag.String("export", "", "Also write every stored page to this flat text file")
	maxPagesFlag = flag.Int("max-pages", 0, "Page limit (0 = use config)")
	seedFlag     = flag.String("seed", "", "Seed URL (empty = use config)")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadForMode(config.CrawlMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *maxPagesFlag > 0 {
		cfg.Crawler.MaxPages = *maxPagesFlag
	}
	if *seedFlag != "" {
		cfg.Crawler.SeedURL = *seedFlag
	}

	log := logger.New(cfg.LogLevel)
	log.WithFields(map[string]any{
		"seed":      cfg.Crawler.SeedURL,
		"max_pages": cfg.Crawler.MaxPages,
		"delay":     cfg.Crawler.Delay.String(),
	}).Info("Starting crawler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer func() { _ = db.Close() }()

	client := scraper.NewClient(scraper.ClientConfig{
		Timeout:      cfg.Crawler.Timeout,
		Delay:        cfg.Crawler.Delay,
		MaxRetries:   cfg.Crawler.MaxRetries,
		InitialDelay: config.ScraperRetryInitial,
	})
	c := crawler.New(client, db, crawler.Config{
		SeedURL:  cfg.Crawler.SeedURL,
		MaxPages: cfg.Crawler.MaxPages,
	}, log, nil)

	stats, err := c.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Crawl stopped early")
	}

	if *exportFlag != "" {
		if exportErr := export(ctx, db, *exportFlag); exportErr != nil {
			log.WithError(exportErr).Fatal("Export failed")
		}
		log.WithField("path", *exportFlag).Info("Corpus exported")
	}

	fmt.Printf("Crawl finished: %d saved, %d skipped, %d failed in %v\n",
		stats.Saved, stats.Skipped, stats.Failed, stats.Duration.Round(time.Second))
	if err != nil {
		os.Exit(1)
	}
}

func export(ctx context.Context, db *storage.DB, path string) error {
	pages, err := db.ListPages(ctx)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := crawler.Export(f, pages); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
