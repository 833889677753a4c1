// Package main answers one question from the command line using the same
// pipeline as the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/garyellow/uni-assistant-go/internal/app"
	"github.com/garyellow/uni-assistant-go/internal/chat"
	"github.com/garyellow/uni-assistant-go/internal/config"
	"github.com/garyellow/uni-assistant-go/internal/document"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/rag"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

// fileList collects repeated -f flags.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

var (
	queryFlag = flag.String("q", "", "Question to ask (defaults to the remaining arguments)")
	traceFlag = flag.Bool("trace", false, "Print the steps taken before the answer")
	jsonFlag  = flag.Bool("json", false, "Print the answer as JSON")
	files     fileList
)

func main() {
	flag.Var(&files, "f", "Document to answer from (repeatable)")
	flag.Parse()

	query := strings.TrimSpace(*queryFlag)
	if query == "" {
		query = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if query == "" && len(files) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "usage: ask [-f file]... [-trace] [-json] -q question")
		os.Exit(2)
	}

	cfg, err := config.LoadForMode(config.CLIMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout carries only the answer.
	log := logger.NewWithWriter(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		src   rag.ChunkLister
		store chat.LogStore
	)
	if _, err := os.Stat(cfg.SQLitePath()); err == nil {
		db, err := storage.New(ctx, cfg.SQLitePath())
		if err != nil {
			log.WithError(err).Fatal("Failed to open database")
		}
		defer func() { _ = db.Close() }()
		src, store = db, db
	}

	components, err := app.BuildPipeline(ctx, cfg, src, log, nil)
	if err != nil {
		log.WithError(err).Fatal("Failed to build pipeline")
	}

	service := chat.New(chat.Config{
		Answerer: components.Orchestrator,
		Log:      store,
		Logger:   log,
	})

	docs := make([]document.File, 0, len(files))
	for _, p := range files {
		docs = append(docs, document.File{Path: p, Name: filepath.Base(p)})
	}

	reply, err := service.Ask(ctx, chat.Request{
		Channel:   chat.ChannelCLI,
		SessionID: "cli",
		Query:     query,
		Files:     docs,
	})
	if err != nil {
		log.WithError(err).Fatal("Question rejected")
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"request_id":  reply.RequestID,
			"mode":        reply.Mode,
			"status":      reply.Status,
			"trace":       reply.Trace,
			"answer":      reply.Text,
			"duration_ms": reply.Duration.Milliseconds(),
		})
		return
	}
	if *traceFlag {
		for _, step := range reply.Trace {
			fmt.Println("> " + step)
		}
		fmt.Println()
	}
	fmt.Println(reply.Text)
}
