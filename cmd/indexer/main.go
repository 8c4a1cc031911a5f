// Command indexer maintains the persisted indexes offline. It can import
// source documents from a JSON Lines file and then either initialise the
// indexes (load what exists, build the rest) or rebuild them from scratch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/importer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/taskpool"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	importPath := flag.String("import", "", "JSON Lines file of {title, content, url} documents to add to the source table")
	rebuild := flag.Bool("rebuild", false, "rebuild both indexes from the source table and replace the persisted ones")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	for _, w := range cfg.Warnings() {
		slog.Warn("config warning", "detail", w)
	}

	if err := run(cfg, *importPath, *rebuild); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, importPath string, rebuild bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	if importPath != "" {
		f, err := os.Open(importPath)
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		res, err := importer.New(st, 0).Import(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("importing %s: %w", importPath, err)
		}
		slog.Info("documents imported", "file", importPath, "imported", res.Imported, "rejected", res.Rejected)
	}

	// Offline runs have nothing better to do than wait for capacity.
	pool, err := taskpool.New(taskpool.Options{
		Workers:       cfg.TaskPool.Workers,
		MaxQueueDepth: cfg.TaskPool.MaxQueueDepth,
		Policy:        taskpool.PolicyBlock,
		Timeouts:      cfg.TaskPool.Timeouts,
	})
	if err != nil {
		return err
	}
	defer pool.Shutdown(context.Background())

	engine := indexer.NewEngine(st, pool, tokenizer.New(tokenizer.Options{
		Stem:      cfg.Tokenizer.Stem,
		MinLength: cfg.Tokenizer.MinTokenLength,
	}), indexer.Options{PersistParallelism: cfg.TaskPool.PersistParallelism})

	var report *indexer.Report
	if rebuild {
		report, err = engine.Reload(ctx)
	} else {
		report, err = engine.Initialize(ctx)
	}
	if report != nil {
		slog.Info("indexer finished",
			"forward", report.Forward,
			"inverted", report.Inverted,
			"documents", report.Documents,
			"terms", report.Terms,
			"persisted_shards", report.PersistedShards,
			"failed_shards", report.FailedShards,
			"skipped_terms", report.SkippedTerms,
			"duration", report.Duration,
		)
	}
	return err
}
