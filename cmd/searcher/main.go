package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/auth/session"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/taskpool"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
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

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db)
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("document store ready", "driver", db.Driver())

	policy, err := taskpool.ParsePolicy(cfg.TaskPool.Policy)
	if err != nil {
		return err
	}
	pool, err := taskpool.New(taskpool.Options{
		Workers:       cfg.TaskPool.Workers,
		MaxQueueDepth: cfg.TaskPool.MaxQueueDepth,
		Policy:        policy,
		Timeouts:      cfg.TaskPool.Timeouts,
		Metrics:       m,
	})
	if err != nil {
		return err
	}
	// Runs after the HTTP server has drained.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			slog.Error("task pool shutdown incomplete", "error", err)
		}
	}()

	tok := tokenizer.New(tokenizer.Options{
		Stem:      cfg.Tokenizer.Stem,
		MinLength: cfg.Tokenizer.MinTokenLength,
	})
	engine := indexer.NewEngine(st, pool, tok, indexer.Options{
		PersistParallelism: cfg.TaskPool.PersistParallelism,
		Metrics:            m,
	})
	suggester := autocomplete.NewSuggester(pool,
		autocomplete.NewSelector(cfg.Autocomplete.MaxTermLength, cfg.Autocomplete.Initials),
		autocomplete.Options{Limit: cfg.Autocomplete.Limit, Metrics: m},
	)
	engine.OnPublish(suggester.OnSnapshot)

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			engine.OnPublish(func(*indexer.Snapshot) {
				if err := queryCache.Invalidate(context.Background()); err != nil {
					slog.Warn("dropping cached results after index swap failed", "error", err)
				}
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	report, err := engine.Initialize(ctx)
	if err != nil {
		// A partial index still serves queries.
		slog.Error("index initialization incomplete", "error", err)
	}
	if report != nil {
		slog.Info("index ready",
			"forward", report.Forward,
			"inverted", report.Inverted,
			"documents", report.Documents,
			"terms", report.Terms,
		)
	}

	var tracker handler.Tracker
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.Options{})
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("search analytics enabled", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	var sessions *session.Manager
	if cfg.Auth.Enabled {
		var sessionStore session.Store
		if redisClient != nil {
			sessionStore = session.NewRedisStore(redisClient)
		} else {
			mem := session.NewMemoryStore()
			go mem.RunSweeper(ctx, time.Minute)
			sessionStore = mem
		}
		sessions = session.NewManager(st, sessionStore, session.Options{TTL: cfg.Auth.SessionTTL})
	}

	checker := health.NewChecker()
	checker.Register("database", health.PingCheck(st.Ping))
	checker.Register("index", engine.HealthCheck)
	if redisClient != nil {
		checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
	}

	deps := handler.Deps{
		Executor:     executor.New(engine, pool, tok),
		Suggester:    suggester,
		Index:        engine,
		Cache:        queryCache,
		Tracker:      tracker,
		Metrics:      m,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
	}
	if sessions != nil {
		deps.Accounts = sessions
	}
	h := handler.New(deps)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(h, checker, router.Options{
			Ingest:         ingesthandler.New(st),
			Sessions:       sessions,
			Limiter:        limiter,
			Metrics:        m,
			RequestTimeout: cfg.Server.RequestTimeout,
			AllowOrigins:   cfg.Server.AllowOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-drained
		return fmt.Errorf("serving http: %w", err)
	}
	// Handlers must finish before the collector and pool are closed.
	<-drained
	return nil
}
