package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docsearch-io/docsearch/internal/analytics"
	"github.com/docsearch-io/docsearch/internal/cache"
	"github.com/docsearch-io/docsearch/internal/engine"
	"github.com/docsearch-io/docsearch/internal/server"
	"github.com/docsearch-io/docsearch/internal/snapshot"
	"github.com/docsearch-io/docsearch/internal/watcher"
	"github.com/docsearch-io/docsearch/pkg/config"
	"github.com/docsearch-io/docsearch/pkg/health"
	"github.com/docsearch-io/docsearch/pkg/kafka"
	"github.com/docsearch-io/docsearch/pkg/logger"
	"github.com/docsearch-io/docsearch/pkg/metrics"
	"github.com/docsearch-io/docsearch/pkg/middleware"
	pkgredis "github.com/docsearch-io/docsearch/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// A missing or corrupt snapshot is fatal; the service never starts with
	// an empty index in its place.
	snap, err := snapshot.Load(cfg.Index.SnapshotPath())
	if err != nil {
		if m != nil {
			m.SnapshotLoadsTotal.WithLabelValues("error").Inc()
		}
		slog.Error("failed to load index snapshot", "path", cfg.Index.SnapshotPath(), "error", err)
		os.Exit(1)
	}
	if m != nil {
		m.SnapshotLoadsTotal.WithLabelValues("ok").Inc()
		m.SnapshotDocuments.Set(float64(snap.DocCount()))
		m.SnapshotTerms.Set(float64(snap.TermCount()))
	}
	slog.Info("index snapshot loaded",
		"path", cfg.Index.SnapshotPath(),
		"documents", snap.DocCount(),
		"terms", snap.TermCount(),
	)
	eng := engine.New(snap)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.AnalyticsEvents)
	}

	if cfg.Index.WatchReload {
		onSwap := func() {
			if m != nil {
				current := eng.Snapshot()
				m.SnapshotLoadsTotal.WithLabelValues("ok").Inc()
				m.SnapshotDocuments.Set(float64(current.DocCount()))
				m.SnapshotTerms.Set(float64(current.TermCount()))
			}
			if queryCache != nil {
				if err := queryCache.Invalidate(context.Background()); err != nil {
					slog.Error("cache invalidation after reload failed", "error", err)
				}
			}
		}
		w, err := watcher.New(cfg.Index.SnapshotPath(), eng, onSwap)
		if err != nil {
			slog.Error("failed to start snapshot watcher", "error", err)
			os.Exit(1)
		}
		go w.Run(ctx)
		slog.Info("snapshot reload watcher started", "path", cfg.Index.SnapshotPath())
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		current := eng.Snapshot()
		if current.DocCount() > 0 {
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d documents, %d terms", current.DocCount(), current.TermCount()),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "empty index"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	h := server.New(eng, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults, cfg.Search.SuggestLimit)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("search service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
