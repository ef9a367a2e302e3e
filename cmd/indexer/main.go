package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docsearch-io/docsearch/internal/builder"
	"github.com/docsearch-io/docsearch/internal/snapshot"
	"github.com/docsearch-io/docsearch/internal/source"
	"github.com/docsearch-io/docsearch/pkg/config"
	"github.com/docsearch-io/docsearch/pkg/logger"
	"github.com/docsearch-io/docsearch/pkg/postgres"
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
	slog.Info("starting index build",
		"source", cfg.Source.Kind,
		"snapshot", cfg.Index.SnapshotPath(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, cleanup, err := newSource(cfg)
	if err != nil {
		slog.Error("failed to open document source", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	start := time.Now()
	snap, err := builder.New(cfg.Index.BuildWorkers).Build(ctx, src)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	if err := snapshot.Write(cfg.Index.SnapshotPath(), snap); err != nil {
		slog.Error("snapshot write failed", "error", err)
		os.Exit(1)
	}

	slog.Info("index build complete",
		"documents", snap.DocCount(),
		"terms", snap.TermCount(),
		"snapshot", cfg.Index.SnapshotPath(),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
}

func newSource(cfg *config.Config) (source.Source, func(), error) {
	switch cfg.Source.Kind {
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return source.NewPostgresSource(client, cfg.Postgres.Table), func() { client.Close() }, nil
	default:
		return source.NewFSSource(cfg.Source.DataDir), func() {}, nil
	}
}
