package main

// proposer-follower follows an algod node block by block and records the proposer and timestamp of
// every block in a SQLite database. It resumes from the highest block already stored.

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voi-tools/proposer-follower/client/algod"
	"github.com/voi-tools/proposer-follower/config"
	"github.com/voi-tools/proposer-follower/ingester"
	"github.com/voi-tools/proposer-follower/store"
	"golang.org/x/sync/errgroup"
)

func init() {
	// always use UTC
	time.Local = time.UTC
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	switch cfg.LogFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}))
	}
}

func main() {
	// a missing .env file is fine, the environment and flags still apply
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		// go-flags already printed the error or the help text
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(logger, cfg); err != nil {
		logger.Error("Proposer follower stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, logger, store.Config{Path: cfg.DBFile})
	if err != nil {
		return err
	}
	defer db.Close()

	if count, err := db.CountBlocks(ctx); err == nil {
		logger.Info("Stored blocks", "count", count, "file", cfg.DBFile)
	}

	node, err := algod.NewClient(logger, algod.Config{
		URL:         cfg.Algod.URL(),
		Token:       cfg.Algod.Token,
		HTTPHeaders: cfg.Algod.Headers,
	})
	if err != nil {
		return err
	}

	ing, err := ingester.New(logger, node, db, ingester.Config{
		PollInterval:           cfg.PollInterval,
		RetryInterval:          cfg.RetryInterval,
		RequestTimeout:         cfg.RequestTimeout,
		MaxInflightRequests:    cfg.MaxInflightRequests,
		MaxBlockAttempts:       cfg.MaxBlockAttempts,
		ReportProgressInterval: cfg.ReportProgressInterval,
	})
	if err != nil {
		_ = node.Close()
		return err
	}
	defer ing.Close()

	quit := make(chan os.Signal, 1)
	// handle Interrupt (ctrl-c) Term, used by `kill` et al, HUP which is commonly used to reload configs
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case s := <-quit:
			logger.Warn("Caught UNIX signal", "signal", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := ing.Run(ctx, 0)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.MetricsAddr != "" {
		group.Go(func() error {
			return serveMetrics(ctx, logger, cfg.MetricsAddr)
		})
	}
	return group.Wait()
}

func serveMetrics(ctx context.Context, logger *slog.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Errorf("metrics server: %w", err)
	}
	return nil
}
