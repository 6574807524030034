package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/faxfinity/faxsort/internal/api"
	"github.com/faxfinity/faxsort/internal/archive"
	"github.com/faxfinity/faxsort/internal/classify"
	"github.com/faxfinity/faxsort/internal/config"
	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/journal"
	"github.com/faxfinity/faxsort/internal/naming"
	"github.com/faxfinity/faxsort/internal/pipeline"
	"github.com/faxfinity/faxsort/internal/watcher"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Credentials may live in a .env next to the binary.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logger.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting faxsort",
		zap.String("inbox", cfg.Inbox.Root),
		zap.Duration("poll_interval", cfg.Inbox.PollInterval),
		zap.String("model", cfg.Classifier.Model))

	// A broken folder layout aborts the run before any file is touched.
	folders := fax.NewFolders(cfg.Inbox.Root)
	if err := folders.Ensure(); err != nil {
		logger.Fatal("Folder setup failed", zap.Error(err))
	}

	jnl, err := journal.Open(cfg.Journal.Path, logger)
	if err != nil {
		logger.Fatal("Failed to open journal", zap.Error(err))
	}
	defer jnl.Close()

	classifier := classify.NewClient(classify.Config{
		APIKey:            cfg.Classifier.APIKey,
		BaseURL:           cfg.Classifier.BaseURL,
		Model:             cfg.Classifier.Model,
		Timeout:           cfg.Classifier.Timeout,
		MaxAttempts:       cfg.Classifier.MaxAttempts,
		RetryBackoff:      cfg.Classifier.RetryBackoff,
		RequestsPerMinute: cfg.Classifier.RequestsPerMinute,
		MaxPages:          cfg.Classifier.MaxPages,
	}, cfg.Pipeline.OwnName, logger)

	builder := naming.NewBuilder(naming.NewRegistry(), cfg.Pipeline.OwnName)
	archiver := archive.New(folders.Archive, logger)
	pipe := pipeline.New(folders, archiver, classifier, builder, jnl, logger)
	scanner := watcher.New(folders.Inbox, logger)

	worker := pipeline.NewScanWorker(pipeline.ScanWorkerConfig{
		PollInterval: cfg.Inbox.PollInterval,
		Workers:      cfg.Pipeline.Workers,
	}, scanner, pipe, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Start(ctx); err != nil {
		logger.Fatal("Failed to start scan worker", zap.Error(err))
	}

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	api.NewHandlers(folders, jnl, worker, logger).Register(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start status server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down, draining in-flight files...")

	// Stop blocks until the current batch reaches terminal states.
	if err := worker.Stop(); err != nil {
		logger.Error("Worker shutdown failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
