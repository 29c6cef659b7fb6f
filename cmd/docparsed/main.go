package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/doctly"
	"github.com/joseph-ayodele/docparse/internal/notify"
	"github.com/joseph-ayodele/docparse/internal/queue"
	"github.com/joseph-ayodele/docparse/internal/repository"
	"github.com/joseph-ayodele/docparse/internal/server"
	"github.com/joseph-ayodele/docparse/internal/storage"
	"github.com/joseph-ayodele/docparse/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	// Credentials are deliberately NOT required at startup: the submission
	// boundary checks them per request, so the health surface stays up on a
	// half-configured deploy.
	logger.Info("config.loaded",
		"addr", cfg.Server.Addr,
		"doctly_base_url", cfg.Doctly.BaseURL,
		"missing_credentials", cfg.MissingCredentials(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewS3Gateway(ctx, cfg.S3, logger)
	if err != nil {
		logger.Error("startup.s3_gateway_failed", "error", err)
		os.Exit(1)
	}

	history, err := repository.NewSQLiteHistory(cfg.History.Path)
	if err != nil {
		logger.Error("startup.history_failed", "error", err, "path", cfg.History.Path)
		os.Exit(1)
	}
	defer history.Close()

	q := queue.NewJobQueue(logger)
	converter := doctly.NewClient(doctly.Config{
		APIKey:        cfg.Doctly.APIKey,
		BaseURL:       cfg.Doctly.BaseURL,
		Accuracy:      cfg.Doctly.Accuracy,
		UploadTimeout: cfg.Doctly.UploadTimeout,
		PollInterval:  cfg.Doctly.PollInterval,
		MaxWait:       cfg.Doctly.MaxWait,
	}, logger)
	notifier := notify.NewWebhookNotifier(cfg.Webhook.Timeout, logger)

	w := worker.New(q, store, converter, notifier, history, logger)
	w.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(cfg, q, history, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http.serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http.serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http.shutdown_error", "error", err)
	}

	q.Shutdown()
	w.Wait()
	logger.Info("stopped")
}
