package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	openai "github.com/sashabaranov/go-openai"

	"github.com/surroundsense/surroundsense/internal/config"
	"github.com/surroundsense/surroundsense/internal/media"
	"github.com/surroundsense/surroundsense/internal/pipeline"
	"github.com/surroundsense/surroundsense/internal/server"
	"github.com/surroundsense/surroundsense/internal/speech"
	"github.com/surroundsense/surroundsense/internal/storage"
	"github.com/surroundsense/surroundsense/internal/summarizer"
	"github.com/surroundsense/surroundsense/internal/vision"
	"github.com/surroundsense/surroundsense/pkg/executor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	sweepUploadDir(cfg.UploadDir, logger)

	orch := buildPipeline(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.DatabaseURL != "" {
		store, err = storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer store.Close()
		logger.Info("run history enabled")
	}

	srv := server.New(orch, store, cfg.UploadDir, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: srv.Handler(cfg.CORSOrigins),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildPipeline(cfg *config.Config, logger *slog.Logger) *pipeline.Orchestrator {
	mainClient := newClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)

	summaryClient := mainClient
	if cfg.SummaryAPIKey != "" || cfg.SummaryBaseURL != "" {
		key := cfg.SummaryAPIKey
		if key == "" {
			key = cfg.OpenAIAPIKey
		}
		summaryClient = newClient(key, cfg.SummaryBaseURL)
	}

	sampler := media.NewSampler(executor.New(), cfg.SamplingInterval, logger)
	describer := vision.NewDescriber(mainClient, cfg.CaptionModel, cfg.CaptionStyle, logger)
	extractor := vision.NewExtractor(
		vision.NewOpenAIOCRBackend(mainClient, cfg.OCRModel),
		cfg.OCRTransport,
		logger,
	)
	summ := summarizer.New(summaryClient, cfg.SummaryModel, cfg.SummaryMinWords, cfg.SummaryMaxWords, logger)
	synth := speech.New(mainClient, cfg.TTSModel, cfg.TTSVoice, logger)

	return pipeline.New(sampler, describer, extractor, summ, synth, cfg.FrameWorkers, logger)
}

func newClient(apiKey, baseURL string) *openai.Client {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}

// sweepUploadDir removes files left behind by a previous run that was
// interrupted before its deferred cleanup could fire.
func sweepUploadDir(dir string, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("failed to sweep upload dir", "dir", dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove stale upload", "path", path, "error", err)
			continue
		}
		logger.Debug("removed stale upload", "path", path)
	}
}
