// Watch-folder mode: videos dropped into the input directory are processed
// and their summary text and narration audio are written to the output
// directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	openai "github.com/sashabaranov/go-openai"

	"github.com/surroundsense/surroundsense/internal/config"
	"github.com/surroundsense/surroundsense/internal/media"
	"github.com/surroundsense/surroundsense/internal/pipeline"
	"github.com/surroundsense/surroundsense/internal/speech"
	"github.com/surroundsense/surroundsense/internal/summarizer"
	"github.com/surroundsense/surroundsense/internal/vision"
	"github.com/surroundsense/surroundsense/internal/watcher"
	"github.com/surroundsense/surroundsense/pkg/executor"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
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

	for _, dir := range []string{cfg.WatchInput, cfg.WatchOutput} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	orch := buildPipeline(cfg, logger)
	handler := makeHandler(orch, cfg.WatchOutput, logger)

	w, err := watcher.New(cfg.WatchInput, handler, cfg.FrameWorkers, logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return w.Start(ctx)
}

// makeHandler returns the per-video handler: run the pipeline, then write
// <name>.txt and <name>.mp3 next to each other in outputDir.
func makeHandler(orch *pipeline.Orchestrator, outputDir string, logger *slog.Logger) watcher.Handler {
	return func(ctx context.Context, videoPath string) error {
		base := filepath.Base(videoPath)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		audioPath := filepath.Join(outputDir, stem+".mp3")
		textPath := filepath.Join(outputDir, stem+".txt")

		start := time.Now()
		result, err := orch.Run(ctx, videoPath, audioPath)
		if err != nil {
			return fmt.Errorf("process %s: %w", base, err)
		}

		if err := os.WriteFile(textPath, []byte(result.Summary+"\n"), 0o644); err != nil {
			return fmt.Errorf("write summary for %s: %w", base, err)
		}

		logger.Info("video processed",
			"video", base,
			"audio", filepath.Base(audioPath),
			"duration", time.Since(start).Round(time.Millisecond),
		)
		return nil
	}
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
