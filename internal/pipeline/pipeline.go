// Package pipeline sequences the video-to-speech stages: frame sampling,
// per-frame observation (caption + OCR), aggregation, summarization and
// speech synthesis. Per-frame failures are absorbed as empty observations;
// only the three gates (no content, failed summarization, failed synthesis)
// terminate an invocation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/surroundsense/surroundsense/internal/media"
	"github.com/surroundsense/surroundsense/internal/metrics"
)

// Result is the success envelope of one pipeline invocation.
type Result struct {
	Summary  string
	AudioRef string
}

// Orchestrator runs the pipeline over injected capabilities. Safe for
// concurrent use: invocations share nothing but the read-only collaborators.
type Orchestrator struct {
	sampler     FrameSampler
	describer   FrameDescriber
	extractor   TextExtractor
	summarizer  Summarizer
	synthesizer SpeechSynthesizer
	workers     int
	logger      *slog.Logger
}

func New(
	sampler FrameSampler,
	describer FrameDescriber,
	extractor TextExtractor,
	summarizer Summarizer,
	synthesizer SpeechSynthesizer,
	workers int,
	logger *slog.Logger,
) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		sampler:     sampler,
		describer:   describer,
		extractor:   extractor,
		summarizer:  summarizer,
		synthesizer: synthesizer,
		workers:     workers,
		logger:      logger,
	}
}

// Run executes the gates in order and returns either a Result or the
// error of the first gate that failed. audioPath is where the synthesized
// artifact is written; Result.AudioRef is its base name.
func (o *Orchestrator) Run(ctx context.Context, videoPath, audioPath string) (*Result, error) {
	start := time.Now()

	// Gate 1: sample and observe frames.
	sampleStart := time.Now()
	frames := o.sampler.Sample(ctx, videoPath)
	metrics.StageDuration.WithLabelValues("sample").Observe(time.Since(sampleStart).Seconds())
	metrics.FramesSampledTotal.Add(float64(len(frames)))

	observeStart := time.Now()
	observations := o.observeFrames(ctx, frames)
	metrics.StageDuration.WithLabelValues("observe").Observe(time.Since(observeStart).Seconds())

	document, err := BuildDocument(observations)
	if err != nil {
		o.logger.Error("no content extracted", "video", videoPath, "frames", len(frames))
		metrics.PipelinesTotal.WithLabelValues("no_content").Inc()
		return nil, err
	}

	// Gate 2: summarize.
	summaryStart := time.Now()
	summary, err := o.summarizer.Summarize(ctx, document)
	metrics.StageDuration.WithLabelValues("summarize").Observe(time.Since(summaryStart).Seconds())
	if err != nil || summary == "" {
		o.logger.Error("summarization failed", "video", videoPath, "error", err)
		metrics.PipelinesTotal.WithLabelValues("summarization_failed").Inc()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
		}
		return nil, ErrSummarizationFailed
	}

	// Gate 3: synthesize speech.
	synthStart := time.Now()
	err = o.synthesizer.Synthesize(ctx, summary, audioPath)
	metrics.StageDuration.WithLabelValues("synthesize").Observe(time.Since(synthStart).Seconds())
	if err != nil {
		o.logger.Error("audio generation failed", "video", videoPath, "error", err)
		metrics.PipelinesTotal.WithLabelValues("audio_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrAudioGenerationFailed, err)
	}

	metrics.PipelinesTotal.WithLabelValues("completed").Inc()
	o.logger.Info("pipeline completed",
		"video", videoPath,
		"frames", len(frames),
		"observations", len(observations),
		"duration", time.Since(start),
	)

	return &Result{
		Summary:  summary,
		AudioRef: filepath.Base(audioPath),
	}, nil
}

// observeFrames captions and OCRs each sampled frame on a bounded worker
// pool. Results are written into a slice indexed by sample position, so the
// output is in ascending original frame-index order regardless of completion
// order. Frames that fail the raster conversion check are dropped; caption or
// OCR failures degrade to empty fields.
func (o *Orchestrator) observeFrames(ctx context.Context, frames []media.SampledFrame) []FrameObservation {
	type slot struct {
		obs FrameObservation
		ok  bool
	}
	slots := make([]slot, len(frames))

	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	for i, frame := range frames {
		if err := media.ValidFrame(frame.Data); err != nil {
			o.logger.Warn("dropping unconvertible frame", "frame", frame.Index, "error", err)
			metrics.FramesDroppedTotal.Inc()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, frame media.SampledFrame) {
			defer wg.Done()
			defer func() { <-sem }()

			description, err := o.describer.Describe(ctx, frame)
			if err != nil {
				o.logger.Warn("frame description failed", "frame", frame.Index, "error", err)
				description = ""
			}

			text, err := o.extractor.ExtractText(ctx, frame)
			if err != nil {
				o.logger.Warn("frame text extraction failed", "frame", frame.Index, "error", err)
				text = ""
			}

			slots[i] = slot{
				obs: FrameObservation{
					FrameIndex:    frame.Index,
					Description:   description,
					ExtractedText: text,
				},
				ok: true,
			}
		}(i, frame)
	}
	wg.Wait()

	observations := make([]FrameObservation, 0, len(frames))
	for _, s := range slots {
		if s.ok {
			observations = append(observations, s.obs)
		}
	}
	return observations
}
