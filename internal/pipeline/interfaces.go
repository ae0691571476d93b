package pipeline

import (
	"context"

	"github.com/surroundsense/surroundsense/internal/media"
)

// FrameSampler materializes the sampled frame set for a video. An unreadable
// source yields an empty slice, never an error.
type FrameSampler interface {
	Sample(ctx context.Context, videoPath string) []media.SampledFrame
}

// FrameDescriber captions a single frame.
type FrameDescriber interface {
	Describe(ctx context.Context, frame media.SampledFrame) (string, error)
}

// TextExtractor extracts legible text from a single frame.
type TextExtractor interface {
	ExtractText(ctx context.Context, frame media.SampledFrame) (string, error)
}

// Summarizer turns the aggregated document into a bounded narrative summary.
type Summarizer interface {
	Summarize(ctx context.Context, document string) (string, error)
}

// SpeechSynthesizer renders summary text to an audio file at destPath. The
// call blocks until the artifact is fully written or the synthesis failed.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, destPath string) error
}
