package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/surroundsense/surroundsense/internal/media"
)

type MockFrameSampler struct {
	SampleFunc func(ctx context.Context, videoPath string) []media.SampledFrame
	Calls      int
}

func (m *MockFrameSampler) Sample(ctx context.Context, videoPath string) []media.SampledFrame {
	m.Calls++
	return m.SampleFunc(ctx, videoPath)
}

// Per-frame mocks may be called from multiple workers, so their counters are
// atomic.
type MockFrameDescriber struct {
	DescribeFunc func(ctx context.Context, frame media.SampledFrame) (string, error)
	Calls        atomic.Int64
}

func (m *MockFrameDescriber) Describe(ctx context.Context, frame media.SampledFrame) (string, error) {
	m.Calls.Add(1)
	return m.DescribeFunc(ctx, frame)
}

type MockTextExtractor struct {
	ExtractTextFunc func(ctx context.Context, frame media.SampledFrame) (string, error)
	Calls           atomic.Int64
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, frame media.SampledFrame) (string, error) {
	m.Calls.Add(1)
	return m.ExtractTextFunc(ctx, frame)
}

type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, document string) (string, error)
	Calls         int
}

func (m *MockSummarizer) Summarize(ctx context.Context, document string) (string, error) {
	m.Calls++
	return m.SummarizeFunc(ctx, document)
}

type MockSpeechSynthesizer struct {
	SynthesizeFunc func(ctx context.Context, text, destPath string) error
	Calls          int
}

func (m *MockSpeechSynthesizer) Synthesize(ctx context.Context, text, destPath string) error {
	m.Calls++
	return m.SynthesizeFunc(ctx, text, destPath)
}
