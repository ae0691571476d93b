package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/surroundsense/surroundsense/pkg/executor"

	_ "image/jpeg"
	_ "image/png"
)

// SampledFrame is one decoded frame together with its zero-based index in the
// source video. Immutable once produced.
type SampledFrame struct {
	Index int
	Data  []byte
}

// Sampler extracts every Nth frame of a video via ffmpeg. An unreadable or
// empty source yields an empty slice rather than an error, so callers can
// react uniformly to "nothing to work with".
type Sampler struct {
	exec     executor.Executor
	interval int
	logger   *slog.Logger
}

func NewSampler(exec executor.Executor, interval int, logger *slog.Logger) *Sampler {
	return &Sampler{
		exec:     exec,
		interval: interval,
		logger:   logger,
	}
}

// SampleIndices returns the original frame indices retained for a video with
// total frames at the given stride: 0, interval, 2*interval, ... < total.
func SampleIndices(total, interval int) []int {
	if total <= 0 || interval < 1 {
		return nil
	}
	indices := make([]int, 0, (total+interval-1)/interval)
	for i := 0; i < total; i += interval {
		indices = append(indices, i)
	}
	return indices
}

// Sample materializes the sampled frame set for videoPath. The whole set is
// decoded eagerly so downstream per-frame work can be fanned out.
func (s *Sampler) Sample(ctx context.Context, videoPath string) []SampledFrame {
	total, err := s.frameCount(ctx, videoPath)
	if err != nil {
		s.logger.Warn("video source unreadable", "path", videoPath, "error", err)
		return nil
	}

	indices := SampleIndices(total, s.interval)
	if len(indices) == 0 {
		s.logger.Warn("video source has no frames", "path", videoPath)
		return nil
	}

	scratch, err := os.MkdirTemp("", "surroundsense-frames-")
	if err != nil {
		s.logger.Warn("failed to create frame scratch directory", "error", err)
		return nil
	}
	defer os.RemoveAll(scratch)

	pattern := filepath.Join(scratch, "frame_%06d.jpg")
	_, err = s.exec.Execute(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d))", s.interval),
		"-vsync", "vfr",
		"-q:v", "2",
		"-y",
		pattern,
	)
	if err != nil {
		s.logger.Warn("frame extraction failed", "path", videoPath, "error", err)
		return nil
	}

	files, err := filepath.Glob(filepath.Join(scratch, "frame_*.jpg"))
	if err != nil || len(files) == 0 {
		s.logger.Warn("no frames produced", "path", videoPath)
		return nil
	}
	sort.Strings(files)

	// ffmpeg numbers output files in selection order, so the j-th file
	// corresponds to original index j*interval.
	if len(files) < len(indices) {
		indices = indices[:len(files)]
	}

	frames := make([]SampledFrame, 0, len(indices))
	for j, idx := range indices {
		data, err := os.ReadFile(files[j])
		if err != nil {
			s.logger.Warn("failed to read frame file", "file", files[j], "error", err)
			continue
		}
		frames = append(frames, SampledFrame{Index: idx, Data: data})
	}

	s.logger.Debug("sampled frames", "path", videoPath, "total", total, "sampled", len(frames))
	return frames
}

func (s *Sampler) frameCount(ctx context.Context, videoPath string) (int, error) {
	out, err := s.exec.Execute(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	count, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse frame count: %w", err)
	}
	return count, nil
}

// ValidFrame reports whether data holds a decodable raster image. Frames
// failing this check are dropped by the pipeline, not replaced with empty
// observations.
func ValidFrame(data []byte) error {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}
