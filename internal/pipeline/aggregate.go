package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Gate errors. Each aborts the remaining stages; none is retried.
var (
	ErrNoContent             = errors.New("no content extracted from video")
	ErrSummarizationFailed   = errors.New("summarization failed")
	ErrAudioGenerationFailed = errors.New("audio generation failed")
)

// FrameObservation is the per-frame result. Description and ExtractedText may
// independently be empty (per-frame soft failures degrade to ""); they are
// never absent.
type FrameObservation struct {
	FrameIndex    int
	Description   string
	ExtractedText string
}

// BuildDocument serializes observations into the aggregated document handed
// to the summarizer: one line per processed frame, in ascending original
// frame-index order. It returns ErrNoContent when there are no observations,
// or when every observation is empty in both fields.
func BuildDocument(observations []FrameObservation) (string, error) {
	if len(observations) == 0 {
		return "", ErrNoContent
	}

	ordered := make([]FrameObservation, len(observations))
	copy(ordered, observations)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].FrameIndex < ordered[j].FrameIndex
	})

	hasContent := false
	lines := make([]string, 0, len(ordered))
	for _, obs := range ordered {
		if obs.Description != "" || obs.ExtractedText != "" {
			hasContent = true
		}
		lines = append(lines, fmt.Sprintf("Caption: %s | OCR: %s", obs.Description, obs.ExtractedText))
	}

	if !hasContent {
		return "", ErrNoContent
	}
	return strings.Join(lines, "\n"), nil
}
