// Package speech renders summary text to an mp3 artifact.
package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

type Synthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	logger *slog.Logger
}

func New(client *openai.Client, model, voice string, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		client: client,
		model:  openai.SpeechModel(model),
		voice:  openai.SpeechVoice(voice),
		logger: logger,
	}
}

// Synthesize renders text as speech and writes the complete mp3 to destPath.
// The call blocks until the artifact is fully written; a partial file is
// removed on failure so no truncated artifact is ever served.
func (s *Synthesizer) Synthesize(ctx context.Context, text, destPath string) error {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}

	if _, err := io.Copy(out, resp); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("close audio file: %w", err)
	}

	s.logger.Debug("audio synthesized", "path", destPath, "chars", len(text))
	return nil
}
