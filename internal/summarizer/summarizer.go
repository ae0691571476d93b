// Package summarizer turns the aggregated frame document into a single
// bounded narrative paragraph via a chat completion against any
// OpenAI-compatible endpoint (the default model targets Groq).
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pemistahl/lingua-go"
	openai "github.com/sashabaranov/go-openai"
)

const systemInstructionTemplate = `You are a virtual AI assistant designed to help visually impaired individuals by enhancing their situational awareness. ` +
	`Analyze the provided scene context, which includes descriptions of surroundings, objects, spatial layout, and other relevant elements derived from visual data. ` +
	`Generate a clear, coherent, and engaging single-paragraph summary in a natural, human-like tone. If any navigation instructions are present, ` +
	`seamlessly incorporate them into the description. The summary should resemble a short narrative that vividly and accessibly communicates the environment, ` +
	`without referencing how the information was obtained. Do not use any special characters, line breaks, or bullet points. ` +
	`Ensure the output is exactly %d to %d words, with no preamble, greetings, or closing statements, only the summary.`

type Summarizer struct {
	client   *openai.Client
	model    string
	minWords int
	maxWords int
	detector lingua.LanguageDetector
	logger   *slog.Logger
}

func New(client *openai.Client, model string, minWords, maxWords int, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		client:   client,
		model:    model,
		minWords: minWords,
		maxWords: maxWords,
		detector: lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build(),
		logger:   logger,
	}
}

// Summarize sends the aggregated document to the model with the fixed system
// instruction and returns the trimmed narrative. A failed call or an empty
// response surfaces as an error; the orchestrator treats it as a terminal
// gate failure.
func (s *Summarizer) Summarize(ctx context.Context, document string) (string, error) {
	if language, ok := s.detector.DetectLanguageOf(document); ok {
		s.logger.Debug("detected document language", "language", language.String())
	}

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemInstructionTemplate, s.minWords, s.maxWords),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: document,
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize: empty model response")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("summarize: model returned empty summary")
	}

	s.logger.Debug("summary generated", "words", len(strings.Fields(summary)))
	return summary, nil
}
