// Package vision holds the per-frame visual backends: captioning and text
// extraction. Both degrade to an empty result at the pipeline layer; the
// clients here surface errors so callers can decide what to absorb.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/surroundsense/surroundsense/internal/config"
	"github.com/surroundsense/surroundsense/internal/media"
)

const (
	maxCaptionTokens = 50
	minCaptionWords  = 10

	promptedQuestion = "Give me information about the surroundings, objects and things present in this image."
	plainInstruction = "Describe this image in one short caption."
)

// Describer produces a short natural-language description of a single frame.
type Describer struct {
	client *openai.Client
	model  string
	style  config.CaptionStyle
	logger *slog.Logger
}

func NewDescriber(client *openai.Client, model string, style config.CaptionStyle, logger *slog.Logger) *Describer {
	return &Describer{
		client: client,
		model:  model,
		style:  style,
		logger: logger,
	}
}

func (d *Describer) Describe(ctx context.Context, frame media.SampledFrame) (string, error) {
	var prompt string
	switch d.style {
	case config.CaptionPrompted:
		prompt = fmt.Sprintf("%s Answer in at least %d words.", promptedQuestion, minCaptionWords)
	default:
		prompt = plainInstruction
	}

	req := openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: maxCaptionTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    DataURI(frame.Data),
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	}

	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("caption frame %d: %w", frame.Index, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("caption frame %d: empty model response", frame.Index)
	}

	caption := strings.TrimSpace(resp.Choices[0].Message.Content)
	d.logger.Debug("frame captioned", "frame", frame.Index, "caption", caption)
	return caption, nil
}

// DataURI encodes an image payload as a base64 JPEG data URI.
func DataURI(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}
