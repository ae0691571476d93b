package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/surroundsense/surroundsense/internal/config"
	"github.com/surroundsense/surroundsense/internal/media"
)

const ocrInstruction = "Extract any legible text visible in this image. " +
	"Return only the extracted text, with no commentary. " +
	"If there is no legible text, return nothing."

// Document is the unit an OCR backend consumes: either a path to an image
// file on disk, or the image inlined as a base64 data URI. Exactly one field
// is set, depending on the configured transport.
type Document struct {
	Path    string
	DataURI string
}

// OCRBackend performs text extraction on a single document.
type OCRBackend interface {
	Process(ctx context.Context, doc Document) (string, error)
}

// Extractor extracts legible text from a frame. The frame is always written
// to a transient file first, because the backend consumes a file or an
// encoded payload rather than a raw raster, and that file is removed on
// every exit path before the call returns.
type Extractor struct {
	backend   OCRBackend
	transport config.OCRTransport
	logger    *slog.Logger
}

func NewExtractor(backend OCRBackend, transport config.OCRTransport, logger *slog.Logger) *Extractor {
	return &Extractor{
		backend:   backend,
		transport: transport,
		logger:    logger,
	}
}

func (e *Extractor) ExtractText(ctx context.Context, frame media.SampledFrame) (string, error) {
	tmp, err := os.CreateTemp("", "surroundsense-frame-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create transient frame file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(frame.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write transient frame file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close transient frame file: %w", err)
	}

	var doc Document
	switch e.transport {
	case config.TransportDataURI:
		data, err := os.ReadFile(tmp.Name())
		if err != nil {
			return "", fmt.Errorf("encode transient frame file: %w", err)
		}
		doc = Document{DataURI: DataURI(data)}
	default:
		doc = Document{Path: tmp.Name()}
	}

	text, err := e.backend.Process(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("ocr frame %d: %w", frame.Index, err)
	}

	text = strings.TrimSpace(text)
	e.logger.Debug("frame text extracted", "frame", frame.Index, "chars", len(text))
	return text, nil
}

// OpenAIOCRBackend extracts text with a vision chat completion against any
// OpenAI-compatible endpoint.
type OpenAIOCRBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIOCRBackend(client *openai.Client, model string) *OpenAIOCRBackend {
	return &OpenAIOCRBackend{client: client, model: model}
}

func (b *OpenAIOCRBackend) Process(ctx context.Context, doc Document) (string, error) {
	uri := doc.DataURI
	if uri == "" {
		// File transport: the backend consumes the file itself.
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		uri = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	}

	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: ocrInstruction},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    uri,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return resp.Choices[0].Message.Content, nil
}
