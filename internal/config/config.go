package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// CaptionStyle selects how the describer prompts the vision model.
type CaptionStyle string

const (
	CaptionPlain    CaptionStyle = "plain"
	CaptionPrompted CaptionStyle = "prompted"
)

// OCRTransport selects how a frame reaches the text-extraction backend.
type OCRTransport string

const (
	TransportFile    OCRTransport = "file"
	TransportDataURI OCRTransport = "data_uri"
)

type Config struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// The summarizer may talk to a different OpenAI-compatible endpoint
	// (e.g. Groq). Empty values fall back to the main key/endpoint.
	SummaryAPIKey  string `env:"SUMMARY_API_KEY"`
	SummaryBaseURL string `env:"SUMMARY_BASE_URL"`

	CaptionModel string `env:"CAPTION_MODEL" envDefault:"gpt-4o-mini"`
	OCRModel     string `env:"OCR_MODEL"     envDefault:"gpt-4o-mini"`
	SummaryModel string `env:"SUMMARY_MODEL" envDefault:"llama-3.3-70b-versatile"`
	TTSModel     string `env:"TTS_MODEL"     envDefault:"tts-1"`
	TTSVoice     string `env:"TTS_VOICE"     envDefault:"alloy"`

	SamplingInterval int          `env:"SAMPLING_INTERVAL" envDefault:"20"`
	CaptionStyle     CaptionStyle `env:"CAPTION_STYLE"     envDefault:"prompted"`
	OCRTransport     OCRTransport `env:"OCR_TRANSPORT"     envDefault:"data_uri"`
	SummaryMinWords  int          `env:"SUMMARY_MIN_WORDS" envDefault:"100"`
	SummaryMaxWords  int          `env:"SUMMARY_MAX_WORDS" envDefault:"150"`
	FrameWorkers     int          `env:"FRAME_WORKERS"     envDefault:"1"`

	HTTPPort    int      `env:"HTTP_PORT"     envDefault:"8000"`
	UploadDir   string   `env:"UPLOAD_DIR"    envDefault:"temp_uploads"`
	CORSOrigins []string `env:"CORS_ORIGINS"  envSeparator:"," envDefault:"*"`
	DatabaseURL string   `env:"DATABASE_URL"`
	LogLevel    string   `env:"LOG_LEVEL"     envDefault:"info"`

	WatchInput  string `env:"WATCH_INPUT"  envDefault:"data/input"`
	WatchOutput string `env:"WATCH_OUTPUT" envDefault:"data/output"`
}

// Load parses configuration from the environment and applies defaults.
// Callers are expected to have loaded any .env file beforehand.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.SamplingInterval < 1 {
		return fmt.Errorf("SAMPLING_INTERVAL must be >= 1, got %d", c.SamplingInterval)
	}
	switch c.CaptionStyle {
	case CaptionPlain, CaptionPrompted:
	default:
		return fmt.Errorf("CAPTION_STYLE must be %q or %q, got %q", CaptionPlain, CaptionPrompted, c.CaptionStyle)
	}
	switch c.OCRTransport {
	case TransportFile, TransportDataURI:
	default:
		return fmt.Errorf("OCR_TRANSPORT must be %q or %q, got %q", TransportFile, TransportDataURI, c.OCRTransport)
	}
	if c.SummaryMinWords <= 0 || c.SummaryMaxWords <= 0 || c.SummaryMinWords > c.SummaryMaxWords {
		return fmt.Errorf("invalid summary word bounds (%d, %d)", c.SummaryMinWords, c.SummaryMaxWords)
	}
	if c.FrameWorkers < 1 {
		c.FrameWorkers = 1
	}
	if c.UploadDir == "" {
		c.UploadDir = "temp_uploads"
	}
	return nil
}
