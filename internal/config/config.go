// Package config loads the frame-finder runtime configuration from the
// environment. Required values are checked by Validate rather than at parse
// time so entrypoints can apply overrides between the two steps: the Lambda
// fills the API key from SSM, the standalone server applies CLI flags.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all environment-supplied settings.
type Config struct {
	// OutputBucket is where extracted frames are published. Required.
	OutputBucket string `env:"OUTPUT_BUCKET"`

	// GeminiAPIKey authenticates against the Gemini API. Required after
	// startup; the Lambda boot path may fill it from SSM.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// GeminiModel selects the analysis model.
	GeminiModel string `env:"GEMINI_MODEL" envDefault:"gemini-3-flash-preview"`

	// PollInterval is the delay between Files API readiness checks.
	PollInterval time.Duration `env:"ANALYSIS_POLL_INTERVAL" envDefault:"2s"`

	// PollTimeout bounds the total wait for file processing. Without a
	// bound a stuck upload would pin the invocation forever.
	PollTimeout time.Duration `env:"ANALYSIS_POLL_TIMEOUT" envDefault:"5m"`

	// PublishThumbnail enables the JPEG preview published beside the frame.
	PublishThumbnail bool `env:"PUBLISH_THUMBNAIL" envDefault:"false"`

	// ThumbnailMaxDim is the preview thumbnail bounding box in pixels.
	ThumbnailMaxDim int `env:"THUMBNAIL_MAX_DIM" envDefault:"512"`

	// ListenAddr is the bind address for the standalone server.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// LogLevel mirrors FRAME_LOG_LEVEL for the startup summary; logging
	// itself reads the variable directly.
	LogLevel string `env:"FRAME_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config. Call Validate before use.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that required settings are present. A missing value here
// is a startup failure, never a per-invocation one.
func (c *Config) Validate() error {
	if c.OutputBucket == "" {
		return fmt.Errorf("OUTPUT_BUCKET is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("ANALYSIS_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_POLL_TIMEOUT must be positive, got %s", c.PollTimeout)
	}
	if c.ThumbnailMaxDim <= 0 {
		return fmt.Errorf("THUMBNAIL_MAX_DIM must be positive, got %d", c.ThumbnailMaxDim)
	}
	return nil
}
