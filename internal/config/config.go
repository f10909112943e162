// Package config provides the configuration structure for the notecast client.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
)

// Environment variable overrides. NOTECAST_API_BASE mirrors the base-URL
// override the original deployment used for pointing a dev build at a
// different backend.
const (
	envAPIBase = "NOTECAST_API_BASE"
)

// Defaults applied after loading, for fields the TOML leaves unset.
const (
	defaultBaseURL             = "http://127.0.0.1:5000"
	defaultTimeoutSeconds      = 30
	defaultPollIntervalSeconds = 3
	defaultPreviewCharLimit    = 2000
	defaultVoice               = "Joanna"
	defaultMaxUploadMB         = 10
	defaultBaseLogsDir         = "logs"
)

// BackendConfig holds the configuration for the generation backend.
type BackendConfig struct {
	BaseURL             string `toml:"base_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxPollAttempts     int    `toml:"max_poll_attempts"`
	MaxUploadMB         int    `toml:"max_upload_mb"`
}

// SpeechConfig holds the configuration for local and remote speech synthesis.
type SpeechConfig struct {
	SynthesizerCommand string `toml:"synthesizer_command"`
	PlayerCommand      string `toml:"player_command"`
	DefaultVoice       string `toml:"default_voice"`
	PreviewCharLimit   int    `toml:"preview_char_limit"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Speech  SpeechConfig  `toml:"speech"`
	Paths   PathsConfig   `toml:"paths"`
}

// PollInterval returns the job polling cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Backend.PollIntervalSeconds) * time.Second
}

// Timeout returns the per-request backend timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the advisory upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Backend.MaxUploadMB) * 1024 * 1024
}

// Load loads the configuration for the notecast client. A .env file in the
// working directory is honored first (it never overrides variables already
// exported), then the TOML configuration is located and parsed, then defaults
// and environment overrides are applied.
func Load(log *logger.Logger) (*Config, error) {
	// Missing .env is the common case outside development.
	dotenvErr := godotenv.Load()
	if dotenvErr != nil {
		log.Info("No .env file loaded, relying on environment and defaults.")
	}

	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	return &cfg, nil
}

// applyDefaults fills in any field the loaded configuration left at its zero
// value, so construction-time defaults replace ambient fallbacks elsewhere.
func (c *Config) applyDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBaseURL
	}

	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultTimeoutSeconds
	}

	if c.Backend.PollIntervalSeconds <= 0 {
		c.Backend.PollIntervalSeconds = defaultPollIntervalSeconds
	}

	if c.Backend.MaxUploadMB <= 0 {
		c.Backend.MaxUploadMB = defaultMaxUploadMB
	}

	if c.Speech.PreviewCharLimit <= 0 {
		c.Speech.PreviewCharLimit = defaultPreviewCharLimit
	}

	if c.Speech.DefaultVoice == "" {
		c.Speech.DefaultVoice = defaultVoice
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = defaultBaseLogsDir
	}
}

func (c *Config) applyEnvOverrides() {
	if base, exists := os.LookupEnv(envAPIBase); exists && base != "" {
		c.Backend.BaseURL = base
	}
}
