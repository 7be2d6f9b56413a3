// Package config provides configuration management for the Rentreel server.
// Configuration is loaded from an optional YAML file with environment
// variable overrides and sensible defaults. Required credentials are checked
// by an explicit Validate step invoked at startup, never as an import side
// effect.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort        = 8790
	DefaultLogLevel    = "info"
	DefaultDataDir     = ".rentreel"
	DefaultGeminiModel = "gemini-2.0-flash"

	// Readiness polling defaults. The probe ceiling is higher because each
	// attempt is a cheap HEAD request; the fetch budget guards a full MP4
	// download per attempt.
	DefaultProbeMaxAttempts = 100
	DefaultFetchMaxAttempts = 10
	DefaultRetryDelayMS     = 2000

	DefaultStreamBaseURL = "https://stream.mux.com"
	DefaultMuxAPIBaseURL = "https://api.mux.com"

	// Environment variable names
	EnvConfigFile = "RENTREEL_CONFIG"
	EnvPort       = "RENTREEL_PORT"
	EnvLogLevel   = "RENTREEL_LOG_LEVEL"
	EnvDataDir    = "RENTREEL_DATA_DIR"

	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvMuxTokenID       = "MUX_TOKEN_ID"
	EnvMuxTokenSecret   = "MUX_TOKEN_SECRET"
	EnvMuxWebhookSecret = "MUX_WEBHOOK_SECRET"
	EnvPlacesAPIKey     = "GOOGLE_PLACES_API_KEY"

	// Database filename
	DBFilename = "rentreel.db"
)

// Config holds the full server configuration.
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`

	AI     AIConfig     `yaml:"ai"`
	Mux    MuxConfig    `yaml:"mux"`
	Places PlacesConfig `yaml:"places"`
	Video  VideoConfig  `yaml:"video"`
}

// AIConfig configures the Gemini inference client.
type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	Model        string `yaml:"model"`
}

// MuxConfig configures the Mux video host client.
type MuxConfig struct {
	TokenID       string `yaml:"token_id"`
	TokenSecret   string `yaml:"token_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	APIBaseURL    string `yaml:"api_base_url"`
	StreamBaseURL string `yaml:"stream_base_url"`
}

// PlacesConfig configures the Google Places proxy.
type PlacesConfig struct {
	APIKey string `yaml:"api_key"`
}

// VideoConfig bounds the readiness polling workflow. maxAttempts × delay is
// the de facto timeout of a poll sequence, so both are configurable.
type VideoConfig struct {
	ProbeMaxAttempts int `yaml:"probe_max_attempts"`
	FetchMaxAttempts int `yaml:"fetch_max_attempts"`
	RetryDelayMS     int `yaml:"retry_delay_ms"`
}

// RetryDelay returns the fixed inter-attempt delay as a duration.
func (v VideoConfig) RetryDelay() time.Duration {
	return time.Duration(v.RetryDelayMS) * time.Millisecond
}

// Load reads configuration from the optional YAML file named by
// RENTREEL_CONFIG, then applies environment variable overrides and defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     DefaultPort,
		LogLevel: DefaultLogLevel,
		DataDir:  defaultDataDir(),
	}

	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.Port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.LogLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.DataDir = dd
	}

	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv(EnvGeminiAPIKey)
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = DefaultGeminiModel
	}

	if cfg.Mux.TokenID == "" {
		cfg.Mux.TokenID = os.Getenv(EnvMuxTokenID)
	}
	if cfg.Mux.TokenSecret == "" {
		cfg.Mux.TokenSecret = os.Getenv(EnvMuxTokenSecret)
	}
	if cfg.Mux.WebhookSecret == "" {
		cfg.Mux.WebhookSecret = os.Getenv(EnvMuxWebhookSecret)
	}
	if cfg.Mux.APIBaseURL == "" {
		cfg.Mux.APIBaseURL = DefaultMuxAPIBaseURL
	}
	if cfg.Mux.StreamBaseURL == "" {
		cfg.Mux.StreamBaseURL = DefaultStreamBaseURL
	}

	if cfg.Places.APIKey == "" {
		cfg.Places.APIKey = os.Getenv(EnvPlacesAPIKey)
	}

	if cfg.Video.ProbeMaxAttempts <= 0 {
		cfg.Video.ProbeMaxAttempts = DefaultProbeMaxAttempts
	}
	if cfg.Video.FetchMaxAttempts <= 0 {
		cfg.Video.FetchMaxAttempts = DefaultFetchMaxAttempts
	}
	if cfg.Video.RetryDelayMS <= 0 {
		cfg.Video.RetryDelayMS = DefaultRetryDelayMS
	}

	return cfg, nil
}

// Validate checks that the credentials the server cannot run without are
// present. The Places key is optional: the proxy degrades to empty
// predictions when unset.
func (c *Config) Validate() error {
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set %s or ai.gemini_api_key)", EnvGeminiAPIKey)
	}
	if c.Mux.TokenID == "" || c.Mux.TokenSecret == "" {
		return fmt.Errorf("Mux credentials are required (set %s and %s)", EnvMuxTokenID, EnvMuxTokenSecret)
	}
	return nil
}

// DBPath returns the full path to the SQLite database file
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFilename)
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
