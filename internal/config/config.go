package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the coding assistant.
type Config struct {
	Port        int           `mapstructure:"port"`
	Version     string        `mapstructure:"version"`
	Variant     string        `mapstructure:"variant"`
	OutputDir   string        `mapstructure:"output_dir"`
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	MaxTurns    int           `mapstructure:"max_turns"`
	LogLevel    string        `mapstructure:"log_level"`

	Model     ModelConfig     `mapstructure:"model"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

// ModelConfig selects the hosted model.
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"` // empty: the provider's default endpoint
	Name     string `mapstructure:"name"`
	APIKey   string `mapstructure:"api_key"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type AuthConfig struct {
	// Empty disables API key checks on the HTTP API.
	APIKeys []string `mapstructure:"api_keys"`
}

var envBindings = map[string][]string{
	"port":                   {"ASSISTANT_PORT"},
	"version":                {"ASSISTANT_VERSION"},
	"variant":                {"ASSISTANT_VARIANT"},
	"output_dir":             {"ASSISTANT_OUTPUT_DIR"},
	"turn_timeout":           {"ASSISTANT_TURN_TIMEOUT"},
	"session_ttl":            {"ASSISTANT_SESSION_TTL"},
	"max_turns":              {"ASSISTANT_MAX_TURNS"},
	"log_level":              {"ASSISTANT_LOG_LEVEL"},
	"model.provider":         {"ASSISTANT_MODEL_PROVIDER"},
	"model.base_url":         {"ASSISTANT_MODEL_BASE_URL"},
	"model.name":             {"ASSISTANT_MODEL"},
	"model.api_key":          {"GOOGLE_API_KEY", "ASSISTANT_MODEL_API_KEY"},
	"telemetry.enabled":      {"OTEL_ENABLED"},
	"telemetry.endpoint":     {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"telemetry.service_name": {"OTEL_SERVICE_NAME"},
	"telemetry.sample_ratio": {"OTEL_TRACES_SAMPLER_ARG"},
	"auth.api_keys":          {"ASSISTANT_API_KEYS"},
}

// Load reads configuration from .env, the environment and an optional config
// file, in increasing order of precedence for explicitly set values.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Auth.APIKeys = splitKeys(cfg.Auth.APIKeys)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("version", "0.1.0")
	v.SetDefault("variant", "full")
	v.SetDefault("output_dir", ".")
	v.SetDefault("turn_timeout", 2*time.Minute)
	v.SetDefault("session_ttl", time.Hour)
	v.SetDefault("max_turns", 10)
	v.SetDefault("log_level", "info")

	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.name", "gemini-2.0-flash")
	v.SetDefault("model.api_key", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "coding-assistant")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("auth.api_keys", []string{})
}

// Validate checks what the server cannot start without.
func (c *Config) Validate() error {
	if c.Model.APIKey == "" && c.Model.Provider != "ollama" {
		return errors.New("model API key missing: set GOOGLE_API_KEY or ASSISTANT_MODEL_API_KEY")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("turn_timeout must be positive, got %s", c.TurnTimeout)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1], got %g", c.Telemetry.SampleRatio)
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	return nil
}

// splitKeys flattens comma-separated entries, as the environment delivers
// the key list as a single string.
func splitKeys(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, k := range strings.Split(entry, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}
