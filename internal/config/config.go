package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/nidhogg/pipboy/internal/contextmgr"
)

var validate = validator.New()

// Config is the top-level configuration structure for the server.
type Config struct {
	Server    ServerConfig      `json:"server"`
	Providers []ProviderConfig  `json:"providers" validate:"min=1,dive"`
	Chat      ChatConfig        `json:"chat"`
	Context   contextmgr.Config `json:"context"`
	Database  DatabaseConfig    `json:"database"`
	Workers   int               `json:"workers" validate:"gte=0"`
}

type ServerConfig struct {
	Port     int    `json:"port" validate:"gte=0,lte=65535"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string   `json:"id" validate:"required"`
	Type     string   `json:"type" validate:"required,oneof=openai anthropic mock"`
	Name     string   `json:"name"`
	Endpoint string   `json:"endpoint"`
	APIKey   string   `json:"api_key"`
	Models   []string `json:"models,omitempty"`
}

type ChatConfig struct {
	DefaultModel  string `json:"default_model"`
	MaxHistory    int    `json:"max_history" validate:"gte=0"`
	RatePerMinute int    `json:"rate_limit_per_minute" validate:"gte=0"`
}

type DatabaseConfig struct {
	SQLite SQLiteConfig `json:"sqlite"`
}

type SQLiteConfig struct {
	DSN  string `json:"dsn"`
	Seed bool   `json:"seed"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable
// references, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}

// Env captures the environment-first settings used by the terminal
// client, which runs without a config file.
type Env struct {
	APIKey               string  `env:"OPENAI_API_KEY"`
	BaseURL              string  `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model                string  `env:"PIPBOY_MODEL" envDefault:"gpt-4o-mini"`
	DBPath               string  `env:"PIPBOY_DB_PATH" envDefault:"pipboy.db"`
	MaxHistory           int     `env:"PIPBOY_MAX_HISTORY" envDefault:"20" validate:"gt=0"`
	RatePerMinute        int     `env:"PIPBOY_RATE_LIMIT_PER_MINUTE" envDefault:"60" validate:"gt=0"`
	MaxTokens            int     `env:"PIPBOY_MAX_TOKENS" envDefault:"4000" validate:"gt=0"`
	CompressionThreshold float64 `env:"PIPBOY_COMPRESSION_THRESHOLD" envDefault:"0.8" validate:"gt=0,lte=1"`
}

// FromEnv parses and validates the client settings from the process
// environment.
func FromEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := validate.Struct(&e); err != nil {
		return nil, fmt.Errorf("validate environment: %w", err)
	}
	return &e, nil
}

// ContextConfig converts the env settings into a context window config.
func (e *Env) ContextConfig() contextmgr.Config {
	cfg := contextmgr.DefaultConfig()
	cfg.MaxTokens = e.MaxTokens
	cfg.CompressionThreshold = e.CompressionThreshold
	return cfg
}
