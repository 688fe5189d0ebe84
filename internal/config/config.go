package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the call bridge.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":3000"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"voicerelay"`
	LogLevel         string        `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"APP_LOG_FORMAT" envDefault:"json"`
	RoutePrefix      string        `env:"APP_ROUTE_PREFIX" envDefault:"/api"`

	// LLM settings
	CompleterMode     string        `env:"COMPLETER_MODE" envDefault:"openai"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"0s"`

	// Conversation
	SystemPromptPath   string `env:"SYSTEM_PROMPT_PATH"`
	Greeting           string `env:"GREETING"`
	TranscriptMaxTurns int    `env:"TRANSCRIPT_MAX_TURNS" envDefault:"0"`

	// Speech gather attributes
	GatherSpeechModel   string `env:"GATHER_SPEECH_MODEL" envDefault:"experimental_conversations"`
	GatherSpeechTimeout string `env:"GATHER_SPEECH_TIMEOUT" envDefault:"auto"`
	GatherEnhanced      bool   `env:"GATHER_ENHANCED" envDefault:"true"`
	SayVoice            string `env:"SAY_VOICE"`

	// SystemPrompt is resolved from SystemPromptPath, or left empty to use the built-in prompt.
	SystemPrompt string
}

// Load reads an optional .env file, parses the environment and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.OpenAIAPIKey = strings.TrimSpace(cfg.OpenAIAPIKey)
	cfg.CompleterMode = strings.ToLower(strings.TrimSpace(cfg.CompleterMode))
	cfg.RoutePrefix = normalizePrefix(cfg.RoutePrefix)

	if path := strings.TrimSpace(cfg.SystemPromptPath); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("SYSTEM_PROMPT_PATH read error: %w", err)
		}
		cfg.SystemPrompt = strings.TrimSpace(string(b))
		if cfg.SystemPrompt == "" {
			return Config{}, fmt.Errorf("SYSTEM_PROMPT_PATH %q is empty", path)
		}
	}

	switch cfg.CompleterMode {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when COMPLETER_MODE=openai")
		}
	case "mock":
	default:
		return Config{}, fmt.Errorf("invalid COMPLETER_MODE: %q (expected openai|mock)", cfg.CompleterMode)
	}
	if strings.TrimSpace(cfg.OpenAIModel) == "" {
		return Config{}, fmt.Errorf("OPENAI_MODEL must not be empty")
	}
	if cfg.CompletionTimeout < 0 {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be >= 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.TranscriptMaxTurns < 0 {
		return Config{}, fmt.Errorf("TRANSCRIPT_MAX_TURNS must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("invalid APP_LOG_FORMAT: %q (expected json|console)", cfg.LogFormat)
	}

	return cfg, nil
}

// normalizePrefix turns "api", "/api/" and "/api" into "/api"; "" and "/" mean no prefix.
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
