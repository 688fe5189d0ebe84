package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":3000" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":3000")
	}
	if cfg.RoutePrefix != "/api" {
		t.Fatalf("RoutePrefix = %q, want %q", cfg.RoutePrefix, "/api")
	}
	if cfg.OpenAIModel != "gpt-3.5-turbo" {
		t.Fatalf("OpenAIModel = %q, want %q", cfg.OpenAIModel, "gpt-3.5-turbo")
	}
	if cfg.CompleterMode != "openai" {
		t.Fatalf("CompleterMode = %q, want %q", cfg.CompleterMode, "openai")
	}
	if cfg.CompletionTimeout != 0 {
		t.Fatalf("CompletionTimeout = %v, want 0", cfg.CompletionTimeout)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}
	if !cfg.GatherEnhanced {
		t.Fatalf("GatherEnhanced = false, want true")
	}
	if cfg.GatherSpeechModel != "experimental_conversations" {
		t.Fatalf("GatherSpeechModel = %q", cfg.GatherSpeechModel)
	}
	if cfg.TranscriptMaxTurns != 0 {
		t.Fatalf("TranscriptMaxTurns = %d, want 0", cfg.TranscriptMaxTurns)
	}
}

func TestLoadRequiresAPIKeyInOpenAIMode(t *testing.T) {
	setCoreEnvEmpty(t)

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error without OPENAI_API_KEY")
	}
}

func TestLoadMockModeWithoutAPIKey(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("COMPLETER_MODE", "MOCK")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CompleterMode != "mock" {
		t.Fatalf("CompleterMode = %q, want %q", cfg.CompleterMode, "mock")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"mode", "COMPLETER_MODE", "gateway"},
		{"timeout", "COMPLETION_TIMEOUT", "-1s"},
		{"duration syntax", "APP_SHUTDOWN_TIMEOUT", "soon"},
		{"max turns", "TRANSCRIPT_MAX_TURNS", "-2"},
		{"log format", "APP_LOG_FORMAT", "xml"},
		{"prompt path", "SYSTEM_PROMPT_PATH", filepath.Join(t.TempDir(), "missing.txt")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() expected error for %s=%q", tc.key, tc.val)
			}
		})
	}
}

func TestLoadReadsSystemPromptFile(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("COMPLETER_MODE", "mock")
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("  You answer for Lakeside RV Park.\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("SYSTEM_PROMPT_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SystemPrompt != "You answer for Lakeside RV Park." {
		t.Fatalf("SystemPrompt = %q", cfg.SystemPrompt)
	}
}

func TestNormalizePrefix(t *testing.T) {
	cases := map[string]string{
		"":       "",
		"/":      "",
		"api":    "/api",
		"/api/":  "/api",
		" /v1/ ": "/v1",
	}
	for in, want := range cases {
		if got := normalizePrefix(in); got != want {
			t.Fatalf("normalizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"APP_ROUTE_PREFIX",
		"COMPLETER_MODE",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"COMPLETION_TIMEOUT",
		"SYSTEM_PROMPT_PATH",
		"GREETING",
		"TRANSCRIPT_MAX_TURNS",
		"GATHER_SPEECH_MODEL",
		"GATHER_SPEECH_TIMEOUT",
		"GATHER_ENHANCED",
		"SAY_VOICE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
