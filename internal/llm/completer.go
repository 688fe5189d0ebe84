package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/voicerelay/internal/transcript"
)

// Reply is the assistant message returned for one turn.
type Reply struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, msgs []transcript.Message) (Reply, error)
}

// ErrEmptyChoices is returned when the provider answers without any choice.
var ErrEmptyChoices = errors.New("completion returned no choices")

// Config controls completer construction.
type Config struct {
	Mode    string
	APIKey  string
	BaseURL string
	Model   string
}

func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "openai"
	}

	switch mode {
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai api key is required for openai mode")
		}
		return NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported completer mode %q", cfg.Mode)
	}
}
