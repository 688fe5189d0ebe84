package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/voicerelay/internal/transcript"
)

// MockCompleter provides deterministic local replies for development and tests.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

func (c *MockCompleter) Complete(ctx context.Context, msgs []transcript.Message) (Reply, error) {
	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	default:
	}
	return Reply{Text: buildMockReply(msgs), Model: "mock"}, nil
}

func buildMockReply(msgs []transcript.Message) string {
	var last string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == transcript.RoleUser {
			last = strings.TrimSpace(msgs[i].Content)
			break
		}
	}
	if last == "" {
		return "Sorry, I did not catch that. Could you say it again?"
	}
	return fmt.Sprintf("I heard you: %s", last)
}
