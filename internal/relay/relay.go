package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ent0n29/voicerelay/internal/llm"
	"github.com/ent0n29/voicerelay/internal/observability"
	"github.com/ent0n29/voicerelay/internal/policy"
	"github.com/ent0n29/voicerelay/internal/reliability"
	"github.com/ent0n29/voicerelay/internal/transcript"
)

const logPreviewRunes = 160

// Options configures the conversation loop.
type Options struct {
	SystemPrompt string
	Greeting     string
	// Provider labels completion errors in metrics.
	Provider string
	// MaxTurns bounds the user/assistant pairs carried in the token; 0 keeps all.
	MaxTurns int
	// CompletionTimeout bounds each completion call; 0 waits as long as the request does.
	CompletionTimeout time.Duration
}

// Relay runs the per-call conversation: it opens calls with the greeting and
// answers each caller utterance with one completion. It keeps no state
// between requests; everything a call needs travels in its transcript.
type Relay struct {
	completer llm.Completer
	metrics   *observability.Metrics
	logger    *zap.Logger
	opts      Options
}

func New(completer llm.Completer, metrics *observability.Metrics, logger *zap.Logger, opts Options) *Relay {
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if strings.TrimSpace(opts.Greeting) == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.Provider == "" {
		opts.Provider = "openai"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		completer: completer,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
	}
}

// StartResult is the outcome of a call-start event.
type StartResult struct {
	Transcript transcript.Transcript
	// Prompt is spoken before listening; empty when the call resumes.
	Prompt string
	// Issued reports whether a new transcript was created.
	Issued bool
}

// StartCall opens a conversation when prior is nil and otherwise resumes it
// untouched. A resumed call gets no prompt, only a new listener.
func (r *Relay) StartCall(prior *transcript.Transcript) StartResult {
	if prior != nil {
		r.metrics.CallEvents.WithLabelValues("resumed").Inc()
		return StartResult{Transcript: *prior}
	}
	r.metrics.CallEvents.WithLabelValues("started").Inc()
	return StartResult{
		Transcript: transcript.New(r.opts.SystemPrompt, r.opts.Greeting),
		Prompt:     r.opts.Greeting,
		Issued:     true,
	}
}

// TurnResult is the outcome of one answered utterance.
type TurnResult struct {
	TurnID     string
	Transcript transcript.Transcript
	Reply      string
}

// Turn appends the utterance, asks the completer once and appends its reply.
// The utterance is passed through unvalidated, empty included. Completer
// failures are returned as-is: no retry, no fallback reply.
func (r *Relay) Turn(ctx context.Context, t transcript.Transcript, utterance string) (TurnResult, error) {
	if err := t.Validate(); err != nil {
		return TurnResult{}, fmt.Errorf("turn on invalid transcript: %w", err)
	}
	turnID := uuid.NewString()
	started := time.Now()
	log := r.logger.With(zap.String("turn_id", turnID), zap.Int("carried_turns", t.Turns()))

	if strings.TrimSpace(utterance) == "" {
		r.metrics.ObserveIndicator("empty_speech")
		log.Warn("empty speech result")
	}
	t.AppendUser(utterance)

	callCtx := ctx
	if r.opts.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.opts.CompletionTimeout)
		defer cancel()
	}

	completionStarted := time.Now()
	reply, err := r.completer.Complete(callCtx, t.Messages())
	r.metrics.ObserveCompletionLatency(time.Since(completionStarted))
	if err != nil {
		class, retryable := reliability.ClassifyCompletionError(err)
		r.metrics.ProviderErrors.WithLabelValues(r.opts.Provider, class).Inc()
		r.metrics.Turns.WithLabelValues("failed").Inc()
		log.Error("completion failed",
			zap.String("class", class),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		return TurnResult{}, fmt.Errorf("turn %s: %w", turnID, err)
	}

	t.AppendAssistant(reply.Text)
	if before := t.Len(); r.opts.MaxTurns > 0 {
		t = t.Trim(r.opts.MaxTurns)
		if t.Len() < before {
			r.metrics.ObserveIndicator("transcript_trimmed")
		}
	}

	r.metrics.Turns.WithLabelValues("ok").Inc()
	r.metrics.ObserveTurnTotal(time.Since(started))
	log.Info("turn completed",
		zap.String("model", reply.Model),
		zap.String("caller", policy.LogSafe(utterance, logPreviewRunes)),
		zap.String("assistant", policy.LogSafe(reply.Text, logPreviewRunes)),
		zap.Int("prompt_tokens", reply.PromptTokens),
		zap.Int("completion_tokens", reply.CompletionTokens),
		zap.Int("messages", t.Len()),
	)

	return TurnResult{TurnID: turnID, Transcript: t, Reply: reply.Text}, nil
}
