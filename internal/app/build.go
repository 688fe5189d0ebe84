package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ent0n29/voicerelay/internal/config"
	"github.com/ent0n29/voicerelay/internal/httpapi"
	"github.com/ent0n29/voicerelay/internal/llm"
	"github.com/ent0n29/voicerelay/internal/logging"
	"github.com/ent0n29/voicerelay/internal/observability"
	"github.com/ent0n29/voicerelay/internal/relay"
	"github.com/ent0n29/voicerelay/internal/voicexml"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Relay   *relay.Relay
	Metrics *observability.Metrics
	Logger  *zap.Logger

	// Cleanup should be called on shutdown to flush buffered logs.
	Cleanup func() error
}

// Build wires the service once at process start. The returned router is the
// only handler registration; there is no package-level app state.
func Build(cfg config.Config) (*BuildResult, error) {
	return BuildWith(cfg, nil)
}

// BuildWith is Build with an explicit completer; nil builds one from cfg.
func BuildWith(cfg config.Config, completer llm.Completer) (*BuildResult, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}

	if completer == nil {
		completer, err = llm.NewCompleter(llm.Config{
			Mode:    cfg.CompleterMode,
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("completer init failed: %w", err)
		}
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	rl := relay.New(completer, metrics, logger.Named("relay"), relay.Options{
		SystemPrompt:      cfg.SystemPrompt,
		Greeting:          cfg.Greeting,
		Provider:          cfg.CompleterMode,
		MaxTurns:          cfg.TranscriptMaxTurns,
		CompletionTimeout: cfg.CompletionTimeout,
	})

	renderer := voicexml.NewRenderer(cfg.SayVoice, voicexml.GatherOptions{
		SpeechModel:   cfg.GatherSpeechModel,
		SpeechTimeout: cfg.GatherSpeechTimeout,
		Enhanced:      cfg.GatherEnhanced,
	})

	api := httpapi.New(cfg, rl, renderer, metrics, logger.Named("http"))

	logger.Info("service built",
		zap.String("completer_mode", cfg.CompleterMode),
		zap.String("model", cfg.OpenAIModel),
		zap.String("incoming_call_path", api.IncomingCallPath()),
		zap.String("respond_path", api.RespondPath()),
		zap.Int("transcript_max_turns", cfg.TranscriptMaxTurns),
		zap.Duration("completion_timeout", cfg.CompletionTimeout),
	)

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Relay:   rl,
		Metrics: metrics,
		Logger:  logger,
		Cleanup: func() error {
			// Sync on stderr/stdout returns EINVAL on some platforms; it is not actionable.
			_ = logger.Sync()
			return nil
		},
	}, nil
}
