package httpapi

import (
	"fmt"
	"net/http"
	"strings"
)

type readinessCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type readinessResponse struct {
	Status        string           `json:"status"`
	CompleterMode string           `json:"completer_mode"`
	Model         string           `json:"model"`
	Checks        []readinessCheck `json:"checks"`
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	checks := s.readinessChecks()
	status := "ready"
	code := http.StatusOK
	for _, c := range checks {
		if c.Status == "error" {
			status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}
	respondJSON(w, code, readinessResponse{
		Status:        status,
		CompleterMode: s.cfg.CompleterMode,
		Model:         s.cfg.OpenAIModel,
		Checks:        checks,
	})
}

func (s *Server) readinessChecks() []readinessCheck {
	checks := make([]readinessCheck, 0, 4)

	switch strings.ToLower(strings.TrimSpace(s.cfg.CompleterMode)) {
	case "openai":
		if strings.TrimSpace(s.cfg.OpenAIAPIKey) == "" {
			checks = append(checks, readinessCheck{
				ID:     "openai_key",
				Status: "error",
				Label:  "OpenAI API key",
				Detail: "OPENAI_API_KEY is not set",
				Fix:    "Set OPENAI_API_KEY or switch to COMPLETER_MODE=mock.",
			})
		} else {
			detail := "present"
			if base := strings.TrimSpace(s.cfg.OpenAIBaseURL); base != "" {
				detail = "present (base url " + base + ")"
			}
			checks = append(checks, readinessCheck{
				ID:     "openai_key",
				Status: "ok",
				Label:  "OpenAI API key",
				Detail: detail,
			})
		}
	case "mock":
		checks = append(checks, readinessCheck{
			ID:     "mock_completer",
			Status: "warn",
			Label:  "Completer is mock",
			Detail: "Callers hear their own words echoed back.",
			Fix:    "Set COMPLETER_MODE=openai and OPENAI_API_KEY.",
		})
	default:
		checks = append(checks, readinessCheck{
			ID:     "completer_unknown",
			Status: "error",
			Label:  "Completer",
			Detail: fmt.Sprintf("unknown mode %q; expected openai|mock", s.cfg.CompleterMode),
		})
	}

	if strings.TrimSpace(s.cfg.SystemPromptPath) != "" {
		checks = append(checks, readinessCheck{
			ID:     "system_prompt",
			Status: "ok",
			Label:  "System prompt",
			Detail: "loaded from " + s.cfg.SystemPromptPath,
		})
	} else {
		checks = append(checks, readinessCheck{
			ID:     "system_prompt",
			Status: "ok",
			Label:  "System prompt",
			Detail: "built-in campground prompt",
		})
	}

	if s.cfg.TranscriptMaxTurns > 0 {
		checks = append(checks, readinessCheck{
			ID:     "transcript_limit",
			Status: "ok",
			Label:  "Transcript size",
			Detail: fmt.Sprintf("last %d turns kept", s.cfg.TranscriptMaxTurns),
		})
	} else {
		checks = append(checks, readinessCheck{
			ID:     "transcript_limit",
			Status: "warn",
			Label:  "Transcript size",
			Detail: "unbounded; the session cookie grows with every turn",
			Fix:    "Set TRANSCRIPT_MAX_TURNS to cap long calls.",
		})
	}

	if s.cfg.CompletionTimeout <= 0 {
		checks = append(checks, readinessCheck{
			ID:     "completion_timeout",
			Status: "warn",
			Label:  "Completion timeout",
			Detail: "none; a stalled completion stalls the webhook",
			Fix:    "Set COMPLETION_TIMEOUT below the platform's webhook timeout.",
		})
	}

	return checks
}
