package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ent0n29/voicerelay/internal/session"
	"github.com/ent0n29/voicerelay/internal/transcript"
)

// handleIncomingCall greets new calls and re-arms the speech listener for
// calls that already carry a transcript.
func (s *Server) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	// The call start carries no fields we act on; parsing exposes CallSid to the request log.
	if err := r.ParseForm(); err != nil {
		s.logger.Warn("unparsable call start form", zap.Error(err))
	}

	var prior *transcript.Transcript
	t, err := session.Load(r)
	switch {
	case err == nil:
		prior = &t
	case errors.Is(err, session.ErrMalformed):
		// Treated as a new conversation.
		s.metrics.CallEvents.WithLabelValues("malformed_token").Inc()
		s.logger.Warn("discarding malformed session token", zap.Error(err))
	}

	res := s.relay.StartCall(prior)
	if res.Issued {
		s.metrics.ObserveTranscriptBytes(session.Save(w, res.Transcript))
	}

	doc, err := s.renderer.Listen(res.Prompt, s.RespondPath())
	if err != nil {
		s.logger.Error("render call start", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	respondXML(w, doc)
}

// handleRespond answers one transcribed utterance and sends the call back to
// the call-start path.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}
	utterance := r.PostForm.Get("SpeechResult")

	t, err := session.Load(r)
	if err != nil {
		code := "missing_transcript"
		if errors.Is(err, session.ErrMalformed) {
			code = "malformed_transcript"
		}
		s.metrics.Turns.WithLabelValues("rejected").Inc()
		s.logger.Warn("turn without usable session token", zap.String("code", code), zap.Error(err))
		respondError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	res, err := s.relay.Turn(r.Context(), t, utterance)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		respondError(w, status, "completion_failed", err.Error())
		return
	}

	doc, err := s.renderer.SpeakAndRedirect(res.Reply, s.IncomingCallPath())
	if err != nil {
		s.logger.Error("render turn reply", zap.String("turn_id", res.TurnID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	s.metrics.ObserveTranscriptBytes(session.Save(w, res.Transcript))
	respondXML(w, doc)
}
