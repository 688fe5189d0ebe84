package voicexml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"
)

// ContentType is sent with every rendered document.
const ContentType = "application/xml"

// GatherOptions configures the speech listener armed after each prompt.
type GatherOptions struct {
	SpeechModel   string
	SpeechTimeout string
	Enhanced      bool
}

// Renderer builds the voice markup documents returned to the telephony platform.
type Renderer struct {
	voice  string
	gather GatherOptions
}

func NewRenderer(voice string, gather GatherOptions) *Renderer {
	if strings.TrimSpace(gather.SpeechTimeout) == "" {
		gather.SpeechTimeout = "auto"
	}
	return &Renderer{voice: strings.TrimSpace(voice), gather: gather}
}

// Listen speaks prompt when it is not empty, then gathers caller speech and
// posts the transcription to action.
func (r *Renderer) Listen(prompt, action string) (string, error) {
	var verbs []twiml.Element
	if prompt != "" {
		verbs = append(verbs, r.say(prompt))
	}
	verbs = append(verbs, &twiml.VoiceGather{
		Input:         "speech",
		Action:        action,
		Method:        "POST",
		SpeechTimeout: r.gather.SpeechTimeout,
		SpeechModel:   r.gather.SpeechModel,
		Enhanced:      strconv.FormatBool(r.gather.Enhanced),
	})
	return render(verbs)
}

// SpeakAndRedirect speaks text, then sends the call back to target with POST.
func (r *Renderer) SpeakAndRedirect(text, target string) (string, error) {
	return render([]twiml.Element{
		r.say(text),
		&twiml.VoiceRedirect{Url: target, Method: "POST"},
	})
}

func (r *Renderer) say(text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: text, Voice: r.voice}
}

func render(verbs []twiml.Element) (string, error) {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		return "", fmt.Errorf("render voice markup: %w", err)
	}
	return doc, nil
}
