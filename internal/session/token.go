package session

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ent0n29/voicerelay/internal/transcript"
)

// CookieName is the cookie the telephony platform replays on every webhook of a call.
const CookieName = "messages"

var (
	ErrMissing   = errors.New("session token missing")
	ErrMalformed = errors.New("session token malformed")
)

// EncodeToken turns a transcript into a cookie-safe token.
func EncodeToken(t transcript.Transcript) string {
	return url.QueryEscape(t.String())
}

// DecodeToken is the inverse of EncodeToken.
func DecodeToken(token string) (transcript.Transcript, error) {
	if token == "" {
		return transcript.Transcript{}, ErrMissing
	}
	raw, err := url.QueryUnescape(token)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	t, err := transcript.Parse(raw)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return t, nil
}

// Load reads the transcript carried by the request cookie.
func Load(r *http.Request) (transcript.Transcript, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return transcript.Transcript{}, ErrMissing
	}
	return DecodeToken(c.Value)
}

// Save issues the transcript as the call's cookie. It returns the token size in bytes.
func Save(w http.ResponseWriter, t transcript.Transcript) int {
	token := EncodeToken(t)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	return len(token)
}
