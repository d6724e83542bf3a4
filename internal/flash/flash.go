// Package flash carries one-shot messages across a redirect.
//
// A handler calls Set before redirecting; the next page render calls Pop,
// which returns the message and expires the cookie so it shows only once.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const cookieName = "flash"

// Kind selects how a message is styled.
type Kind string

const (
	Error   Kind = "error"
	Notice  Kind = "notice"
	Success Kind = "success"
)

// Messages is what views receive. At most one field is set per request.
type Messages struct {
	Error   string
	Notice  string
	Success string
}

// Empty reports whether there is nothing to show.
func (m Messages) Empty() bool {
	return m.Error == "" && m.Notice == "" && m.Success == ""
}

type payload struct {
	Kind    Kind   `json:"k"`
	Message string `json:"m"`
}

// Set stores a message for the next request, replacing any pending one.
func Set(w http.ResponseWriter, kind Kind, message string) {
	raw, err := json.Marshal(payload{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending message, if any, and clears it.
func Pop(w http.ResponseWriter, r *http.Request) Messages {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return Messages{}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Messages{}
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Messages{}
	}

	var m Messages
	switch p.Kind {
	case Error:
		m.Error = p.Message
	case Notice:
		m.Notice = p.Message
	case Success:
		m.Success = p.Message
	}
	return m
}
