package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/project-showcase/internal/auth"
	"github.com/sakif/project-showcase/internal/flash"
	"github.com/sakif/project-showcase/internal/service"
)

const stateCookie = "oauth_state"

// MsgSignInFailed is flashed when the OAuth callback cannot complete.
const MsgSignInFailed = "Sign in failed, please try again."

// OAuthProvider is the part of auth.GitHubProvider the handler uses.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Profile, error)
}

// AuthHandler runs the GitHub sign-in flow and the session endpoints.
//
//   - HandleGitHubLogin    → redirect the browser to GitHub
//   - HandleGitHubCallback → exchange the code, store the user, set the session
//   - HandleLogout         → clear the session
//   - HandleMe             → the signed-in user as JSON
type AuthHandler struct {
	provider      OAuthProvider
	tokens        *auth.TokenService
	users         *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	provider OAuthProvider,
	tokens *auth.TokenService,
	users *service.AuthService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		tokens:        tokens,
		users:         users,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin starts the OAuth flow.
//
// HTTP: GET /auth/github
//
// A random state goes into a short-lived cookie and the authorization URL.
// The callback only proceeds when the two match, which proves this server
// started the flow.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow. Every failure ends on the
// home page with a flash error.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	fail := func(reason string, attrs ...any) {
		h.logger.Warn("auth callback: "+reason, attrs...)
		flash.Set(w, flash.Error, MsgSignInFailed)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		fail("missing state cookie")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	q := r.URL.Query()
	if q.Get("state") != cookie.Value {
		fail("state mismatch")
		return
	}
	if errParam := q.Get("error"); errParam != "" {
		fail("authorization denied", slog.String("error", errParam))
		return
	}
	code := q.Get("code")
	if code == "" {
		fail("missing code")
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		fail("exchange failed", slog.String("error", err.Error()))
		return
	}

	user, err := h.users.AuthUser(r.Context(), profile)
	if err != nil {
		fail("storing user failed", slog.String("error", err.Error()))
		return
	}

	token, err := h.tokens.Generate(user.Key)
	if err != nil {
		fail("token generation failed", slog.String("error", err.Error()))
		return
	}

	auth.SetSession(w, token, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Logout changes state, so it is POST-only. The token stays valid until it
// expires, but the browser no longer holds it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me (behind auth.RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	key, _ := auth.UserKeyFromContext(r.Context())

	user, err := h.users.GetUser(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
