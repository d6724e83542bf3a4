package auth

import (
	"context"
	"net/http"

	"github.com/sakif/project-showcase/internal/flash"
)

// SessionCookie holds the signed session token.
const SessionCookie = "session"

// SignInRequired is flashed when a signed-out visitor hits a protected page.
const SignInRequired = "Please sign in!"

// contextKey is unexported so no other package can collide with our values.
type contextKey string

const userKeyKey contextKey = "userKey"

// SetSession stores token in the session cookie. secure should be true
// whenever the site is served over HTTPS.
func SetSession(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession expires the session cookie.
func ClearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// OptionalAuth puts the user key in the context when a valid session is
// present and lets every request through. tokens may be nil when sign-in is
// disabled.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userKey, ok := extractUserKey(r, tokens); ok {
				r = r.WithContext(WithUserKey(r.Context(), userKey))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth guards JSON endpoints: requests without a valid session get a
// 401 body in the API error format.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userKey, ok := extractUserKey(r, tokens)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserKey(r.Context(), userKey)))
		})
	}
}

// RequireSignIn guards HTML pages: signed-out visitors are sent to
// signInPath with a flash error.
func RequireSignIn(tokens *TokenService, signInPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userKey, ok := extractUserKey(r, tokens)
			if !ok {
				flash.Set(w, flash.Error, SignInRequired)
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserKey(r.Context(), userKey)))
		})
	}
}

// WithUserKey returns a context carrying userKey.
func WithUserKey(ctx context.Context, userKey string) context.Context {
	return context.WithValue(ctx, userKeyKey, userKey)
}

// UserKeyFromContext returns the signed-in user's key, or ("", false) for
// anonymous requests.
func UserKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(userKeyKey).(string)
	return key, ok && key != ""
}

func extractUserKey(r *http.Request, tokens *TokenService) (string, bool) {
	if tokens == nil {
		return "", false
	}
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	userKey, err := tokens.Validate(cookie.Value)
	if err != nil {
		return "", false
	}
	return userKey, true
}
