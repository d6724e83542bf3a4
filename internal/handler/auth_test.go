package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sakif/project-showcase/internal/auth"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGitHubLogin_SetsState(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/auth/github", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	state := cookieNamed(rec, stateCookie)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, location.Query().Get("state"))
}

// callback runs the callback with a state cookie and query.
func callback(app *testApp, cookieState, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
	}
	return app.serve(req)
}

func TestGitHubCallback_SignsIn(t *testing.T) {
	app := newTestApp(t)
	app.provider.profile = &auth.Profile{
		Provider:    auth.ProviderGitHub,
		ID:          "583231",
		Username:    "octocat",
		DisplayName: "The Octocat",
		Raw:         json.RawMessage(`{"avatar_url":"https://avatars.example.com/octocat"}`),
	}

	rec := callback(app, "abc", "state=abc&code=good")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	session := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, session)
	userKey, err := app.tokens.Validate(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "github-octocat", userKey)

	user, err := app.users.GetUser(context.Background(), "github-octocat")
	require.NoError(t, err)
	assert.Equal(t, "https://avatars.example.com/octocat", user.Avatar)
}

func TestGitHubCallback_Failures(t *testing.T) {
	tests := []struct {
		name        string
		cookieState string
		query       string
		exchangeErr error
	}{
		{"missing state cookie", "", "state=abc&code=good", nil},
		{"state mismatch", "abc", "state=xyz&code=good", nil},
		{"user denied", "abc", "state=abc&error=access_denied", nil},
		{"missing code", "abc", "state=abc", nil},
		{"exchange fails", "abc", "state=abc&code=bad", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			app.provider.profile = &auth.Profile{Provider: auth.ProviderGitHub, Username: "octocat"}
			app.provider.err = tt.exchangeErr

			rec := callback(app, tt.cookieState, tt.query)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
			assert.Equal(t, MsgSignInFailed, flashOf(rec).Error)
			assert.Nil(t, cookieNamed(rec, auth.SessionCookie))
		})
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	app := newTestApp(t)
	user := app.signUp(t, "octocat")

	rec := app.do(t, http.MethodPost, "/auth/logout", nil, user)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	session := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, session)
	assert.Empty(t, session.Value)
	assert.Less(t, session.MaxAge, 0)
}

func TestMe(t *testing.T) {
	app := newTestApp(t)
	user := app.signUp(t, "octocat")

	rec := app.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/me", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "github-octocat", got.Key)
	assert.Equal(t, "octocat", got.Username)

	rec = app.do(t, http.MethodGet, "/api/me", nil, &model.User{Key: "github-ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
