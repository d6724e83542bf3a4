package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sakif/project-showcase/internal/auth"
	"github.com/sakif/project-showcase/internal/config"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret-32-characters"

func testConfig(dbPath string) config.Config {
	return config.Config{
		Port:               8080,
		DBPath:             dbPath,
		SessionSecret:      testSecret,
		GitHubClientID:     "client-id",
		GitHubClientSecret: "client-secret",
		GitHubCallbackURL:  "http://localhost:8080/auth/github/callback",
	}
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := OpenStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv, err := New(cfg, store, logger)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOpenStore_CreatesSQLiteDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "showcase.db")
	srv := newTestServer(t, testConfig(dbPath))

	assert.FileExists(t, dbPath)
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig(":memory:"))

	tests := []struct {
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"/", http.StatusOK, ""},
		{"/all", http.StatusFound, "/"},
		{"/signin", http.StatusOK, ""},
		{"/healthz", http.StatusOK, ""},
		{"/static/css/style.css", http.StatusOK, ""},
		{"/project/missing", http.StatusNotFound, ""},
		{"/myprojects", http.StatusSeeOther, "/signin"},
		{"/myprojects/create", http.StatusSeeOther, "/signin"},
		{"/project/abc/vote", http.StatusSeeOther, "/signin"},
		{"/api/me", http.StatusUnauthorized, ""},
		{"/api/projects", http.StatusOK, ""},
		{"/api/projects/missing", http.StatusNotFound, ""},
		{"/nowhere", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRoutes_GitHubSignIn(t *testing.T) {
	srv := newTestServer(t, testConfig(":memory:"))

	rec := get(t, srv, "/auth/github")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://github.com/login/oauth/authorize"))
}

func TestRoutes_SignInDisabled(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.GitHubClientID = ""
	srv := newTestServer(t, cfg)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/auth/github").Code)
	assert.Contains(t, get(t, srv, "/signin").Body.String(), "not configured")
}

func TestRoutes_SignedInFlow(t *testing.T) {
	srv := newTestServer(t, testConfig(":memory:"))

	_, err := srv.store.CreateUserIfAbsent(context.Background(), userFixture())
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)
	token, err := tokens.Generate("github-octocat")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/myprojects/create",
		strings.NewReader("projectName=Rocket&projectLink=https%3A%2F%2Frocket.example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/myprojects", rec.Header().Get("Location"))

	list := get(t, srv, "/api/projects")
	assert.Contains(t, list.Body.String(), `"name":"Rocket"`)
}

func userFixture() *model.User {
	return &model.User{
		Key:      model.UserKey("github", "octocat"),
		Provider: "github",
		Username: "octocat",
	}
}
