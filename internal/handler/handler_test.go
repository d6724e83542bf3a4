package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/project-showcase/internal/auth"
	"github.com/sakif/project-showcase/internal/flash"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository/sqlite"
	"github.com/sakif/project-showcase/internal/service"
	"github.com/sakif/project-showcase/internal/view"
	"github.com/sakif/project-showcase/web"
	"github.com/stretchr/testify/require"
)

// testApp is a fully wired set of handlers on an in-memory store.
type testApp struct {
	router   http.Handler
	tokens   *auth.TokenService
	store    *sqlite.DB
	projects *service.ProjectService
	users    *service.AuthService
	provider *fakeProvider
	auth     *AuthHandler
}

// fakeProvider stands in for GitHub.
type fakeProvider struct {
	profile *auth.Profile
	err     error
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*auth.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-32-chars!!!!")
	require.NoError(t, err)
	views, err := view.New(web.FS)
	require.NoError(t, err)

	users := service.NewAuthService(store, logger)
	projects := service.NewProjectService(store, logger)
	provider := &fakeProvider{}

	pages := NewPageHandler(projects, users, views, true, logger)
	api := NewAPIHandler(projects, store, logger)
	authHandler := NewAuthHandler(provider, tokens, users, false, logger)

	r := chi.NewRouter()
	r.Get("/healthz", api.HandleHealth)
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/", pages.HandleIndex)
		r.Get("/all", pages.HandleAll)
		r.Get("/signin", pages.HandleSignIn)
		r.Get("/project/{id}", pages.HandleProject)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSignIn(tokens, "/signin"))
			r.Get("/project/{id}/vote", pages.HandleVote)
			r.Get("/project/{id}/delete", pages.HandleDelete)
			r.Get("/myprojects", pages.HandleMyProjects)
			r.Get("/myprojects/create", pages.HandleCreateForm)
			r.Post("/myprojects/create", pages.HandleCreate)
		})
		r.Get("/auth/github", authHandler.HandleGitHubLogin)
		r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.NotFound(pages.HandleNotFound)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", api.HandleListProjects)
		r.Get("/projects/{id}", api.HandleGetProject)
		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
	})

	return &testApp{
		router:   r,
		tokens:   tokens,
		store:    store,
		projects: projects,
		users:    users,
		provider: provider,
		auth:     authHandler,
	}
}

// signUp stores a GitHub user and returns it.
func (a *testApp) signUp(t *testing.T, username string) *model.User {
	t.Helper()
	user, err := a.users.AuthUser(context.Background(), &auth.Profile{
		Provider: auth.ProviderGitHub,
		ID:       "id-" + username,
		Username: username,
	})
	require.NoError(t, err)
	return user
}

func (a *testApp) createProject(t *testing.T, name string, owner *model.User) *model.Project {
	t.Helper()
	p, err := a.projects.CreateProject(context.Background(), service.ProjectInput{Name: name}, owner)
	require.NoError(t, err)
	return p
}

// do sends a request, signed in as user when user is non-nil.
func (a *testApp) do(t *testing.T, method, target string, body io.Reader, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if method == http.MethodPost && body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user != nil {
		token, err := a.tokens.Generate(user.Key)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	}
	return a.serve(req)
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func newRequestWithCookies(method, target string, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// flashOf decodes the flash message a response left behind.
func flashOf(rec *httptest.ResponseRecorder) flash.Messages {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "flash" && c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return flash.Pop(httptest.NewRecorder(), req)
}

func form(values map[string]string) io.Reader {
	v := url.Values{}
	for k, val := range values {
		v.Set(k, val)
	}
	return strings.NewReader(v.Encode())
}
