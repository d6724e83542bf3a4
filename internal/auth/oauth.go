package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sakif/project-showcase/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ProviderGitHub is the provider name used in user keys.
const ProviderGitHub = "github"

const githubAPI = "https://api.github.com"

// Profile is the identity an OAuth provider returns after sign-in. Raw keeps
// the provider's full /user payload.
type Profile struct {
	Provider    string
	ID          string
	DisplayName string
	Username    string
	ProfileURL  string
	Emails      []model.Email
	Raw         json.RawMessage
}

// githubUser is the part of GitHub's /user response the profile is built from.
type githubUser struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
	Email   string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider runs the authorization code flow against GitHub.
//
// The code-for-token exchange happens server to server with the client
// secret, so the access token never reaches the browser.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
	client *http.Client
}

// NewGitHubProvider creates a provider. callbackURL must match the OAuth
// app's registered callback exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: githubAPI,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// AuthURL is where the browser is sent to approve access. state is echoed
// back on the callback and must be checked against the state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	// oauth2 uses this client for the token request and as the base
	// transport of the authorized client, so both calls are traced.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	client := p.config.Client(ctx, token)

	raw, err := p.get(ctx, client, "/user")
	if err != nil {
		return nil, err
	}

	var gh githubUser
	if err := json.Unmarshal(raw, &gh); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if gh.ID == 0 || gh.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (id=%d login=%q)", gh.ID, gh.Login)
	}

	profile := &Profile{
		Provider:    ProviderGitHub,
		ID:          strconv.FormatInt(gh.ID, 10),
		DisplayName: gh.Name,
		Username:    gh.Login,
		ProfileURL:  gh.HTMLURL,
		Raw:         raw,
	}

	// Private addresses only come from /user/emails. If that call fails the
	// public address on the profile is still usable.
	emails, err := p.emails(ctx, client)
	switch {
	case err == nil:
		profile.Emails = emails
	case gh.Email != "":
		profile.Emails = []model.Email{{Value: gh.Email, Primary: true}}
	}

	return profile, nil
}

func (p *GitHubProvider) emails(ctx context.Context, client *http.Client) ([]model.Email, error) {
	raw, err := p.get(ctx, client, "/user/emails")
	if err != nil {
		return nil, err
	}

	var list []githubEmail
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user/emails response: %w", err)
	}

	emails := make([]model.Email, 0, len(list))
	for _, e := range list {
		emails = append(emails, model.Email{Value: e.Email, Primary: e.Primary, Verified: e.Verified})
	}
	return emails, nil
}

func (p *GitHubProvider) get(ctx context.Context, client *http.Client, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: reading GitHub %s response: %w", path, err)
	}
	return body, nil
}
