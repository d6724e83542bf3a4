package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	return ts
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService("short")
	assert.Error(t, err, "secrets shorter than 16 chars are rejected")

	_, err = NewTokenService("this-is-16-chars")
	assert.NoError(t, err)
}

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("github-octocat")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "header.payload.signature")

	other, err := ts.Generate("github-hubot")
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestGenerate_LastsSevenDays(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("github-octocat")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims{})
	require.NoError(t, err)
	c := parsed.Claims.(*claims)

	assert.Equal(t, "project-showcase", c.Issuer)
	assert.WithinDuration(t, time.Now().Add(SessionTTL), c.ExpiresAt.Time, time.Minute)
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("github-octocat")
	require.NoError(t, err)

	got, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "github-octocat", got)
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := NewTokenService("wrong-secret-32-chars-long!!!!!!")
	require.NoError(t, err)

	good, err := ts.Generate("github-octocat")
	require.NoError(t, err)
	expired, err := ts.GenerateWithDuration("github-octocat", -time.Second)
	require.NoError(t, err)
	foreign, err := other.Generate("github-octocat")
	require.NoError(t, err)
	noSubject, err := ts.Generate("")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"tampered signature", good[:len(good)-3] + "xxx"},
		{"wrong secret", foreign},
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"no subject", noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Validate(tt.token)
			assert.Error(t, err)
		})
	}
}
