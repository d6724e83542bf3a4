// Package auth handles sign-in for the showcase: the GitHub OAuth flow, the
// signed session token that follows it, and the middleware that reads it.
//
// SESSION FLOW:
//  1. /auth/github redirects the browser to GitHub with a random state
//  2. GitHub calls back /auth/github/callback with a code
//  3. The code is exchanged for a Profile, which the service turns into a User
//  4. A JWT carrying the user's key is stored in an HttpOnly cookie
//  5. Middleware validates the cookie on later requests and puts the key in
//     the request context
//
// The token is stateless: the server needs only the secret to verify it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long a sign-in lasts.
const SessionTTL = 7 * 24 * time.Hour

const issuer = "project-showcase"

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims stores the user key in the standard "sub" claim.
type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a session token for userKey valid for SessionTTL.
func (s *TokenService) Generate(userKey string) (string, error) {
	return s.GenerateWithDuration(userKey, SessionTTL)
}

// GenerateWithDuration issues a token expiring after d.
func (s *TokenService) GenerateWithDuration(userKey string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the user key it was issued for.
//
// Only HS256 tokens from this issuer with an expiry are accepted, so a token
// claiming alg "none" or signed for another app is rejected.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}
