package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/sakif/project-showcase/internal/auth"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

// AuthService turns OAuth profiles into stored users.
//
//	AuthHandler (HTTP) → AuthService → UserRepository
//
// Users are written once, with a conditional put on their key, and never
// updated afterwards. A returning user gets the record stored on first
// sign-in.
type AuthService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, logger: logger}
}

// AuthUser stores the profile's user if it is new and returns the user.
func (s *AuthService) AuthUser(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/auth: profile must not be nil")
	}
	if profile.Provider == "" || profile.Username == "" {
		return nil, apperror.ValidationFailed("username", "profile has no provider or username")
	}

	user := &model.User{
		Key:          model.UserKey(profile.Provider, profile.Username),
		Provider:     profile.Provider,
		ID:           profile.ID,
		DisplayName:  profile.DisplayName,
		Username:     profile.Username,
		ProfileURL:   profile.ProfileURL,
		Emails:       profile.Emails,
		Avatar:       avatarURL(profile.Raw),
		ProviderData: profile.Raw,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.users.CreateUserIfAbsent(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", user.Key, err)
	}
	if !created {
		stored, err := s.users.GetUserByKey(ctx, user.Key)
		if err != nil {
			return nil, fmt.Errorf("service/auth: loading user %s: %w", user.Key, err)
		}
		user = stored
	}

	s.logger.Info("user authenticated",
		slog.String("userKey", user.Key),
		slog.Bool("new", created),
	)
	return user, nil
}

// GetUser loads the user a session token was issued for.
func (s *AuthService) GetUser(ctx context.Context, key string) (*model.User, error) {
	if key == "" {
		return nil, apperror.Unauthorized("no user in session")
	}
	user, err := s.users.GetUserByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", key, err)
	}
	return user, nil
}

// avatarURL reads avatar_url from a raw provider payload.
func avatarURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var payload struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.AvatarURL
}
