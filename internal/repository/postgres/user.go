package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/sakif/project-showcase/internal/model"
)

// CreateUserIfAbsent inserts the user unless the key is taken. A taken key
// leaves the stored record as it was and reports created=false.
func (db *DB) CreateUserIfAbsent(ctx context.Context, user *model.User) (bool, error) {
	emails, err := json.Marshal(user.Emails)
	if err != nil {
		return false, fmt.Errorf("postgres: encoding emails for %s: %w", user.Key, err)
	}
	providerData := []byte(user.ProviderData)
	if len(providerData) == 0 {
		providerData = []byte("{}")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO users (key, provider, provider_id, display_name, username,
		                    profile_url, emails, avatar, provider_data, ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (key) DO NOTHING`,
		user.Key, user.Provider, user.ID, user.DisplayName, user.Username,
		user.ProfileURL, emails, user.Avatar, providerData, newRef(), user.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: inserting user %s: %w", user.Key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetUserByKey loads a user by key.
func (db *DB) GetUserByKey(ctx context.Context, key string) (*model.User, error) {
	var (
		u            model.User
		emails       []byte
		providerData []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT key, provider, provider_id, display_name, username, profile_url,
		        emails, avatar, provider_data, created_at
		 FROM users WHERE key = $1`, key,
	).Scan(
		&u.Key, &u.Provider, &u.ID, &u.DisplayName, &u.Username, &u.ProfileURL,
		&emails, &u.Avatar, &providerData, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", key, err)
	}

	if err := json.Unmarshal(emails, &u.Emails); err != nil {
		return nil, fmt.Errorf("postgres: decoding emails for %s: %w", key, err)
	}
	u.ProviderData = json.RawMessage(providerData)
	return &u, nil
}
