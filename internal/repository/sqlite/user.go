package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// CreateUserIfAbsent inserts the user unless a row with the same key exists.
//
// ON CONFLICT DO NOTHING makes this a single conditional write: the first
// sign-in creates the record, later ones leave it untouched and report
// created=false.
func (db *DB) CreateUserIfAbsent(ctx context.Context, user *model.User) (bool, error) {
	emails, err := json.Marshal(user.Emails)
	if err != nil {
		return false, fmt.Errorf("sqlite: encoding emails for %s: %w", user.Key, err)
	}
	providerData := string(user.ProviderData)
	if providerData == "" {
		providerData = "{}"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (key, provider, provider_id, display_name, username,
		                    profile_url, emails, avatar, provider_data, ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		user.Key,
		user.Provider,
		user.ID,
		user.DisplayName,
		user.Username,
		user.ProfileURL,
		string(emails),
		user.Avatar,
		providerData,
		newRef(),
		user.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting user %s: %w", user.Key, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

// GetUserByKey loads a user by "<provider>-<username>" key.
func (db *DB) GetUserByKey(ctx context.Context, key string) (*model.User, error) {
	var (
		u            model.User
		emails       string
		providerData string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT key, provider, provider_id, display_name, username, profile_url,
		        emails, avatar, provider_data, created_at
		 FROM users WHERE key = ?`,
		key,
	).Scan(
		&u.Key,
		&u.Provider,
		&u.ID,
		&u.DisplayName,
		&u.Username,
		&u.ProfileURL,
		&emails,
		&u.Avatar,
		&providerData,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(emails), &u.Emails); err != nil {
		return nil, fmt.Errorf("sqlite: decoding emails for %s: %w", key, err)
	}
	u.ProviderData = json.RawMessage(providerData)

	return &u, nil
}
