// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// User is an identity imported from an OAuth profile.
//
// The record is keyed by "<provider>-<username>" and is written exactly once,
// on first sign-in. Later sign-ins load the stored copy and never overwrite it,
// so ProviderData keeps whatever the provider returned the first time.
type User struct {
	Key          string          `json:"key"`
	Provider     string          `json:"provider"`
	ID           string          `json:"id"` // provider's own id for the account
	DisplayName  string          `json:"displayName"`
	Username     string          `json:"username"`
	ProfileURL   string          `json:"profileUrl"`
	Emails       []Email         `json:"emails"`
	Avatar       string          `json:"avatar"`
	ProviderData json.RawMessage `json:"providerData,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Email is one address reported by the provider.
type Email struct {
	Value    string `json:"value"`
	Primary  bool   `json:"primary,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// UserKey builds the storage key for a provider account.
func UserKey(provider, username string) string {
	return provider + "-" + username
}
