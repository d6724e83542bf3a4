package model

import "time"

// Project is a user-submitted entry that other users vote on.
//
// Name, Link, Image and Description come from the submission form. Everything
// else is assigned by the server. Votes is a redundant counter kept next to
// the vote events; it is bumped with a conditional write on Ref.
type Project struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Link        string    `json:"link"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	Votes       int       `json:"votes"`
	User        string    `json:"user"`    // owner's username, for display
	UserKey     string    `json:"userKey"` // owner's user key, for ownership checks
	DateCreated time.Time `json:"dateCreated"`
	DateUpdated time.Time `json:"dateUpdated"`

	// Ref is the stored revision this copy was read at. It changes on every write.
	Ref string `json:"-"`
}

// OwnedBy reports whether u created the project.
func (p *Project) OwnedBy(u *User) bool {
	if u == nil {
		return false
	}
	if p.UserKey != "" {
		return p.UserKey == u.Key
	}
	return p.User == u.Username
}

// ProjectList is a page of projects plus the total number of matches.
type ProjectList struct {
	Count    int       `json:"count"`
	Total    int       `json:"total"`
	Start    int       `json:"start"`
	Projects []Project `json:"projects"`
}
