// Package repository declares the storage contracts the service layer needs.
//
// The store behaves like a hosted document database: documents are written
// with conditional puts (if-absent or if-ref-matches), projects are linked to
// their owners with graph relations, votes go into a per-document event log,
// and the project collection is searchable. Implementations live in the
// sqlite and postgres subpackages.
package repository

import (
	"context"

	"github.com/sakif/project-showcase/internal/model"
)

// Search page bounds.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

type UserRepository interface {
	// CreateUserIfAbsent stores user under user.Key unless the key exists.
	// It reports whether the record was created.
	CreateUserIfAbsent(ctx context.Context, user *model.User) (bool, error)
	GetUserByKey(ctx context.Context, key string) (*model.User, error)
}

type ProjectRepository interface {
	// CreateProjectIfAbsent stores project under project.Key and sets Ref.
	// It fails with apperror.ErrConflict if the key is taken.
	CreateProjectIfAbsent(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, key string) (*model.Project, error)
	// UpdateProjectIfMatch overwrites the stored project only if its ref is
	// still ref, failing with apperror.ErrPreconditionFailed otherwise.
	UpdateProjectIfMatch(ctx context.Context, project *model.Project, ref string) error
	DeleteProject(ctx context.Context, key string) error
	SearchProjects(ctx context.Context, opts SearchOptions) (*SearchResult, error)
}

type RelationRepository interface {
	Relate(ctx context.Context, rel model.Relation) error
	// RelatedProjects returns the projects reachable from the user over kind edges.
	RelatedProjects(ctx context.Context, userKey, kind string) ([]model.Project, error)
}

type EventRepository interface {
	AppendEvent(ctx context.Context, event *model.Event) error
	// ListEvents returns the events of one type on a document, oldest first.
	ListEvents(ctx context.Context, collection, key, eventType string) ([]model.Event, error)
}

// Store is everything a backend provides.
type Store interface {
	UserRepository
	ProjectRepository
	RelationRepository
	EventRepository
	Ping(ctx context.Context) error
	Close() error
}

type SearchOptions struct {
	Query  Query
	Offset int
	Limit  int
}

// Normalize clamps the page bounds into range.
func (o SearchOptions) Normalize() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultSearchLimit
	}
	if o.Limit > MaxSearchLimit {
		o.Limit = MaxSearchLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type SearchResult struct {
	Total    int
	Projects []model.Project
}
