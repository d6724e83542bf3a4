// Package service holds the showcase's data-access operations.
//
//	Handler (HTTP) → Service (rules and orchestration) → Repository (storage)
//
// Services take plain values and *model.User, never HTTP types, and report
// failures as apperror values that the handlers map to responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

// Validation limits and paging.
const (
	MaxProjectNameLength = 100
	MaxDescriptionLength = 2000
	PageSize             = 20
)

// maxVoteAttempts bounds the get-then-put loop that bumps a vote counter.
const maxVoteAttempts = 3

// ProjectStore is the storage a ProjectService needs.
type ProjectStore interface {
	repository.ProjectRepository
	repository.RelationRepository
	repository.EventRepository
}

// ProjectInput is what a user submits on the create form.
type ProjectInput struct {
	Name        string
	Link        string
	Image       string
	Description string
}

type ProjectService struct {
	store  ProjectStore
	logger *slog.Logger
	now    func() time.Time
}

func NewProjectService(store ProjectStore, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateProject validates in, stores a new project owned by user and links
// it to the user with a member edge.
func (s *ProjectService) CreateProject(ctx context.Context, in ProjectInput, user *model.User) (*model.Project, error) {
	if user == nil {
		return nil, apperror.Unauthorized("sign in to create a project")
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	in.Image = strings.TrimSpace(in.Image)
	in.Description = strings.TrimSpace(in.Description)

	if err := validateProject(in); err != nil {
		return nil, err
	}

	now := s.now()
	project := &model.Project{
		Key:         xid.New().String(),
		Name:        in.Name,
		Link:        in.Link,
		Image:       in.Image,
		Description: in.Description,
		Votes:       0,
		User:        user.Username,
		UserKey:     user.Key,
		DateCreated: now,
		DateUpdated: now,
	}

	if err := s.store.CreateProjectIfAbsent(ctx, project); err != nil {
		return nil, fmt.Errorf("service/project: creating project: %w", err)
	}

	// The project is already stored; a failed edge only hides it from
	// "my projects".
	if err := s.store.Relate(ctx, model.MemberOf(user.Key, project.Key)); err != nil {
		return nil, fmt.Errorf("service/project: linking project %s to %s: %w", project.Key, user.Key, err)
	}

	s.logger.Info("project created",
		slog.String("key", project.Key),
		slog.String("userKey", user.Key),
	)
	return project, nil
}

func validateProject(in ProjectInput) error {
	if in.Name == "" {
		return apperror.ValidationFailed("name", "project name is required")
	}
	if len(in.Name) > MaxProjectNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("project name must be at most %d characters", MaxProjectNameLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	if in.Link != "" && !isWebURL(in.Link) {
		return apperror.ValidationFailed("link", "link must be an http(s) URL")
	}
	if in.Image != "" && !isWebURL(in.Image) {
		return apperror.ValidationFailed("image", "image must be an http(s) URL")
	}
	return nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// GetProject returns the project stored under key.
func (s *ProjectService) GetProject(ctx context.Context, key string) (*model.Project, error) {
	if key == "" {
		return nil, apperror.ValidationFailed("id", "project id is required")
	}
	project, err := s.store.GetProject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("service/project: getting project %s: %w", key, err)
	}
	return project, nil
}

// DeleteProject removes a project. Only its owner may delete it.
func (s *ProjectService) DeleteProject(ctx context.Context, key string, user *model.User) error {
	project, err := s.GetProject(ctx, key)
	if err != nil {
		return err
	}
	if !project.OwnedBy(user) {
		return apperror.Forbidden("only the owner can delete this project")
	}

	if err := s.store.DeleteProject(ctx, key); err != nil {
		return fmt.Errorf("service/project: deleting project %s: %w", key, err)
	}

	s.logger.Info("project deleted", slog.String("key", key), slog.String("userKey", user.Key))
	return nil
}

// GetMyProjects lists the projects user created, least recently updated first.
func (s *ProjectService) GetMyProjects(ctx context.Context, user *model.User) (*model.ProjectList, error) {
	if user == nil {
		return nil, apperror.Unauthorized("sign in to see your projects")
	}

	projects, err := s.store.RelatedProjects(ctx, user.Key, model.RelationMember)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing projects of %s: %w", user.Key, err)
	}
	sortByDateUpdated(projects)

	return &model.ProjectList{
		Count:    len(projects),
		Total:    len(projects),
		Projects: projects,
	}, nil
}

// GetProjects returns one page of projects matching query, starting at
// offset start. An empty query lists everything by update date; a search
// keeps the store's relevance order.
func (s *ProjectService) GetProjects(ctx context.Context, query string, start int) (*model.ProjectList, error) {
	if start < 0 {
		start = 0
	}

	q := repository.ParseQuery(query)
	result, err := s.store.SearchProjects(ctx, repository.SearchOptions{
		Query:  q,
		Offset: start,
		Limit:  PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("service/project: searching %q: %w", query, err)
	}

	projects := result.Projects
	if q.MatchAll() {
		sortByDateUpdated(projects)
	}

	return &model.ProjectList{
		Count:    len(projects),
		Total:    result.Total,
		Start:    start,
		Projects: projects,
	}, nil
}

// ParseStart reads a paging offset. Anything that is not a non-negative
// integer means the first page.
func ParseStart(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func sortByDateUpdated(projects []model.Project) {
	slices.SortStableFunc(projects, func(a, b model.Project) int {
		return a.DateUpdated.Compare(b.DateUpdated)
	})
}

// VoteForProject records user's vote on the project and bumps its counter.
//
// The vote event and the counter are separate writes, so under concurrent
// votes the counter may drift from the number of events. The counter update
// itself is a conditional put retried on ref mismatch.
func (s *ProjectService) VoteForProject(ctx context.Context, key string, user *model.User) error {
	if user == nil {
		return apperror.Unauthorized("sign in to vote")
	}
	if _, err := s.GetProject(ctx, key); err != nil {
		return err
	}

	events, err := s.store.ListEvents(ctx, model.CollectionProjects, key, model.EventTypeVote)
	if err != nil {
		return fmt.Errorf("service/project: reading votes on %s: %w", key, err)
	}
	if slices.ContainsFunc(events, func(e model.Event) bool { return e.Voter() == user.Key }) {
		return apperror.AlreadyExists("you already voted for this project")
	}

	vote, err := model.NewVoteEvent(key, user.Key)
	if err != nil {
		return fmt.Errorf("service/project: encoding vote: %w", err)
	}
	if err := s.store.AppendEvent(ctx, vote); err != nil {
		return fmt.Errorf("service/project: recording vote on %s: %w", key, err)
	}

	if err := s.incrementVotes(ctx, key); err != nil {
		return err
	}

	s.logger.Info("vote recorded", slog.String("key", key), slog.String("userKey", user.Key))
	return nil
}

func (s *ProjectService) incrementVotes(ctx context.Context, key string) error {
	var err error
	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		var project *model.Project
		project, err = s.store.GetProject(ctx, key)
		if err != nil {
			return fmt.Errorf("service/project: reloading project %s: %w", key, err)
		}

		project.Votes++
		err = s.store.UpdateProjectIfMatch(ctx, project, project.Ref)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperror.ErrPreconditionFailed) {
			return fmt.Errorf("service/project: counting vote on %s: %w", key, err)
		}

		s.logger.Debug("vote counter raced, retrying",
			slog.String("key", key),
			slog.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("service/project: counting vote on %s after %d attempts: %w", key, maxVoteAttempts, err)
}
