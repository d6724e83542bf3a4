package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

func TestCreateProjectIfAbsent_SetsRef(t *testing.T) {
	db := newTestDB(t)
	p := createTestProject(t, db, "p1", "Chess Bot", testOwner("octocat"), time.Now().UTC())

	if p.Ref == "" {
		t.Fatal("CreateProjectIfAbsent() did not set Ref")
	}

	got, err := db.GetProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Ref != p.Ref {
		t.Errorf("stored Ref = %q, want %q", got.Ref, p.Ref)
	}
	if got.Name != "Chess Bot" || got.User != "octocat" || got.UserKey != "github-octocat" {
		t.Errorf("GetProject() = %+v", got)
	}
	if got.Votes != 0 {
		t.Errorf("Votes = %d, want 0", got.Votes)
	}
}

func TestCreateProjectIfAbsent_DuplicateKey(t *testing.T) {
	db := newTestDB(t)
	owner := testOwner("octocat")
	createTestProject(t, db, "dup", "First", owner, time.Now().UTC())

	err := db.CreateProjectIfAbsent(context.Background(), &model.Project{
		Key:  "dup",
		Name: "Second",
		User: owner.Username,
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateProjectIfAbsent() error = %v, want ErrConflict", err)
	}

	got, _ := db.GetProject(context.Background(), "dup")
	if got.Name != "First" {
		t.Errorf("Name = %q, the first write must win", got.Name)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetProject(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProject() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProjectIfMatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestProject(t, db, "p1", "Chess Bot", testOwner("octocat"), time.Now().UTC())

	first, _ := db.GetProject(ctx, "p1")
	stale, _ := db.GetProject(ctx, "p1")

	first.Votes++
	if err := db.UpdateProjectIfMatch(ctx, first, first.Ref); err != nil {
		t.Fatalf("UpdateProjectIfMatch() error = %v", err)
	}
	if first.Ref == stale.Ref {
		t.Error("UpdateProjectIfMatch() did not rotate Ref")
	}

	// A writer holding the old ref must lose.
	stale.Votes++
	err := db.UpdateProjectIfMatch(ctx, stale, stale.Ref)
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("stale UpdateProjectIfMatch() error = %v, want ErrPreconditionFailed", err)
	}

	got, _ := db.GetProject(ctx, "p1")
	if got.Votes != 1 {
		t.Errorf("Votes = %d, want 1", got.Votes)
	}
}

func TestUpdateProjectIfMatch_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateProjectIfMatch(context.Background(), &model.Project{Key: "ghost"}, "any-ref")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProjectIfMatch() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteProject_RemovesEdgesAndEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := testOwner("octocat")
	createTestProject(t, db, "p1", "Chess Bot", owner, time.Now().UTC())

	if err := db.Relate(ctx, model.MemberOf(owner.Key, "p1")); err != nil {
		t.Fatalf("Relate() error = %v", err)
	}
	vote, _ := model.NewVoteEvent("p1", "github-hubot")
	if err := db.AppendEvent(ctx, vote); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	if err := db.DeleteProject(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	if _, err := db.GetProject(ctx, "p1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProject() after delete error = %v, want ErrNotFound", err)
	}
	related, _ := db.RelatedProjects(ctx, owner.Key, model.RelationMember)
	if len(related) != 0 {
		t.Errorf("RelatedProjects() after delete = %d projects, want 0", len(related))
	}
	events, _ := db.ListEvents(ctx, model.CollectionProjects, "p1", model.EventTypeVote)
	if len(events) != 0 {
		t.Errorf("ListEvents() after delete = %d events, want 0", len(events))
	}
}

func TestDeleteProject_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteProject(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteProject() error = %v, want ErrNotFound", err)
	}
}

func TestSearchProjects(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	octocat, hubot := testOwner("octocat"), testOwner("hubot")

	createTestProject(t, db, "a", "Chess Bot", octocat, base.Add(2*time.Hour))
	createTestProject(t, db, "b", "Weather Station", hubot, base)
	createTestProject(t, db, "c", "Go Chess Engine", hubot, base.Add(time.Hour))

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantKeys  []string
	}{
		{"match all is oldest first", "*", 3, []string{"b", "c", "a"}},
		{"empty query matches all", "", 3, []string{"b", "c", "a"}},
		{"bare term", "chess", 2, nil},
		{"terms are ANDed", "chess engine", 1, []string{"c"}},
		{"field restricts column", "user:hubot", 2, nil},
		{"field and bare term", "user:octocat chess", 1, []string{"a"}},
		{"case-insensitive", "WEATHER", 1, []string{"b"}},
		{"no match", "spaceship", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := db.SearchProjects(ctx, repository.SearchOptions{
				Query: repository.ParseQuery(tt.query),
			})
			if err != nil {
				t.Fatalf("SearchProjects() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if tt.wantKeys == nil {
				return
			}
			if len(res.Projects) != len(tt.wantKeys) {
				t.Fatalf("got %d projects, want %d", len(res.Projects), len(tt.wantKeys))
			}
			for i, key := range tt.wantKeys {
				if res.Projects[i].Key != key {
					t.Errorf("Projects[%d].Key = %q, want %q", i, res.Projects[i].Key, key)
				}
			}
		})
	}
}

func TestSearchProjects_Pagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := testOwner("octocat")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, key := range []string{"p0", "p1", "p2", "p3", "p4"} {
		createTestProject(t, db, key, "Project "+key, owner, base.Add(time.Duration(i)*time.Minute))
	}

	res, err := db.SearchProjects(ctx, repository.SearchOptions{Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("SearchProjects() error = %v", err)
	}
	if res.Total != 5 {
		t.Errorf("Total = %d, want 5", res.Total)
	}
	if len(res.Projects) != 2 || res.Projects[0].Key != "p2" || res.Projects[1].Key != "p3" {
		t.Errorf("page = %+v, want p2,p3", res.Projects)
	}

	res, _ = db.SearchProjects(ctx, repository.SearchOptions{Offset: 10})
	if len(res.Projects) != 0 {
		t.Errorf("past-the-end page has %d projects, want 0", len(res.Projects))
	}
}

func TestSearchProjects_EscapesLikeWildcards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := testOwner("octocat")
	createTestProject(t, db, "pct", "100% Uptime", owner, time.Now().UTC())
	createTestProject(t, db, "plain", "1000 Uptime", owner, time.Now().UTC())

	res, err := db.SearchProjects(ctx, repository.SearchOptions{Query: repository.ParseQuery("100%")})
	if err != nil {
		t.Fatalf("SearchProjects() error = %v", err)
	}
	if res.Total != 1 || res.Projects[0].Key != "pct" {
		t.Errorf("SearchProjects(100%%) = %+v, want only pct", res.Projects)
	}
}
