package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

const projectColumns = `key, name, link, image, description, votes, username, user_key,
	date_created, date_updated, ref`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.Key, &p.Name, &p.Link, &p.Image, &p.Description, &p.Votes,
		&p.User, &p.UserKey, &p.DateCreated, &p.DateUpdated, &p.Ref,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjects(rows pgx.Rows) ([]model.Project, error) {
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating projects: %w", err)
	}
	return projects, nil
}

// CreateProjectIfAbsent inserts the project; a taken key is a Conflict.
func (db *DB) CreateProjectIfAbsent(ctx context.Context, project *model.Project) error {
	ref := newRef()

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (key) DO NOTHING`,
		project.Key, project.Name, project.Link, project.Image, project.Description,
		project.Votes, project.User, project.UserKey, project.DateCreated,
		project.DateUpdated, ref,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.Conflict("project", project.Key)
	}

	project.Ref = ref
	return nil
}

// GetProject returns the project with the ref it was read at.
func (db *DB) GetProject(ctx context.Context, key string) (*model.Project, error) {
	p, err := scanProject(db.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE key = $1`, key,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("project", key)
		}
		return nil, fmt.Errorf("postgres: getting project %s: %w", key, err)
	}
	return p, nil
}

// UpdateProjectIfMatch writes project only while the stored ref equals ref.
func (db *DB) UpdateProjectIfMatch(ctx context.Context, project *model.Project, ref string) error {
	next := newRef()

	tag, err := db.pool.Exec(ctx,
		`UPDATE projects
		 SET name = $1, link = $2, image = $3, description = $4, votes = $5,
		     date_updated = $6, ref = $7
		 WHERE key = $8 AND ref = $9`,
		project.Name, project.Link, project.Image, project.Description, project.Votes,
		project.DateUpdated, next, project.Key, ref,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating project %s: %w", project.Key, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM projects WHERE key = $1)`, project.Key,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: checking project %s: %w", project.Key, err)
		}
		if !exists {
			return apperror.NotFound("project", project.Key)
		}
		return apperror.PreconditionFailed("project", project.Key)
	}

	project.Ref = next
	return nil
}

// DeleteProject removes the project, its inbound edges and its event log.
func (db *DB) DeleteProject(ctx context.Context, key string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: beginning delete of %s: %w", key, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgres: deleting project %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("project", key)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM relations WHERE to_collection = $1 AND to_key = $2`,
		model.CollectionProjects, key,
	); err != nil {
		return fmt.Errorf("postgres: deleting relations of %s: %w", key, err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM events WHERE collection = $1 AND key = $2`,
		model.CollectionProjects, key,
	); err != nil {
		return fmt.Errorf("postgres: deleting events of %s: %w", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: committing delete of %s: %w", key, err)
	}
	return nil
}

// SearchProjects counts the matches and returns one page of them.
func (db *DB) SearchProjects(ctx context.Context, opts repository.SearchOptions) (*repository.SearchResult, error) {
	opts = opts.Normalize()

	where, args := repository.SearchFilter(opts.Query, placeholder)

	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: counting projects: %w", err)
	}

	order, orderArgs := repository.RelevanceOrder(opts.Query, placeholder, len(args))
	pageArgs := append(append(append([]any{}, args...), orderArgs...), opts.Limit, opts.Offset)
	n := len(pageArgs)

	rows, err := db.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE `+where+`
		 ORDER BY `+order+`
		 LIMIT `+placeholder(n-1)+` OFFSET `+placeholder(n),
		pageArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: searching projects: %w", err)
	}

	projects, err := scanProjects(rows)
	if err != nil {
		return nil, err
	}
	return &repository.SearchResult{Total: total, Projects: projects}, nil
}
