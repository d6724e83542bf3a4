package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

var _ repository.ProjectRepository = (*DB)(nil)

const projectColumns = `key, name, link, image, description, votes, username, user_key,
	date_created, date_updated, ref`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
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

// CreateProjectIfAbsent inserts project under its key. A taken key is a
// Conflict; the caller picked a random key so this only happens on collision.
func (db *DB) CreateProjectIfAbsent(ctx context.Context, project *model.Project) error {
	ref := newRef()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		project.Key,
		project.Name,
		project.Link,
		project.Image,
		project.Description,
		project.Votes,
		project.User,
		project.UserKey,
		project.DateCreated,
		project.DateUpdated,
		ref,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating project: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("project", project.Key)
	}

	project.Ref = ref
	return nil
}

// GetProject returns the project and the ref it was read at.
func (db *DB) GetProject(ctx context.Context, key string) (*model.Project, error) {
	p, err := scanProject(db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE key = ?`, key,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("project", key)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", key, err)
	}
	return p, nil
}

// UpdateProjectIfMatch writes project only if the stored ref still equals ref.
//
// The WHERE clause carries the precondition, so the check and the write are
// one statement. Zero rows affected means either the project is gone or
// someone else wrote it first; a follow-up lookup tells the two apart.
func (db *DB) UpdateProjectIfMatch(ctx context.Context, project *model.Project, ref string) error {
	next := newRef()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE projects
		 SET name = ?, link = ?, image = ?, description = ?, votes = ?,
		     date_updated = ?, ref = ?
		 WHERE key = ? AND ref = ?`,
		project.Name,
		project.Link,
		project.Image,
		project.Description,
		project.Votes,
		project.DateUpdated,
		next,
		project.Key,
		ref,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating project %s: %w", project.Key, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM projects WHERE key = ?`, project.Key,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: checking project %s: %w", project.Key, err)
		}
		if exists == 0 {
			return apperror.NotFound("project", project.Key)
		}
		return apperror.PreconditionFailed("project", project.Key)
	}

	project.Ref = next
	return nil
}

// DeleteProject removes the project together with the edges pointing at it
// and its event log, in one transaction.
func (db *DB) DeleteProject(ctx context.Context, key string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete of %s: %w", key, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("project", key)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relations WHERE to_collection = ? AND to_key = ?`,
		model.CollectionProjects, key,
	); err != nil {
		return fmt.Errorf("sqlite: deleting relations of %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE collection = ? AND key = ?`,
		model.CollectionProjects, key,
	); err != nil {
		return fmt.Errorf("sqlite: deleting events of %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of %s: %w", key, err)
	}
	return nil
}

// SearchProjects runs a query over the projects collection and returns the
// total number of matches together with one page.
func (db *DB) SearchProjects(ctx context.Context, opts repository.SearchOptions) (*repository.SearchResult, error) {
	opts = opts.Normalize()
	placeholder := func(int) string { return "?" }

	where, args := repository.SearchFilter(opts.Query, placeholder)

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: counting projects: %w", err)
	}

	order, orderArgs := repository.RelevanceOrder(opts.Query, placeholder, len(args))
	pageArgs := append(append(append([]any{}, args...), orderArgs...), opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE `+where+`
		 ORDER BY `+order+`
		 LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching projects: %w", err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0, opts.Limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning project row: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}

	return &repository.SearchResult{Total: total, Projects: projects}, nil
}
