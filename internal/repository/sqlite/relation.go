package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

var _ repository.RelationRepository = (*DB)(nil)

// Relate stores a directed edge. Creating an edge that exists is a no-op.
func (db *DB) Relate(ctx context.Context, rel model.Relation) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO relations (from_collection, from_key, kind, to_collection, to_key)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		rel.FromCollection, rel.FromKey, rel.Kind, rel.ToCollection, rel.ToKey,
	)
	if err != nil {
		return fmt.Errorf("sqlite: relating %s/%s -%s-> %s/%s: %w",
			rel.FromCollection, rel.FromKey, rel.Kind, rel.ToCollection, rel.ToKey, err)
	}
	return nil
}

// RelatedProjects follows kind edges from the user to projects.
func (db *DB) RelatedProjects(ctx context.Context, userKey, kind string) ([]model.Project, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.key, p.name, p.link, p.image, p.description, p.votes, p.username,
		        p.user_key, p.date_created, p.date_updated, p.ref
		 FROM relations r
		 JOIN projects p ON p.key = r.to_key
		 WHERE r.from_collection = ? AND r.from_key = ? AND r.kind = ?
		   AND r.to_collection = ?
		 ORDER BY r.created_at, p.key`,
		model.CollectionUsers, userKey, kind, model.CollectionProjects,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading %s relations of %s: %w", kind, userKey, err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning related project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating related projects: %w", err)
	}
	return projects, nil
}
