package postgres

import (
	"context"
	"fmt"

	"github.com/sakif/project-showcase/internal/model"
)

// Relate stores a directed edge; an existing edge is left alone.
func (db *DB) Relate(ctx context.Context, rel model.Relation) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO relations (from_collection, from_key, kind, to_collection, to_key)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT DO NOTHING`,
		rel.FromCollection, rel.FromKey, rel.Kind, rel.ToCollection, rel.ToKey,
	)
	if err != nil {
		return fmt.Errorf("postgres: relating %s/%s -%s-> %s/%s: %w",
			rel.FromCollection, rel.FromKey, rel.Kind, rel.ToCollection, rel.ToKey, err)
	}
	return nil
}

// RelatedProjects follows kind edges from the user to projects.
func (db *DB) RelatedProjects(ctx context.Context, userKey, kind string) ([]model.Project, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT p.key, p.name, p.link, p.image, p.description, p.votes, p.username,
		        p.user_key, p.date_created, p.date_updated, p.ref
		 FROM relations r
		 JOIN projects p ON p.key = r.to_key
		 WHERE r.from_collection = $1 AND r.from_key = $2 AND r.kind = $3
		   AND r.to_collection = $4
		 ORDER BY r.created_at, p.key`,
		model.CollectionUsers, userKey, kind, model.CollectionProjects,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: reading %s relations of %s: %w", kind, userKey, err)
	}
	return scanProjects(rows)
}
