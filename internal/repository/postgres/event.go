package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/project-showcase/internal/model"
)

// AppendEvent adds an event to a document's log.
func (db *DB) AppendEvent(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data := []byte(event.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO events (id, collection, key, type, data, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Collection, event.Key, event.Type, data, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: appending %s event to %s/%s: %w",
			event.Type, event.Collection, event.Key, err)
	}
	return nil
}

// ListEvents returns one document's events of a type in append order.
func (db *DB) ListEvents(ctx context.Context, collection, key, eventType string) ([]model.Event, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, collection, key, type, data, occurred_at
		 FROM events
		 WHERE collection = $1 AND key = $2 AND type = $3
		 ORDER BY seq`,
		collection, key, eventType,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing %s events of %s/%s: %w", eventType, collection, key, err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var (
			e    model.Event
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.Collection, &e.Key, &e.Type, &data, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scanning event: %w", err)
		}
		e.Data = data
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating events: %w", err)
	}
	return events, nil
}
