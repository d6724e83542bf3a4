package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository"
)

var _ repository.EventRepository = (*DB)(nil)

// AppendEvent adds an event to a document's log and fills in ID and
// Timestamp when the caller left them empty.
func (db *DB) AppendEvent(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data := string(event.Data)
	if data == "" {
		data = "{}"
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (id, collection, key, type, data, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.Collection, event.Key, event.Type, data, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending %s event to %s/%s: %w",
			event.Type, event.Collection, event.Key, err)
	}
	return nil
}

// ListEvents returns the log for one document and type in append order.
func (db *DB) ListEvents(ctx context.Context, collection, key, eventType string) ([]model.Event, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, collection, key, type, data, occurred_at
		 FROM events
		 WHERE collection = ? AND key = ? AND type = ?
		 ORDER BY seq`,
		collection, key, eventType,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s events of %s/%s: %w", eventType, collection, key, err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var (
			e    model.Event
			data string
		)
		if err := rows.Scan(&e.ID, &e.Collection, &e.Key, &e.Type, &data, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		e.Data = []byte(data)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	return events, nil
}
