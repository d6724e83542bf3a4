package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/repository/sqlite"
	"github.com/stretchr/testify/require"
)

// Service tests run against a real in-memory SQLite store rather than a mock:
// the conditional writes are the behaviour under test.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(username string) *model.User {
	return &model.User{
		Key:      model.UserKey("github", username),
		Provider: "github",
		Username: username,
	}
}
