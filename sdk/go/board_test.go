package taskboardsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/db"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
	"taskboard/internal/server"
)

func newBoard(t *testing.T) (*Board, *httptest.Server) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	handler, err := server.New(server.Config{
		Engine: engine.New(conn, nil),
		Auth:   server.AuthConfig{JWTSecret: "secret", DevLogin: true},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	require.NoError(t, c.DevLogin(context.Background(), "sdk-user"))
	s, err := NewStore(nil)
	require.NoError(t, err)
	return NewBoard(c, s), srv
}

func TestBoardAgainstServer(t *testing.T) {
	b, _ := newBoard(t)
	ctx := context.Background()

	created, err := b.Create(ctx, TaskInput{Title: "Plan trip", Priority: "medium"})
	require.NoError(t, err)
	_, ok := b.Store.Get(created.ID)
	assert.True(t, ok)

	moved, err := b.Move(ctx, created.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, moved.Status)

	done, err := b.ToggleComplete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	reopened, err := b.ToggleComplete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBacklog, reopened.Status)

	updated, calErr, err := b.Update(ctx, created.ID, TaskPatch{Description: strp("book flights")})
	require.NoError(t, err)
	assert.Empty(t, calErr)
	assert.Equal(t, "book flights", updated.Description)

	b.Store.Replace(nil)
	require.NoError(t, b.Refresh(ctx))
	require.Len(t, b.Store.All(), 1)

	require.NoError(t, b.Delete(ctx, created.ID))
	assert.Empty(t, b.Store.All())
}

func TestBoardRollsBackRejectedUpdate(t *testing.T) {
	b, _ := newBoard(t)
	ctx := context.Background()
	created, err := b.Create(ctx, TaskInput{Title: "Keep me"})
	require.NoError(t, err)

	_, _, err = b.Update(ctx, created.ID, TaskPatch{Title: strp("   ")})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)

	cur, ok := b.Store.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Keep me", cur.Title)
}

func TestBoardRollsBackFailedDelete(t *testing.T) {
	b, srv := newBoard(t)
	ctx := context.Background()
	created, err := b.Create(ctx, TaskInput{Title: "Sticky"})
	require.NoError(t, err)

	srv.Close()
	require.Error(t, b.Delete(ctx, created.ID))
	_, ok := b.Store.Get(created.ID)
	assert.True(t, ok)
}
