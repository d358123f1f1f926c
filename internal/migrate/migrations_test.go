package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/db"
	"taskboard/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()

	v, err := migrate.CurrentVersion(ctx, conn)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, migrate.Migrate(conn))
	require.NoError(t, migrate.Migrate(conn))

	latest, err := migrate.Latest()
	require.NoError(t, err)
	v, err = migrate.CurrentVersion(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, latest, v)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('tasks','drawings','voice_recordings','calendar_tokens','blobs','api_keys','events')`).Scan(&n))
	assert.Equal(t, 7, n)
}

func TestTaskChecks(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))

	_, err = conn.Exec(`INSERT INTO tasks(id,owner_id,title,status,priority,created_at,updated_at) VALUES ('a','u','  ','backlog','low','x','x')`)
	assert.Error(t, err)
	_, err = conn.Exec(`INSERT INTO tasks(id,owner_id,title,status,priority,created_at,updated_at) VALUES ('a','u','t','done','low','x','x')`)
	assert.Error(t, err)
}
