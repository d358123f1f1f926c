package blob_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/blob"
	"taskboard/internal/db"
	"taskboard/internal/migrate"
)

func TestSQLStore(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))
	store := blob.SQLStore{DB: conn}
	ctx := context.Background()

	_, _, err = store.Get(ctx, "drawings/x.png")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	require.NoError(t, store.Put(ctx, "/drawings/x.png", []byte{1, 2, 3}, "image/png"))
	require.NoError(t, store.Put(ctx, "drawings/x.png", []byte{4}, "image/png"))
	data, ct, err := store.Get(ctx, "drawings/x.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, data)
	assert.Equal(t, "image/png", ct)

	require.NoError(t, store.Delete(ctx, "drawings/x.png"))
	require.NoError(t, store.Delete(ctx, "drawings/x.png"))
	_, _, err = store.Get(ctx, "drawings/x.png")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}
