package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/migrate"
	"taskboard/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.Repo{DB: conn}
}

func insertTask(t *testing.T, r repo.Repo, task domain.Task) {
	t.Helper()
	if task.Status == "" {
		task.Status = domain.StatusBacklog
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	require.NoError(t, r.InsertTask(context.Background(), nil, task))
}

func TestTaskRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	due := "2024-05-01T09:00:00Z"
	insertTask(t, r, domain.Task{
		ID: "t1", OwnerID: "u1", Title: "Pay rent", Description: "before the 1st",
		DueDate: &due, Tags: []string{"home", "money"}, AIGenerated: true,
		CreatedAt: "2024-04-01T00:00:00Z", UpdatedAt: "2024-04-01T00:00:00Z",
	})
	got, err := r.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Pay rent", got.Title)
	assert.Equal(t, []string{"home", "money"}, got.Tags)
	assert.True(t, got.AIGenerated)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due, *got.DueDate)
	assert.Nil(t, got.CalendarEventID)

	_, err = r.GetTask(ctx, "someone-else", "t1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestListTasksFilters(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	insertTask(t, r, domain.Task{ID: "a", OwnerID: "u1", Title: "Buy milk", Tags: []string{"shopping"}, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"})
	insertTask(t, r, domain.Task{ID: "b", OwnerID: "u1", Title: "Fix bike", Description: "rear BRAKE", Status: domain.StatusInProgress, Priority: domain.PriorityHigh, Tags: []string{"garage"}, CreatedAt: "2024-01-02T00:00:00Z", UpdatedAt: "2024-01-02T00:00:00Z"})
	insertTask(t, r, domain.Task{ID: "c", OwnerID: "u1", Title: "100% done_ish", Tags: []string{}, CreatedAt: "2024-01-03T00:00:00Z", UpdatedAt: "2024-01-03T00:00:00Z"})
	insertTask(t, r, domain.Task{ID: "z", OwnerID: "u2", Title: "Buy milk", Tags: []string{"shopping"}, CreatedAt: "2024-01-04T00:00:00Z", UpdatedAt: "2024-01-04T00:00:00Z"})

	ids := func(f repo.TaskFilters) []string {
		f.OwnerID = "u1"
		tasks, err := r.ListTasks(ctx, f)
		require.NoError(t, err)
		out := []string{}
		for _, task := range tasks {
			out = append(out, task.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids(repo.TaskFilters{}))
	assert.Equal(t, []string{"b"}, ids(repo.TaskFilters{Status: domain.StatusInProgress}))
	assert.Equal(t, []string{"b"}, ids(repo.TaskFilters{Priority: domain.PriorityHigh}))
	assert.Equal(t, []string{"b", "a"}, ids(repo.TaskFilters{Tags: []string{"garage", "shopping"}}))
	assert.Equal(t, []string{"b"}, ids(repo.TaskFilters{Search: "brake"}))
	assert.Equal(t, []string{"c"}, ids(repo.TaskFilters{Search: "100%"}))
	assert.Equal(t, []string{"c", "b"}, ids(repo.TaskFilters{CreatedSince: "2024-01-02T00:00:00Z"}))
	assert.Equal(t, []string{"c"}, ids(repo.TaskFilters{Limit: 1}))
}

func TestDeleteDrawingsForTask(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	insertTask(t, r, domain.Task{ID: "t1", OwnerID: "u1", Title: "x", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"})
	taskID := "t1"
	for _, id := range []string{"d1", "d2"} {
		require.NoError(t, r.InsertDrawing(ctx, nil, domain.Drawing{ID: id, OwnerID: "u1", TaskID: &taskID, Name: id, Data: `{"elements":[]}`, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"}))
	}
	require.NoError(t, r.InsertDrawing(ctx, nil, domain.Drawing{ID: "free", OwnerID: "u1", Name: "free", Data: `{"elements":[]}`, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"}))

	removed, err := r.DeleteDrawingsForTask(ctx, nil, "u1", "t1")
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	n, err := r.CountDrawingsForTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Zero(t, n)
	all, err := r.ListDrawings(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "free", all[0].ID)
}

func TestCalendarTokenKeepsRefreshToken(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SaveCalendarToken(ctx, domain.CalendarToken{OwnerID: "u1", AccessToken: "a1", RefreshToken: "r1", UpdatedAt: "2024-01-01T00:00:00Z"}))
	require.NoError(t, r.SaveCalendarToken(ctx, domain.CalendarToken{OwnerID: "u1", AccessToken: "a2", UpdatedAt: "2024-01-02T00:00:00Z"}))
	tok, err := r.GetCalendarToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a2", tok.AccessToken)
	assert.Equal(t, "r1", tok.RefreshToken)

	require.NoError(t, r.DeleteCalendarToken(ctx, "u1"))
	_, err = r.GetCalendarToken(ctx, "u1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRecordingsPage(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for i, ts := range []string{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "2024-01-03T00:00:00Z"} {
		require.NoError(t, r.InsertRecording(ctx, nil, domain.VoiceRecording{
			ID: string(rune('a' + i)), OwnerID: "u1", Transcript: "hi", Format: "audio/webm", Language: "en", CreatedAt: ts,
		}))
	}
	page, total, err := r.ListRecordings(ctx, "u1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
}

func TestAPIKeys(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.InsertAPIKey(ctx, domain.APIKey{ID: "k1", OwnerID: "u1", KeyHash: repo.HashAPIKey("secret"), CreatedAt: "2024-01-01T00:00:00Z"}))
	key, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey(" secret "))
	require.NoError(t, err)
	assert.Equal(t, "u1", key.OwnerID)
	assert.ErrorIs(t, r.DeleteAPIKey(ctx, "u2", "k1"), repo.ErrNotFound)
	require.NoError(t, r.DeleteAPIKey(ctx, "u1", "k1"))
}
