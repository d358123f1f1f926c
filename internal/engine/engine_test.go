package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"taskboard/internal/ai"
	"taskboard/internal/calendar"
	"taskboard/internal/canvas"
	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
	"taskboard/internal/repo"
)

const owner = "user-1"

var fixedNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	Engine    engine.Engine
	Ctx       context.Context
	Published *recordingPublisher
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return fixedNow }
	pub := &recordingPublisher{}
	eng.Publisher = pub
	return testEnv{Engine: eng, Ctx: context.Background(), Published: pub}
}

func ptr[T any](v T) *T { return &v }

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "   "})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")

	tasks, err := env.Engine.ListTasks(env.Ctx, repo.TaskFilters{OwnerID: owner})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, env.Published.types())
}

func TestUpdateTaskEmptyTitleLeavesStoredTask(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Write docs"})
	require.NoError(t, err)

	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{OwnerID: owner, ID: task.ID, Title: ptr(""), Status: ptr(domain.StatusCompleted)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	stored, err := env.Engine.GetTask(env.Ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write docs", stored.Title)
	assert.Equal(t, domain.StatusBacklog, stored.Status)
}

func TestStatusAndPriorityStayInEnums(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "x", Status: "doing"})
	require.Error(t, err)
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "x", Priority: "urgent"})
	require.Error(t, err)

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Plan sprint"})
	require.NoError(t, err)
	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{OwnerID: owner, ID: task.ID, Priority: ptr("critical")})
	require.Error(t, err)
	_, err = env.Engine.MoveTask(env.Ctx, owner, task.ID, "archived")
	require.Error(t, err)

	stored, err := env.Engine.GetTask(env.Ctx, owner, task.ID)
	require.NoError(t, err)
	assert.True(t, domain.ValidStatus(stored.Status))
	assert.True(t, domain.ValidPriority(stored.Priority))
}

func TestCreateTaskInfersPriority(t *testing.T) {
	env := newTestEnv(t)
	urgent, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Submit report ASAP"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, urgent.Priority)

	explicit, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Submit report ASAP", Priority: domain.PriorityLow})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityLow, explicit.Priority)
}

func TestNaturalLanguageTaskIsAIGenerated(t *testing.T) {
	env := newTestEnv(t)
	input := "Buy groceries tomorrow, urgent"
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, NaturalLanguage: &input})
	require.NoError(t, err)
	assert.True(t, task.AIGenerated)
	assert.Equal(t, input, task.Title)
	assert.Equal(t, domain.PriorityHigh, task.Priority, "urgent keyword")

	env.Engine.Generator = ai.GeneratorFunc(func(context.Context, string) (string, error) {
		return `{"title":"Buy groceries","priority":"low","tags":["Home"],"dueDate":"2024-01-02T18:00:00Z"}`, nil
	})
	task, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, NaturalLanguage: &input})
	require.NoError(t, err)
	assert.Equal(t, "Buy groceries", task.Title)
	assert.Equal(t, domain.PriorityLow, task.Priority)
	assert.Equal(t, []string{"Home"}, task.Tags)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2024-01-02T18:00:00Z", *task.DueDate)
}

func TestDeriveDraftKeepsFallbackPriority(t *testing.T) {
	env := newTestEnv(t)
	preview, err := env.Engine.DeriveDraft(env.Ctx, "Buy groceries tomorrow, urgent")
	require.NoError(t, err)
	assert.Equal(t, "Buy groceries tomorrow, urgent", preview.Draft.Title)
	assert.Equal(t, domain.PriorityMedium, preview.Draft.Priority)
	assert.Empty(t, preview.Draft.Tags)
	assert.Equal(t, domain.PriorityHigh, preview.Priority)

	_, err = env.Engine.DeriveDraft(env.Ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateTaskLeavesCallerTagsAlone(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Generator = ai.GeneratorFunc(func(context.Context, string) (string, error) {
		return `{"title":"Call mom","priority":"low","tags":["family"]}`, nil
	})
	backing := make([]string, 4)
	backing[0] = "phone"
	input := "call mom"
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, NaturalLanguage: &input, Tags: backing[:1]})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"phone", "family"}, task.Tags)
	assert.Equal(t, []string{"phone", "", "", ""}, backing)
}

func TestPartialUpdateOnlyTouchesPresentFields(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		OwnerID: owner, Title: "Refactor", Description: "auth module", Priority: domain.PriorityLow,
		DueDate: "2024-02-01T10:00:00Z", Tags: []string{"code"},
	})
	require.NoError(t, err)

	res, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{OwnerID: owner, ID: task.ID, Description: ptr("auth and session")})
	require.NoError(t, err)
	got := res.Task
	assert.Equal(t, "Refactor", got.Title)
	assert.Equal(t, "auth and session", got.Description)
	assert.Equal(t, domain.PriorityLow, got.Priority)
	assert.Equal(t, []string{"code"}, got.Tags)
	require.NotNil(t, got.DueDate)

	res, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{OwnerID: owner, ID: task.ID, DueDate: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, res.Task.DueDate)
	assert.Empty(t, res.CalendarError)
}

func TestToggleComplete(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		from, want string
	}{
		{domain.StatusBacklog, domain.StatusCompleted},
		{domain.StatusCompleted, domain.StatusBacklog},
		{domain.StatusInProgress, domain.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.from, func(t *testing.T) {
			task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "toggle " + tc.from, Status: tc.from})
			require.NoError(t, err)
			got, err := env.Engine.ToggleComplete(env.Ctx, owner, task.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestMoveToSameStatusEmitsNothing(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Stay"})
	require.NoError(t, err)
	_, err = env.Engine.MoveTask(env.Ctx, owner, task.ID, domain.StatusBacklog)
	require.NoError(t, err)
	_, err = env.Engine.MoveTask(env.Ctx, owner, task.ID, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, []string{"task.created", "task.status_changed"}, env.Published.types())
}

func TestDeleteTaskCascadesDrawings(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Sketch"})
	require.NoError(t, err)
	var linked []domain.Drawing
	for i := 0; i < 3; i++ {
		d, err := env.Engine.CreateDrawing(env.Ctx, engine.DrawingCreateOptions{OwnerID: owner, Name: fmt.Sprintf("d%d", i), TaskID: task.ID})
		require.NoError(t, err)
		linked = append(linked, d)
	}
	free, err := env.Engine.CreateDrawing(env.Ctx, engine.DrawingCreateOptions{OwnerID: owner, Name: "free"})
	require.NoError(t, err)

	require.NoError(t, env.Engine.DeleteTask(env.Ctx, owner, task.ID))

	_, err = env.Engine.GetTask(env.Ctx, owner, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	remaining, err := env.Engine.ListDrawings(env.Ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	for _, d := range linked {
		_, _, err := env.Engine.Blobs.Get(env.Ctx, d.PreviewKey)
		assert.ErrorIs(t, err, domain.ErrNotFound, "preview of %s", d.ID)
	}
	_, err = env.Engine.GetDrawing(env.Ctx, owner, free.ID)
	require.NoError(t, err)

	err = env.Engine.DeleteTask(env.Ctx, owner, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	all, err := env.Engine.ListDrawings(env.Ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTasksAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Mine"})
	require.NoError(t, err)
	_, err = env.Engine.GetTask(env.Ctx, "someone-else", task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = env.Engine.DeleteTask(env.Ctx, "someone-else", task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBoardGroupsAndFlagsOverdue(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "late", DueDate: "2023-12-31T09:00:00Z"})
	require.NoError(t, err)
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "done late", Status: domain.StatusCompleted, DueDate: "2023-12-30T09:00:00Z"})
	require.NoError(t, err)
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "working", Status: domain.StatusInProgress})
	require.NoError(t, err)

	board, err := env.Engine.Board(env.Ctx, owner)
	require.NoError(t, err)
	assert.Len(t, board.Backlog, 1)
	assert.Len(t, board.InProgress, 1)
	assert.Len(t, board.Completed, 1)
	require.Len(t, board.Overdue, 1)
	assert.Equal(t, "late", board.Overdue[0].Title)
}

func TestDrawingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateDrawing(env.Ctx, engine.DrawingCreateOptions{OwnerID: owner, Name: "x", TaskID: "missing"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "task_id")

	_, err = env.Engine.CreateDrawing(env.Ctx, engine.DrawingCreateOptions{OwnerID: owner, Name: "x", Data: `{"elements":[{"type":"blob"}]}`})
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.CreateDrawing(env.Ctx, engine.DrawingCreateOptions{OwnerID: owner, Name: "x",
		Data: `{"elements":[{"id":"a","type":"rectangle","width":5,"height":5},{"id":"a","type":"circle","x":90,"y":90,"radius":3}]}`})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "data")

	data, err := canvas.Encode([]canvas.Shape{
		canvas.Rectangle{ID: "r1", X: 10, Y: 10, Width: 100, Height: 50, Style: canvas.Style{StrokeColor: "#000000", StrokeWidth: 2}},
		canvas.Line{ID: "l1", X: 0, Y: 0, EndX: 50, EndY: 50, Style: canvas.Style{StrokeColor: "#ff0000", StrokeWidth: 1}},
	})
	require.NoError(t, err)
	d, err := env.Engine.CreateDrawing(env.Ctx, engine.DrawingCreateOptions{OwnerID: owner, Name: "Plan", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "drawings/"+d.ID+".png", d.PreviewKey)

	png, err := env.Engine.DrawingPreview(env.Ctx, owner, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	require.NoError(t, env.Engine.Blobs.Delete(env.Ctx, d.PreviewKey))
	again, err := env.Engine.DrawingPreview(env.Ctx, owner, d.ID)
	require.NoError(t, err)
	assert.Equal(t, png, again, "regenerated preview is identical")

	s, ok, err := env.Engine.SelectShape(env.Ctx, owner, d.ID, canvas.Point{X: 20, Y: 20})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r1", s.ShapeID())

	_, ok, err = env.Engine.EraseAt(env.Ctx, owner, d.ID, canvas.Point{X: 500, Y: 500})
	require.NoError(t, err)
	assert.False(t, ok)

	updated, ok, err := env.Engine.EraseAt(env.Ctx, owner, d.ID, canvas.Point{X: 20, Y: 20})
	require.NoError(t, err)
	require.True(t, ok)
	shapes, err := canvas.Decode(updated.Data)
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, "l1", shapes[0].ShapeID())

	renamed, err := env.Engine.UpdateDrawing(env.Ctx, engine.DrawingUpdateOptions{OwnerID: owner, ID: d.ID, Name: ptr("Plan v2")})
	require.NoError(t, err)
	assert.Equal(t, "Plan v2", renamed.Name)
	assert.Equal(t, updated.Data, renamed.Data)

	require.NoError(t, env.Engine.DeleteDrawing(env.Ctx, owner, d.ID))
	_, _, err = env.Engine.Blobs.Get(env.Ctx, d.PreviewKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

func TestTranscribe(t *testing.T) {
	env := newTestEnv(t)
	audio := make([]byte, 32000)

	_, err := env.Engine.Transcribe(env.Ctx, engine.TranscribeOptions{OwnerID: owner, Audio: audio, ContentType: "audio/webm"})
	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)

	env.Engine.Transcriber = fakeTranscriber{err: errors.New("backend down")}
	_, err = env.Engine.Transcribe(env.Ctx, engine.TranscribeOptions{OwnerID: owner, Audio: audio, ContentType: "audio/webm"})
	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)

	env.Engine.Transcriber = fakeTranscriber{text: "Call the plumber tomorrow"}
	_, err = env.Engine.Transcribe(env.Ctx, engine.TranscribeOptions{OwnerID: owner, Audio: audio, ContentType: "video/mp4"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	res, err := env.Engine.Transcribe(env.Ctx, engine.TranscribeOptions{OwnerID: owner, Audio: audio, ContentType: "audio/webm;codecs=opus", CreateTask: true})
	require.NoError(t, err)
	assert.Equal(t, "Call the plumber tomorrow", res.Transcript)
	require.NotNil(t, res.Task)
	assert.True(t, res.Task.AIGenerated)
	require.NotNil(t, res.Recording)
	assert.Equal(t, 2.0, res.Recording.DurationSeconds)
	assert.Equal(t, "en", res.Recording.Language)
	assert.Equal(t, "webm", res.Recording.Format)
	require.NotNil(t, res.Recording.TaskID)
	assert.Equal(t, res.Task.ID, *res.Recording.TaskID)
	stored, _, err := env.Engine.Blobs.Get(env.Ctx, res.Recording.AudioKey)
	require.NoError(t, err)
	assert.Len(t, stored, len(audio))

	page, err := env.Engine.ListRecordings(env.Ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Recordings, 1)
}

func TestSummaryAndSuggestionsWithoutGenerator(t *testing.T) {
	env := newTestEnv(t)
	sum, err := env.Engine.Summary(env.Ctx, owner, ai.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TaskCount)
	assert.Contains(t, sum.Summary, "No tasks found")

	_, err = env.Engine.Summary(env.Ctx, owner, "monthly")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "One"})
	require.NoError(t, err)
	suggestions, err := env.Engine.Suggestions(env.Ctx, owner)
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)

	health := env.Engine.AIHealth(env.Ctx)
	assert.False(t, health.Success)
}

func TestAPIKeys(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.Engine.CreateAPIKey(env.Ctx, owner, "laptop")
	require.NoError(t, err)
	assert.NotEmpty(t, created.Key)
	assert.Equal(t, repo.HashAPIKey(created.Key), created.KeyHash)

	found, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(created.Key))
	require.NoError(t, err)
	assert.Equal(t, owner, found.OwnerID)

	keys, err := env.Engine.ListAPIKeys(env.Ctx, owner)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	require.NoError(t, env.Engine.DeleteAPIKey(env.Ctx, owner, created.ID))
	assert.ErrorIs(t, env.Engine.DeleteAPIKey(env.Ctx, owner, created.ID), domain.ErrNotFound)
}

type fakeCalendar struct {
	mu     sync.Mutex
	events map[string]calendar.Event
	n      int
	fail   error
}

func (f *fakeCalendar) Insert(_ context.Context, _ oauth2.TokenSource, ev calendar.Event) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return ev, f.fail
	}
	f.n++
	ev.ID = fmt.Sprintf("ev-%d", f.n)
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeCalendar) Update(_ context.Context, _ oauth2.TokenSource, ev calendar.Event) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return ev, f.fail
	}
	if _, ok := f.events[ev.ID]; !ok {
		return ev, domain.ErrNotFound
	}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeCalendar) Delete(_ context.Context, _ oauth2.TokenSource, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	delete(f.events, id)
	return nil
}

func (f *fakeCalendar) List(context.Context, oauth2.TokenSource, time.Time, time.Time, int) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []calendar.Event{}
	for _, ev := range f.events {
		out = append(out, ev)
	}
	return out, nil
}

func withCalendar(t *testing.T, env *testEnv) *fakeCalendar {
	t.Helper()
	prov := &fakeCalendar{events: map[string]calendar.Event{}}
	env.Engine.Calendar = &calendar.Service{
		OAuth:    &oauth2.Config{ClientID: "cid", Endpoint: oauth2.Endpoint{TokenURL: "http://127.0.0.1:1/token"}},
		Provider: prov,
		States:   calendar.NewMemoryStateStore(),
		Tokens:   env.Engine.Repo,
		Timeout:  time.Second,
		Now:      func() time.Time { return fixedNow },
	}
	require.NoError(t, env.Engine.Repo.SaveCalendarToken(env.Ctx, domain.CalendarToken{
		OwnerID: owner, AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer",
		Expiry: time.Now().Add(time.Hour).UTC().Format(time.RFC3339), UpdatedAt: fixedNow.Format(time.RFC3339),
	}))
	return prov
}

func TestLinkCalendarRequiresDueDate(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "No date"})
	require.NoError(t, err)

	_, err = env.Engine.LinkCalendar(env.Ctx, owner, task.ID)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "due_date")

	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{OwnerID: owner, ID: task.ID, DueDate: ptr("2024-01-05T15:00:00Z")})
	require.NoError(t, err)
	_, err = env.Engine.LinkCalendar(env.Ctx, owner, task.ID)
	assert.ErrorIs(t, err, domain.ErrCalendarNotConnected)
}

func TestCalendarSyncOnUpdate(t *testing.T) {
	env := newTestEnv(t)
	prov := withCalendar(t, &env)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Dentist", DueDate: "2024-01-05T15:00:00Z"})
	require.NoError(t, err)

	linked, err := env.Engine.LinkCalendar(env.Ctx, owner, task.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.CalendarEventID)
	eventID := *linked.CalendarEventID
	assert.Equal(t, "2024-01-05T16:00:00Z", prov.events[eventID].End)

	res, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{OwnerID: owner, ID: task.ID, Title: ptr("Dentist checkup")})
	require.NoError(t, err)
	assert.Empty(t, res.CalendarError)
	assert.Equal(t, "Dentist checkup", prov.events[eventID].Summary)

	prov.fail = errors.New("quota exceeded")
	res, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{OwnerID: owner, ID: task.ID, Title: ptr("Dentist (moved)")})
	require.NoError(t, err, "calendar failure does not fail the update")
	assert.NotEmpty(t, res.CalendarError)
	assert.Equal(t, "Dentist (moved)", res.Task.Title)
	prov.fail = nil

	unlinked, err := env.Engine.UnlinkCalendar(env.Ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Nil(t, unlinked.CalendarEventID)
	assert.NotContains(t, prov.events, eventID)
	assert.Contains(t, env.Published.types(), "calendar.unlinked")
}

func TestListEventsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{OwnerID: owner, Title: "Evented"})
	require.NoError(t, err)
	_, err = env.Engine.ToggleComplete(env.Ctx, owner, task.ID)
	require.NoError(t, err)

	evts, err := env.Engine.ListEvents(env.Ctx, repo.EventFilters{OwnerID: owner, Limit: 10})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "task.status_changed", evts[0].Type)
	assert.Equal(t, "task.created", evts[1].Type)
}
