package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"taskboard/internal/domain"
)

type memTokens struct {
	mu   sync.Mutex
	toks map[string]domain.CalendarToken
}

func (m *memTokens) SaveCalendarToken(_ context.Context, tok domain.CalendarToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.toks == nil {
		m.toks = map[string]domain.CalendarToken{}
	}
	m.toks[tok.OwnerID] = tok
	return nil
}

func (m *memTokens) GetCalendarToken(_ context.Context, owner string) (domain.CalendarToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.toks[owner]
	if !ok {
		return tok, domain.ErrNotFound
	}
	return tok, nil
}

func (m *memTokens) DeleteCalendarToken(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.toks, owner)
	return nil
}

type fakeProvider struct {
	events  map[string]Event
	nextID  int
	failAll error
	listed  [2]time.Time
}

func newFakeProvider() *fakeProvider { return &fakeProvider{events: map[string]Event{}} }

func (f *fakeProvider) Insert(_ context.Context, _ oauth2.TokenSource, ev Event) (Event, error) {
	if f.failAll != nil {
		return Event{}, f.failAll
	}
	f.nextID++
	ev.ID = fmt.Sprintf("ev%d", f.nextID)
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeProvider) Update(_ context.Context, _ oauth2.TokenSource, ev Event) (Event, error) {
	if f.failAll != nil {
		return Event{}, f.failAll
	}
	if _, ok := f.events[ev.ID]; !ok {
		return Event{}, domain.ErrNotFound
	}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeProvider) Delete(_ context.Context, _ oauth2.TokenSource, id string) error {
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeProvider) List(_ context.Context, _ oauth2.TokenSource, from, to time.Time, max int) ([]Event, error) {
	f.listed = [2]time.Time{from, to}
	out := []Event{}
	for _, ev := range f.events {
		out = append(out, ev)
	}
	return out, nil
}

func newService(t *testing.T, tokenURL string) (*Service, *fakeProvider, *memTokens) {
	t.Helper()
	prov := newFakeProvider()
	toks := &memTokens{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &Service{
		OAuth: &oauth2.Config{
			ClientID: "cid", ClientSecret: "secret", RedirectURL: "http://localhost/cb",
			Scopes:   []string{ScopeEvents, ScopeReadOnly},
			Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example/auth", TokenURL: tokenURL},
		},
		Provider: prov,
		States:   NewMemoryStateStore(),
		Tokens:   toks,
		Timeout:  time.Second,
		Now:      func() time.Time { return now },
	}
	return svc, prov, toks
}

func connect(t *testing.T, toks *memTokens, owner string) {
	t.Helper()
	require.NoError(t, toks.SaveCalendarToken(context.Background(), domain.CalendarToken{
		OwnerID: owner, AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer",
		Expiry: time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}))
}

func TestAuthFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"a1","refresh_token":"r1","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()
	svc, _, toks := newService(t, srv.URL)
	ctx := context.Background()

	raw, err := svc.AuthURL(ctx, "u1")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	state := q.Get("state")
	require.Len(t, state, 32)

	owner, err := svc.Callback(ctx, state, "the-code")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)
	tok, err := toks.GetCalendarToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a1", tok.AccessToken)
	assert.Equal(t, "r1", tok.RefreshToken)

	_, err = svc.Callback(ctx, state, "the-code")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "state is single use")

	connected, err := svc.Connected(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, connected)
	require.NoError(t, svc.Disconnect(ctx, "u1"))
	connected, err = svc.Connected(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestPushTask(t *testing.T) {
	svc, prov, toks := newService(t, "")
	ctx := context.Background()
	task := domain.Task{ID: "t1", OwnerID: "u1", Title: "Dentist"}

	_, err := svc.PushTask(ctx, task)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "due_date")

	due := "2024-05-03T09:00:00Z"
	task.DueDate = &due
	_, err = svc.PushTask(ctx, task)
	assert.ErrorIs(t, err, domain.ErrCalendarNotConnected)

	connect(t, toks, "u1")
	id, err := svc.PushTask(ctx, task)
	require.NoError(t, err)
	ev := prov.events[id]
	assert.Equal(t, "2024-05-03T09:00:00Z", ev.Start)
	assert.Equal(t, "2024-05-03T10:00:00Z", ev.End)

	task.CalendarEventID = &id
	task.Title = "Dentist (moved)"
	again, err := svc.PushTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, "Dentist (moved)", prov.events[id].Summary)

	delete(prov.events, id)
	recreated, err := svc.PushTask(ctx, task)
	require.NoError(t, err)
	assert.NotEqual(t, id, recreated)

	prov.failAll = errors.New("quota")
	_, err = svc.PushTask(ctx, task)
	var xerr *domain.ExternalServiceError
	assert.ErrorAs(t, err, &xerr)
}

func TestRemoveAndList(t *testing.T) {
	svc, prov, toks := newService(t, "")
	ctx := context.Background()
	connect(t, toks, "u1")
	prov.events["gone"] = Event{ID: "gone"}
	require.NoError(t, svc.RemoveEvent(ctx, "u1", "gone"))
	require.NoError(t, svc.RemoveEvent(ctx, "u1", "gone"))

	_, err := svc.Events(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 24, 12, 0, 0, 0, time.UTC), prov.listed[0])
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), prov.listed[1])

	_, err = svc.Events(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrCalendarNotConnected)
}

func TestMemoryStateExpiry(t *testing.T) {
	now := time.Now()
	store := NewMemoryStateStore()
	store.Now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "s", "u1", time.Minute))
	now = now.Add(2 * time.Minute)
	_, err := store.Take(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
