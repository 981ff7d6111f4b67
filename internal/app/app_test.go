package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/ReinsDesk/internal/apiclient"
	"github.com/atinyakov/ReinsDesk/internal/client/session"
	"github.com/atinyakov/ReinsDesk/internal/client/storage"
	"github.com/atinyakov/ReinsDesk/internal/config"
	"github.com/atinyakov/ReinsDesk/internal/models"
	serverhttp "github.com/atinyakov/ReinsDesk/internal/server/handler/http"
	"github.com/atinyakov/ReinsDesk/internal/service"
)

type fakeEvents struct {
	fn func(apiclient.Event)
}

func (f *fakeEvents) Subscribe(fn func(apiclient.Event)) func() {
	f.fn = fn
	return func() { f.fn = nil }
}

type sink struct {
	mu   sync.Mutex
	msgs []Notification
}

func (s *sink) notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, n)
}

func (s *sink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	for i, n := range s.msgs {
		out[i] = n.Message
	}
	return out
}

func errorWithBody(status int, body string) *apiclient.Error {
	return &apiclient.Error{Message: "x", Status: status, Body: []byte(body)}
}

func TestCoordinator_SessionExpired(t *testing.T) {
	tests := []struct {
		name       string
		start      Screen
		body       string
		wantMsg    string
		wantScreen Screen
	}{
		{"login screen uses server message", ScreenLogin, `{"message":"Wrong password"}`, "Wrong password", ScreenLogin},
		{"login screen fallback", ScreenLogin, ``, MsgInvalidCredentials, ScreenLogin},
		{"list screen redirects", ScreenProperties, `{"message":"jwt expired"}`, MsgSessionExpired, ScreenLogin},
		{"detail screen redirects", ScreenDetail, ``, MsgSessionExpired, ScreenLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &fakeEvents{}
			out := &sink{}
			c := NewCoordinator(events, tt.start, out.notify, nil)

			var navigated []Screen
			c.OnNavigate(func(s Screen) { navigated = append(navigated, s) })

			apiErr := errorWithBody(http.StatusUnauthorized, tt.body)
			events.fn(apiclient.Event{Kind: apiclient.EventSessionExpired, Err: apiErr})

			assert.Equal(t, []string{tt.wantMsg}, out.messages())
			assert.Equal(t, tt.wantScreen, c.Screen())
			assert.True(t, apiclient.Notified(apiErr))
			if tt.start == ScreenLogin {
				assert.Empty(t, navigated)
			} else {
				assert.Equal(t, []Screen{ScreenLogin}, navigated)
			}
		})
	}
}

func TestCoordinator_RequestFailedAndReport(t *testing.T) {
	events := &fakeEvents{}
	out := &sink{}
	c := NewCoordinator(events, ScreenProperties, out.notify, nil)

	apiErr := &apiclient.Error{Message: "Property not found", Status: http.StatusNotFound}
	events.fn(apiclient.Event{Kind: apiclient.EventRequestFailed, Err: apiErr})

	c.Report(apiErr)
	c.Report(nil)
	c.Report(errors.New("local failure"))
	c.Info("deleted %s", "p1")

	assert.Equal(t, []string{"Property not found", "local failure", "deleted p1"}, out.messages())
	assert.Equal(t, ScreenProperties, c.Screen())

	c.Close()
	assert.Nil(t, events.fn)
}

func TestCoordinator_NavigateDeduplicates(t *testing.T) {
	c := NewCoordinator(&fakeEvents{}, ScreenLogin, nil, nil)
	calls := 0
	c.OnNavigate(func(Screen) { calls++ })

	c.Navigate(ScreenLogin, "")
	c.Navigate(ScreenDetail, "p1")
	c.Navigate(ScreenDetail, "p1")
	c.Navigate(ScreenDetail, "p2")

	assert.Equal(t, 2, calls)
	assert.Equal(t, "p2", c.DetailID())
	assert.Equal(t, "detail", c.Screen().String())
}

// recorder runs the stub backend and remembers each request's path and
// Authorization header.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.entries = append(r.entries, req.Method+" "+req.URL.Path+" "+req.Header.Get("Authorization"))
		r.mu.Unlock()
		h.ServeHTTP(w, req)
	})
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func newTestApp(t *testing.T, store storage.Storage) (*App, *recorder, *sink) {
	t.Helper()
	backend, err := serverhttp.NewBackend(context.Background(), serverhttp.BackendOptions{
		JWTSecret: "test",
		TokenTTL:  time.Hour,
		Seed:      25,
	})
	require.NoError(t, err)

	rec := &recorder{}
	srv := httptest.NewServer(rec.wrap(backend.Handler))
	t.Cleanup(srv.Close)

	out := &sink{}
	opts := &config.Options{Listing: config.Listing{PageSize: 10}}
	api := apiclient.New(srv.URL+"/api", store)
	a := Compose(context.Background(), opts, store, api, nil, out.notify)
	t.Cleanup(func() { _ = a.Close() })
	return a, rec, out
}

func TestApp_LoginThenListSendsBearer(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	a, rec, out := newTestApp(t, store)
	require.Equal(t, ScreenLogin, a.Nav.Screen())

	require.NoError(t, a.Login(ctx, service.DemoUsername, service.DemoPassword))
	assert.Equal(t, ScreenProperties, a.Nav.Screen())
	assert.Equal(t, session.Authenticated, a.Session.State())

	token, ok, err := store.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Listing.FetchProperties(ctx, true))
	snap := a.Listing.Snapshot()
	assert.Len(t, snap.Items, 10)
	assert.Equal(t, 25, snap.Total)
	assert.True(t, snap.HasMore)

	entries := rec.all()
	require.Len(t, entries, 2)
	assert.Equal(t, "GET /api/properties Bearer "+token, entries[1])
	assert.Empty(t, out.messages())
}

func TestApp_LogoutThenListFailsFast(t *testing.T) {
	ctx := context.Background()
	a, rec, out := newTestApp(t, storage.NewMemoryStorage())
	require.NoError(t, a.Login(ctx, service.DemoUsername, service.DemoPassword))

	require.NoError(t, a.Logout(ctx))
	assert.Equal(t, ScreenLogin, a.Nav.Screen())
	before := len(rec.all())

	err := a.Listing.FetchProperties(ctx, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrAuthRequired)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Len(t, rec.all(), before, "no request may reach the backend")
	assert.Empty(t, out.messages())
}

func TestApp_WrongPasswordStaysOnLogin(t *testing.T) {
	ctx := context.Background()
	a, _, out := newTestApp(t, storage.NewMemoryStorage())

	err := a.Login(ctx, service.DemoUsername, "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Equal(t, ScreenLogin, a.Nav.Screen())
	assert.Equal(t, session.Anonymous, a.Session.State())
	assert.Equal(t, []string{"Invalid credentials"}, out.messages())

	a.Nav.Report(err)
	assert.Len(t, out.messages(), 1, "already shown errors are not repeated")
}

func TestApp_ExpiredSessionRedirectsToLogin(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.Set(ctx, storage.KeyToken, "revoked-opaque-token"))

	a, _, out := newTestApp(t, store)
	require.Equal(t, ScreenProperties, a.Nav.Screen())

	var states []session.State
	a.Session.Subscribe(func(s session.State, _ models.Session) { states = append(states, s) })

	err := a.Listing.FetchProperties(ctx, true)
	require.Error(t, err)
	assert.Equal(t, ScreenLogin, a.Nav.Screen())
	assert.Equal(t, []string{MsgSessionExpired}, out.messages())
	assert.Equal(t, session.Anonymous, a.Session.State())
	assert.Contains(t, states, session.Anonymous)

	_, ok, _ := store.Get(ctx, storage.KeyToken)
	assert.False(t, ok)
}

func TestApp_OpenAndDeleteProperty(t *testing.T) {
	ctx := context.Background()
	a, _, out := newTestApp(t, storage.NewMemoryStorage())
	require.NoError(t, a.Login(ctx, service.DemoUsername, service.DemoPassword))
	require.NoError(t, a.Listing.FetchProperties(ctx, true))

	first := a.Listing.Snapshot().Items[0]
	require.NoError(t, a.OpenProperty(ctx, first.ID))
	assert.Equal(t, ScreenDetail, a.Nav.Screen())
	cur, ok := a.Detail.Current()
	require.True(t, ok)
	assert.Equal(t, first.ID, cur.ID)

	require.NoError(t, a.DeleteCurrent(ctx))
	assert.Equal(t, ScreenProperties, a.Nav.Screen())
	_, found := a.Listing.Lookup(first.ID)
	assert.False(t, found)
	assert.Equal(t, 25, a.Listing.Snapshot().Total)

	err := a.OpenProperty(ctx, first.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
	msgs := out.messages()
	require.NotEmpty(t, msgs)
	assert.True(t, strings.Contains(msgs[len(msgs)-1], "not found"))
}
