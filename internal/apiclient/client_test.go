package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/ReinsDesk/internal/client/storage"
	"github.com/atinyakov/ReinsDesk/internal/models"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// newTestClient returns a client whose transport is rt and a recorder of
// emitted events.
func newTestClient(t *testing.T, rt roundTripperFunc, token string) (*Client, *storage.MemoryStorage, *[]Event) {
	t.Helper()
	store := storage.NewMemoryStorage()
	if token != "" {
		require.NoError(t, store.Set(context.Background(), storage.KeyToken, token))
		require.NoError(t, store.Set(context.Background(), storage.KeyUser, `{"_id":"u1"}`))
	}
	c := New("http://backend.test/api", store, WithHTTPClient(&http.Client{Transport: rt}))
	events := &[]Event{}
	c.Subscribe(func(ev Event) { *events = append(*events, ev) })
	return c, store, events
}

func TestBearerHeader(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"with token", "abc", "Bearer abc"},
		{"without token", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			var reqID string
			c, _, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				got = r.Header.Get("Authorization")
				reqID = r.Header.Get("X-Request-ID")
				return jsonResponse(http.StatusOK, `{}`), nil
			}, tt.token)

			require.NoError(t, c.Do(context.Background(), http.MethodGet, "/ping", nil, nil, nil))
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reqID)
		})
	}
}

func TestUnauthorized_ClearsAndEmitsOnce(t *testing.T) {
	c, store, events := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"message":"token expired"}`), nil
	}, "stale")

	_, err := c.ListProperties(context.Background(), 0, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrAuthRequired)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.Len(t, *events, 1)
	assert.Equal(t, EventSessionExpired, (*events)[0].Kind)
	assert.Same(t, apiErr, (*events)[0].Err)

	_, ok, _ := store.Get(context.Background(), storage.KeyToken)
	assert.False(t, ok, "token must be cleared")
	_, ok, _ = store.Get(context.Background(), storage.KeyUser)
	assert.False(t, ok, "user must be cleared")
}

func TestEventPrecedesReturn(t *testing.T) {
	c, _, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"error":"boom"}`), nil
	}, "tok")

	var seen atomic.Bool
	c.Subscribe(func(ev Event) {
		ev.Err.MarkNotified()
		seen.Store(true)
	})

	err := c.DeleteProperty(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, seen.Load())
	assert.True(t, Notified(err))
}

func TestFailureMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		sentinel error
	}{
		{"message field", http.StatusNotFound, `{"message":"Property not found"}`, "Property not found", ErrNotFound},
		{"error field", http.StatusBadRequest, `{"error":"bad offset"}`, "bad offset", ErrValidation},
		{"no body", http.StatusBadGateway, ``, "request failed with status code 502", nil},
		{"plain text body", http.StatusUnprocessableEntity, `nope`, "request failed with status code 422", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store, events := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			}, "tok")

			_, err := c.GetProperty(context.Background(), "p1")
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.Status)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.NotErrorIs(t, err, ErrUnauthorized)

			require.Len(t, *events, 1)
			assert.Equal(t, EventRequestFailed, (*events)[0].Kind)

			_, ok, _ := store.Get(context.Background(), storage.KeyToken)
			assert.True(t, ok, "non-401 failures keep credentials")
		})
	}
}

func TestNetworkError(t *testing.T) {
	c, store, events := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}, "tok")

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "connection refused")
	require.Len(t, *events, 1)
	assert.Equal(t, EventRequestFailed, (*events)[0].Kind)

	_, ok, _ := store.Get(context.Background(), storage.KeyToken)
	assert.True(t, ok, "transport errors keep credentials")
}

func TestAuthRequired_NoNetwork(t *testing.T) {
	var calls atomic.Int32
	c, _, events := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(http.StatusOK, `[]`), nil
	}, "")

	_, err := c.ListProperties(context.Background(), 0, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Zero(t, calls.Load())
	assert.Empty(t, *events)
}

func TestListProperties_Shapes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantIDs     []string
		wantTotal   int
		wantHasMore *bool
	}{
		{
			name:        "paginated",
			body:        `{"properties":[{"_id":"a"},{"_id":"b"}],"total":5,"count":2,"offset":0,"limit":2,"hasMore":true}`,
			wantIDs:     []string{"a", "b"},
			wantTotal:   5,
			wantHasMore: ptr(true),
		},
		{
			name:      "paginated without flag",
			body:      `{"properties":[{"_id":"a"}],"total":3}`,
			wantIDs:   []string{"a"},
			wantTotal: 3,
		},
		{
			name:        "bare array",
			body:        `[{"_id":"a"},{"_id":"b"},{"_id":"c"}]`,
			wantIDs:     []string{"a", "b", "c"},
			wantTotal:   3,
			wantHasMore: ptr(false),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var query string
			c, _, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				query = r.URL.RawQuery
				return jsonResponse(http.StatusOK, tt.body), nil
			}, "tok")

			page, err := c.ListProperties(context.Background(), 0, 20)
			require.NoError(t, err)
			assert.Equal(t, "limit=20&offset=0", query)

			ids := make([]string, 0, len(page.Properties))
			for _, p := range page.Properties {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, len(tt.wantIDs), page.Count)
			assert.Equal(t, tt.wantHasMore, page.HasMore)
		})
	}
}

func TestListProperties_RejectsNestedSchema(t *testing.T) {
	c, _, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"properties":[{"_id":"a","rent":{"monthlyRent":80000}}],"total":1}`), nil
	}, "tok")

	_, err := c.ListProperties(context.Background(), 0, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestGetProperty_Shapes(t *testing.T) {
	for _, body := range []string{
		`{"property":{"_id":"p1","buildingName":"Sakura"}}`,
		`{"_id":"p1","buildingName":"Sakura"}`,
	} {
		c, _, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
			assert.Equal(t, "/api/properties/p1", r.URL.Path)
			return jsonResponse(http.StatusOK, body), nil
		}, "tok")

		p, err := c.GetProperty(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "Sakura", p.BuildingName)
	}
}

func TestMe_Shapes(t *testing.T) {
	for _, body := range []string{
		`{"_id":"u1","username":"agent1"}`,
		`{"user":{"_id":"u1","username":"agent1"}}`,
	} {
		c, _, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, body), nil
		}, "tok")
		u, err := c.Me(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "agent1", u.Username)
	}
}

func TestLogin_SendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var creds models.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Username != "agent1" || creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid username or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"t-1","user":{"_id":"u1","username":"agent1"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", storage.NewMemoryStorage())
	resp, err := c.Login(context.Background(), models.Credentials{Username: "agent1", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", resp.Token)
	assert.Equal(t, "agent1", resp.User.Username)

	_, err = c.Login(context.Background(), models.Credentials{Username: "agent1", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateProperty_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "100200300", r.FormValue("reins_id"))
		f, hdr, err := r.FormFile("html")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "listing.html", hdr.Filename)
		assert.Equal(t, "<html></html>", string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"new","reins_id":"100200300"}`))
	}))
	defer srv.Close()

	store := storage.NewMemoryStorage()
	require.NoError(t, store.Set(context.Background(), storage.KeyToken, "tok"))
	c := New(srv.URL+"/api", store)

	p, err := c.CreateProperty(context.Background(), Upload{
		Fields: map[string]string{"reins_id": "100200300"},
		Files:  []UploadFile{{Field: "html", Filename: "listing.html", Content: strings.NewReader("<html></html>")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", p.ID)
}

func TestFileURL_FromBase(t *testing.T) {
	c := New("http://localhost:3000/api", storage.NewMemoryStorage())
	assert.Equal(t, "http://localhost:3000/files/a.jpg", c.FileURL("a.jpg"))
	assert.Equal(t, "https://s3.example.com/a.jpg", c.FileURL("https://s3.example.com/a.jpg"))

	c = New("http://localhost:3000/api", storage.NewMemoryStorage(), WithFileBaseURL("https://cdn.example.com/"))
	assert.Equal(t, "https://cdn.example.com/files/a.jpg", c.FileURL("/files/a.jpg"))
}

func TestUnsubscribe(t *testing.T) {
	c, _, events := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{}`), nil
	}, "tok")

	var extra int
	unsubscribe := c.Subscribe(func(Event) { extra++ })
	unsubscribe()

	_ = c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.Len(t, *events, 1)
	assert.Zero(t, extra)
}

func ptr[T any](v T) *T { return &v }
