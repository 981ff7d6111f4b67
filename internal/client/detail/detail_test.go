package detail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/ReinsDesk/internal/client/listing"
	"github.com/atinyakov/ReinsDesk/internal/models"
)

type mockAPI struct {
	GetFunc    func(ctx context.Context, id string) (models.Property, error)
	DeleteFunc func(ctx context.Context, id string) error
	ListFunc   func(ctx context.Context, offset, limit int) (models.PropertyPage, error)
}

func (m *mockAPI) GetProperty(ctx context.Context, id string) (models.Property, error) {
	return m.GetFunc(ctx, id)
}
func (m *mockAPI) DeleteProperty(ctx context.Context, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id)
}
func (m *mockAPI) ListProperties(ctx context.Context, offset, limit int) (models.PropertyPage, error) {
	return m.ListFunc(ctx, offset, limit)
}

func newListing(t *testing.T, api *mockAPI) *listing.Store {
	t.Helper()
	api.ListFunc = func(context.Context, int, int) (models.PropertyPage, error) {
		return models.PropertyPage{
			Properties: []models.Property{{ID: "p1", BuildingName: "Old"}, {ID: "p2"}},
			Total:      2,
		}, nil
	}
	l := listing.New(api)
	require.NoError(t, l.FetchProperties(context.Background(), true))
	return l
}

func TestFetchProperty_UpdatesListing(t *testing.T) {
	api := &mockAPI{GetFunc: func(_ context.Context, id string) (models.Property, error) {
		return models.Property{ID: id, BuildingName: "Fresh"}, nil
	}}
	l := newListing(t, api)
	d := New(api, l, nil)

	require.NoError(t, d.FetchProperty(context.Background(), "p1"))
	cur, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, "Fresh", cur.BuildingName)
	assert.False(t, d.Loading())

	cached, _ := l.Lookup("p1")
	assert.Equal(t, "Fresh", cached.BuildingName)
}

func TestFetchProperty_ShowsCachedWhileLoading(t *testing.T) {
	release := make(chan struct{})
	api := &mockAPI{GetFunc: func(_ context.Context, id string) (models.Property, error) {
		<-release
		return models.Property{ID: id, BuildingName: "Fresh"}, nil
	}}
	l := newListing(t, api)
	d := New(api, l, nil)

	seen := make(chan Snapshot, 4)
	d.Subscribe(func(s Snapshot) { seen <- s })

	done := make(chan error)
	go func() { done <- d.FetchProperty(context.Background(), "p1") }()

	first := <-seen
	assert.True(t, first.Loading)
	require.NotNil(t, first.Current)
	assert.Equal(t, "Old", first.Current.BuildingName)

	close(release)
	require.NoError(t, <-done)
}

func TestFetchProperty_SupersededResponseDropped(t *testing.T) {
	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	api := &mockAPI{GetFunc: func(_ context.Context, id string) (models.Property, error) {
		if id == "A" {
			close(startedA)
			<-releaseA
		}
		return models.Property{ID: id}, nil
	}}
	d := New(api, nil, nil)

	done := make(chan error)
	go func() { done <- d.FetchProperty(context.Background(), "A") }()
	<-startedA

	require.NoError(t, d.FetchProperty(context.Background(), "B"))
	close(releaseA)
	require.NoError(t, <-done)

	cur, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, "B", cur.ID, "late A must not overwrite B")
}

func TestFetchProperty_Error(t *testing.T) {
	wantErr := errors.New("not found")
	api := &mockAPI{GetFunc: func(context.Context, string) (models.Property, error) {
		return models.Property{}, wantErr
	}}
	d := New(api, nil, nil)

	assert.ErrorIs(t, d.FetchProperty(context.Background(), "x"), wantErr)
	assert.False(t, d.Loading())
	_, ok := d.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, d.Snapshot().Err, wantErr)
}

func TestDeleteProperty_RemovesFromListing(t *testing.T) {
	api := &mockAPI{GetFunc: func(_ context.Context, id string) (models.Property, error) {
		return models.Property{ID: id}, nil
	}}
	l := newListing(t, api)
	d := New(api, l, nil)
	require.NoError(t, d.FetchProperty(context.Background(), "p1"))
	total := l.Snapshot().Total

	require.NoError(t, d.DeleteProperty(context.Background(), "p1"))
	_, ok := d.Current()
	assert.False(t, ok)
	_, found := l.Lookup("p1")
	assert.False(t, found)
	assert.Equal(t, total, l.Snapshot().Total)
}

func TestDeleteProperty_Failure(t *testing.T) {
	wantErr := errors.New("forbidden")
	api := &mockAPI{
		GetFunc:    func(_ context.Context, id string) (models.Property, error) { return models.Property{ID: id}, nil },
		DeleteFunc: func(context.Context, string) error { return wantErr },
	}
	l := newListing(t, api)
	d := New(api, l, nil)
	require.NoError(t, d.FetchProperty(context.Background(), "p1"))

	assert.ErrorIs(t, d.DeleteProperty(context.Background(), "p1"), wantErr)
	_, ok := d.Current()
	assert.True(t, ok)
	_, found := l.Lookup("p1")
	assert.True(t, found)
}
