// Package detail holds the single property shown on the detail screen. It
// reads and writes through the listing cache so both views stay consistent.
package detail

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/client/listing"
	"github.com/atinyakov/ReinsDesk/internal/models"
)

// API is the part of the backend client the store needs.
type API interface {
	GetProperty(ctx context.Context, id string) (models.Property, error)
	DeleteProperty(ctx context.Context, id string) error
}

type noCache struct{}

func (noCache) Lookup(string) (models.Property, bool) { return models.Property{}, false }
func (noCache) Replace(models.Property) bool          { return false }
func (noCache) Remove(string) bool                    { return false }

// Snapshot is a read-only copy of the store.
type Snapshot struct {
	Current *models.Property
	Loading bool
	Err     error
}

// Store owns the current property.
type Store struct {
	api   API
	cache listing.Cache
	log   *zap.Logger

	mu        sync.RWMutex
	current   *models.Property
	loading   bool
	err       error
	seq       uint64
	listeners []func(Snapshot)
}

// New returns a store backed by api. cache may be nil.
func New(api API, cache listing.Cache, log *zap.Logger) *Store {
	if cache == nil {
		cache = noCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{api: api, cache: cache, log: log}
}

// FetchProperty loads id. A copy already in the listing is shown while the
// request runs; the fresh copy replaces it in both places. When a later
// FetchProperty starts before this one finishes, this result is dropped.
func (s *Store) FetchProperty(ctx context.Context, id string) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	s.err = nil
	if p, ok := s.cache.Lookup(id); ok {
		s.current = &p
	} else {
		s.current = nil
	}
	s.mu.Unlock()
	s.notify()

	p, err := s.api.GetProperty(ctx, id)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.log.Debug("dropping superseded detail response", zap.String("id", id))
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.current = &p
	s.mu.Unlock()

	s.cache.Replace(p)
	s.notify()
	return nil
}

// DeleteProperty deletes id on the backend and drops it from the listing.
// Navigating away is up to the caller.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	err := s.api.DeleteProperty(ctx, id)

	s.mu.Lock()
	s.loading = false
	if err == nil && s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()

	if err == nil {
		s.cache.Remove(id)
	}
	s.notify()
	return err
}

// Current returns the loaded property.
func (s *Store) Current() (models.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Property{}, false
	}
	return *s.current, true
}

// Loading reports whether a request is outstanding.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: s.loading, Err: s.err}
	if s.current != nil {
		p := *s.current
		snap.Current = &p
	}
	return snap
}

// Subscribe registers fn for every change.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners[idx] = nil
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	snap := s.snapshotLocked()
	listeners := append(([]func(Snapshot))(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		if fn != nil {
			fn(snap)
		}
	}
}
