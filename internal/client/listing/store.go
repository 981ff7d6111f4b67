// Package listing holds the paginated property collection, the filter
// criteria and the visible subset derived from both.
package listing

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 20

// State is the loading state of the store.
type State int

const (
	Idle State = iota
	LoadingInitial
	Ready
	LoadingMore
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingInitial:
		return "loading_initial"
	case Ready:
		return "ready"
	case LoadingMore:
		return "loading_more"
	case Error:
		return "error"
	}
	return "unknown"
}

// API is the part of the backend client the store needs.
type API interface {
	ListProperties(ctx context.Context, offset, limit int) (models.PropertyPage, error)
	DeleteProperty(ctx context.Context, id string) error
}

// Cache is the read-through view other stores use to keep the loaded
// collection consistent.
type Cache interface {
	Lookup(id string) (models.Property, bool)
	Replace(p models.Property) bool
	Remove(id string) bool
}

// Snapshot is a read-only copy of the store.
type Snapshot struct {
	State      State
	Items      []models.Property
	Total      int
	NextOffset int
	HasMore    bool
	Filters    Filters
	// Err is the failure of the last fetch, nil after a success.
	Err error
}

// IsLoadingInitial reports whether the first page is loading.
func (s Snapshot) IsLoadingInitial() bool { return s.State == LoadingInitial }

// IsLoadingMore reports whether a further page is loading.
func (s Snapshot) IsLoadingMore() bool { return s.State == LoadingMore }

// Store owns the listing state. Create it with New and pass it by pointer.
type Store struct {
	api      API
	log      *zap.Logger
	pageSize int

	// more admits one outstanding "more" request; extra triggers are dropped.
	more *semaphore.Weighted

	mu         sync.RWMutex
	state      State
	items      []models.Property
	total      int
	nextOffset int
	hasMore    bool
	filters    Filters
	err        error
	// generation changes on every FetchProperties so that late pages of an
	// older list are discarded.
	generation uint64
	listeners  []func(Snapshot)
}

// Option configures a Store.
type Option func(*Store)

// WithPageSize sets the page size. Non-positive values keep the default.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns an Idle store.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:      api,
		log:      zap.NewNop(),
		pageSize: DefaultPageSize,
		more:     semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageSize returns the configured page size.
func (s *Store) PageSize() int { return s.pageSize }

// FetchProperties loads the first page. With reset the collection and the
// cursor are cleared before the request is sent. A failure moves the store
// to Error and is returned; nothing is retried.
func (s *Store) FetchProperties(ctx context.Context, reset bool) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if reset {
		s.items = nil
		s.total = 0
		s.nextOffset = 0
		s.hasMore = false
	}
	s.state = LoadingInitial
	s.mu.Unlock()
	s.notify()

	page, err := s.api.ListProperties(ctx, 0, s.pageSize)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("discarding superseded first page")
		return nil
	}
	if err != nil {
		s.state = Error
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.items = nil
	s.apply(page, 0)
	s.mu.Unlock()
	s.notify()

	s.log.Debug("fetched properties",
		zap.Int("received", len(page.Properties)),
		zap.Int("total", page.Total),
	)
	return nil
}

// FetchMoreProperties appends the next page. It returns immediately without
// a request when there is nothing more to load or another call is still in
// flight.
func (s *Store) FetchMoreProperties(ctx context.Context) error {
	if !s.more.TryAcquire(1) {
		s.log.Debug("fetch more skipped: already in flight")
		return nil
	}
	defer s.more.Release(1)

	s.mu.Lock()
	if !s.hasMore || s.state == LoadingInitial {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	offset := s.nextOffset
	s.state = LoadingMore
	s.mu.Unlock()
	s.notify()

	page, err := s.api.ListProperties(ctx, offset, s.pageSize)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("discarding page of a superseded list", zap.Int("offset", offset))
		return nil
	}
	if err != nil {
		s.state = Ready
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.apply(page, offset)
	s.mu.Unlock()
	s.notify()
	return nil
}

// apply appends page onto items and recomputes the cursor. requested is the
// offset that was asked for. Callers hold mu.
func (s *Store) apply(page models.PropertyPage, requested int) {
	seen := make(map[string]struct{}, len(s.items)+len(page.Properties))
	for _, p := range s.items {
		seen[p.ID] = struct{}{}
	}
	for _, p := range page.Properties {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		s.items = append(s.items, p)
	}

	count := page.Count
	if count == 0 {
		count = len(page.Properties)
	}
	offset := max(page.Offset, requested)
	s.nextOffset = offset + count

	s.total = max(page.Total, len(s.items))

	if page.HasMore != nil {
		s.hasMore = *page.HasMore
	} else {
		s.hasMore = offset+count < s.total
	}
	if count == 0 || s.nextOffset >= s.total {
		s.hasMore = false
	}

	s.state = Ready
	s.err = nil
}

// FilteredProperties returns the loaded items matching the current filters,
// in load order. It is computed on every call.
func (s *Store) FilteredProperties() []models.Property {
	s.mu.RLock()
	items := s.items
	f := s.filters
	s.mu.RUnlock()

	m := newMatcher(f)
	out := make([]models.Property, 0, len(items))
	for _, p := range items {
		if m.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// SetFilters merges patch into the current criteria. It never fetches.
func (s *Store) SetFilters(patch map[FilterKey]string) error {
	s.mu.Lock()
	merged, err := s.filters.Merge(patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.filters = merged
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetSearch replaces the free-text search term.
func (s *Store) SetSearch(term string) {
	s.mu.Lock()
	s.filters.Search = strings.TrimSpace(term)
	s.mu.Unlock()
	s.notify()
}

// ClearFilters resets every criterion except the search term.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	s.filters = Filters{Search: s.filters.Search}
	s.mu.Unlock()
	s.notify()
}

// RemoveFilter clears one criterion. The search term is never removed this way.
func (s *Store) RemoveFilter(key FilterKey) error {
	if key == KeySearch {
		return nil
	}
	s.mu.Lock()
	p := s.filters.field(key)
	if p == nil {
		s.mu.Unlock()
		return ErrUnknownFilter
	}
	*p = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// Filters returns the current criteria.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// ActiveFiltersCount counts populated criteria, search excluded.
func (s *Store) ActiveFiltersCount() int {
	return len(s.ActiveFilters())
}

// ActiveFilters lists populated criteria, search excluded.
func (s *Store) ActiveFilters() []ActiveFilter {
	return s.Filters().Active()
}

// CountByStatus counts the loaded items per status. Items without a status
// are not counted.
func (s *Store) CountByStatus() map[models.PropertyStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.PropertyStatus]int, len(models.Statuses))
	for _, st := range models.Statuses {
		out[st] = 0
	}
	for _, p := range s.items {
		if p.Status != "" {
			out[p.Status]++
		}
	}
	return out
}

// DeleteProperty deletes on the backend and then drops the item locally.
// Total is left as it was until the next full fetch.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	if err := s.api.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.Remove(id)
	return nil
}

// Lookup returns the loaded copy of id.
func (s *Store) Lookup(id string) (models.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.items {
		if p.ID == id {
			return p, true
		}
	}
	return models.Property{}, false
}

// Replace overwrites the loaded copy of p.ID and reports whether it was loaded.
func (s *Store) Replace(p models.Property) bool {
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID == p.ID {
			next := make([]models.Property, len(s.items))
			copy(next, s.items)
			next[i] = p
			s.items = next
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// Remove drops id from the loaded items without touching total or the cursor.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	next := make([]models.Property, 0, len(s.items))
	for _, p := range s.items {
		if p.ID != id {
			next = append(next, p)
		}
	}
	found := len(next) != len(s.items)
	if found {
		s.items = next
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]models.Property, len(s.items))
	copy(items, s.items)
	return Snapshot{
		State:      s.state,
		Items:      items,
		Total:      s.total,
		NextOffset: s.nextOffset,
		HasMore:    s.hasMore,
		Filters:    s.filters,
		Err:        s.err,
	}
}

// Subscribe registers fn for every change and returns a function removing it.
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
	if len(s.listeners) == 0 {
		s.mu.RUnlock()
		return
	}
	snap := s.snapshotLocked()
	listeners := append(([]func(Snapshot))(nil), s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		if fn != nil {
			fn(snap)
		}
	}
}
