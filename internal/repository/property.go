package repository

import (
	"context"
	"sync"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

// MemoryPropertyRepository keeps listings in memory, newest first.
type MemoryPropertyRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]models.Property
}

// NewMemoryPropertyRepository returns an empty repository.
func NewMemoryPropertyRepository() *MemoryPropertyRepository {
	return &MemoryPropertyRepository{byID: map[string]models.Property{}}
}

// Insert stores p in front of the existing listings.
func (r *MemoryPropertyRepository) Insert(_ context.Context, p models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; ok {
		return ErrConflict
	}
	r.byID[p.ID] = p
	r.order = append([]string{p.ID}, r.order...)
	return nil
}

// List returns one page of userID's listings and their total count.
func (r *MemoryPropertyRepository) List(_ context.Context, userID string, offset, limit int) ([]models.Property, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []models.Property
	for _, id := range r.order {
		if p := r.byID[id]; p.UserID == userID {
			owned = append(owned, p)
		}
	}
	total := len(owned)
	if offset >= total {
		return []models.Property{}, total, nil
	}
	end := min(offset+limit, total)
	page := make([]models.Property, end-offset)
	copy(page, owned[offset:end])
	return page, total, nil
}

// Get returns listing id if it belongs to userID.
func (r *MemoryPropertyRepository) Get(_ context.Context, userID, id string) (models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok || p.UserID != userID {
		return models.Property{}, ErrNotFound
	}
	return p, nil
}

// Delete removes listing id if it belongs to userID.
func (r *MemoryPropertyRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
