// Package repository provides the in-memory persistence used by the stub
// backend.
package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("already exists")
)

// UserRecord is a stored account.
type UserRecord struct {
	User         models.User
	PasswordHash []byte
}

// MemoryUserRepository keeps accounts in memory, indexed by id and by
// case-insensitive username.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	byID   map[string]UserRecord
	byName map[string]string
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:   map[string]UserRecord{},
		byName: map[string]string{},
	}
}

// CreateUser stores rec. It returns ErrConflict if the username is taken.
func (r *MemoryUserRepository) CreateUser(_ context.Context, rec UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := strings.ToLower(rec.User.Username)
	if _, ok := r.byName[name]; ok {
		return ErrConflict
	}
	r.byID[rec.User.ID] = rec
	r.byName[name] = rec.User.ID
	return nil
}

// UserByUsername looks an account up by username.
func (r *MemoryUserRepository) UserByUsername(_ context.Context, username string) (UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[strings.ToLower(username)]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return r.byID[id], nil
}

// UserByID looks an account up by id.
func (r *MemoryUserRepository) UserByID(_ context.Context, id string) (UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return rec, nil
}
