// Package storage provides the durable key/value store that keeps the
// client session between runs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
)

// Durable keys written by the session.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Storage is a string key/value store. Single-key operations are atomic; there
// is no transaction across keys.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes every given key. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// FileStorage keeps all entries in a single JSON document on disk.
type FileStorage struct {
	Entries map[string]string `json:"entries"`

	path string
	mu   sync.Mutex
}

const fileName = "session.json"

// DefaultPath returns <user config dir>/reinsdesk/session.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "reinsdesk", fileName), nil
}

// NewFileStorage returns a FileStorage backed by path and loads it.
func NewFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{path: path}
	if err := fs.Load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Load reads the file. A missing file yields an empty store.
func (fs *FileStorage) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.Entries = map[string]string{}
			return nil
		}
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(fs); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", fs.path, err)
	}
	if fs.Entries == nil {
		fs.Entries = map[string]string{}
	}
	return nil
}

// Save writes the file with owner-only permissions.
func (fs *FileStorage) Save() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.save()
}

func (fs *FileStorage) save() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	f, err := os.OpenFile(fs.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(fs)
}

// Get implements Storage.
func (fs *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.Entries[key]
	return v, ok, nil
}

// Set implements Storage and persists immediately.
func (fs *FileStorage) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.Entries == nil {
		fs.Entries = map[string]string{}
	}
	fs.Entries[key] = value
	return fs.save()
}

// Delete implements Storage and persists immediately.
func (fs *FileStorage) Delete(_ context.Context, keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	changed := false
	for _, k := range keys {
		if _, ok := fs.Entries[k]; ok {
			delete(fs.Entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return fs.save()
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: map[string]string{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Close releases the resources held by s, if any.
func Close(s Storage) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// deleteEach runs del for every key and combines the failures.
func deleteEach(keys []string, del func(string) error) error {
	var errs error
	for _, k := range keys {
		errs = multierr.Append(errs, del(k))
	}
	return errs
}
