package repository

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// FileRepository stores uploaded blobs by relative path, in memory or under
// a directory.
type FileRepository struct {
	dir string

	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewFileRepository keeps files under dir, or in memory when dir is empty.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir, blobs: map[string][]byte{}}
}

func clean(rel string) (string, error) {
	p := path.Clean("/" + rel)[1:]
	if p == "" || strings.HasPrefix(p, "..") {
		return "", fmt.Errorf("invalid file path %q", rel)
	}
	return p, nil
}

// Put stores data under rel.
func (r *FileRepository) Put(_ context.Context, rel string, data []byte) error {
	p, err := clean(rel)
	if err != nil {
		return err
	}
	if r.dir == "" {
		r.mu.Lock()
		r.blobs[p] = append([]byte(nil), data...)
		r.mu.Unlock()
		return nil
	}
	full := filepath.Join(r.dir, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create file dir: %w", err)
	}
	return os.WriteFile(full, data, 0o644)
}

// Get returns the blob stored under rel.
func (r *FileRepository) Get(_ context.Context, rel string) ([]byte, error) {
	p, err := clean(rel)
	if err != nil {
		return nil, ErrNotFound
	}
	if r.dir == "" {
		r.mu.RLock()
		defer r.mu.RUnlock()
		data, ok := r.blobs[p]
		if !ok {
			return nil, ErrNotFound
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(p)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}
