package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryUserRepository()
	rec := UserRecord{User: models.User{ID: "u1", Username: "Alice"}, PasswordHash: []byte("h")}

	if err := r.CreateUser(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := UserRecord{User: models.User{ID: "u2", Username: "alice"}}
	if err := r.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate username: got %v, want ErrConflict", err)
	}

	got, err := r.UserByUsername(ctx, "ALICE")
	if err != nil || got.User.ID != "u1" {
		t.Errorf("UserByUsername() = %+v, %v", got, err)
	}
	if _, err := r.UserByID(ctx, "u1"); err != nil {
		t.Errorf("UserByID: %v", err)
	}
	if _, err := r.UserByID(ctx, "u2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected duplicate was stored: %v", err)
	}
	if _, err := r.UserByUsername(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestMemoryPropertyRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryPropertyRepository()
	for i := 0; i < 5; i++ {
		p := models.Property{ID: fmt.Sprintf("p%d", i), UserID: "u1"}
		if err := r.Insert(ctx, p); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := r.Insert(ctx, models.Property{ID: "x", UserID: "u2"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert(ctx, models.Property{ID: "p0", UserID: "u1"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate id: %v", err)
	}

	tests := []struct {
		offset, limit int
		want          []string
	}{
		{0, 2, []string{"p4", "p3"}},
		{2, 2, []string{"p2", "p1"}},
		{4, 2, []string{"p0"}},
		{5, 2, []string{}},
	}
	for _, tt := range tests {
		page, total, err := r.List(ctx, "u1", tt.offset, tt.limit)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		ids := make([]string, len(page))
		for i, p := range page {
			ids[i] = p.ID
		}
		if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
			t.Errorf("offset %d: got %v, want %v", tt.offset, ids, tt.want)
		}
	}

	if _, err := r.Get(ctx, "u2", "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign get: %v", err)
	}
	if err := r.Delete(ctx, "u2", "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete: %v", err)
	}
	if err := r.Delete(ctx, "u1", "p3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	page, total, _ := r.List(ctx, "u1", 0, 10)
	if total != 4 || page[1].ID != "p2" {
		t.Errorf("after delete: total=%d page=%v", total, page)
	}
}

func TestFileRepository(t *testing.T) {
	ctx := context.Background()
	for name, dir := range map[string]string{"memory": "", "disk": t.TempDir()} {
		t.Run(name, func(t *testing.T) {
			r := NewFileRepository(dir)
			if err := r.Put(ctx, "uploads/p1/html/a.html", []byte("<p>")); err != nil {
				t.Fatalf("put: %v", err)
			}
			data, err := r.Get(ctx, "/uploads/p1/html/a.html")
			if err != nil || string(data) != "<p>" {
				t.Errorf("Get() = %q, %v", data, err)
			}
			if _, err := r.Get(ctx, "uploads/p1/html/missing.html"); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing: %v", err)
			}
			if err := r.Put(ctx, "", []byte("x")); err == nil {
				t.Error("expected error for empty path")
			}
			if dir != "" {
				if _, err := os.Stat(filepath.Join(dir, "uploads", "p1", "html", "a.html")); err != nil {
					t.Errorf("file not on disk: %v", err)
				}
			}
		})
	}
}

func TestFileRepository_StaysInsideDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := NewFileRepository(filepath.Join(dir, "files"))
	if err := r.Put(ctx, "../../escape.txt", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Errorf("file escaped the directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "files", "escape.txt")); err != nil {
		t.Errorf("expected file inside the directory: %v", err)
	}
}
