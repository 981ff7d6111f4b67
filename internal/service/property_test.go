package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/ReinsDesk/internal/models"
	"github.com/atinyakov/ReinsDesk/internal/repository"
)

func newProps() *PropertyService {
	return NewPropertyService(repository.NewMemoryPropertyRepository(), repository.NewFileRepository(""))
}

func TestPropertyService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	s := newProps()
	s.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	p, err := s.Create(ctx, "u1", map[string]string{
		"buildingName": "Sakura Heights",
		"rent":         "85,000円",
		"unknown":      "ignored",
	}, []UploadedFile{
		{Field: FieldHTML, Filename: "sheet.html", Data: []byte("<html/>")},
		{Field: FieldImages, Filename: `C:\photos\a.jpg`, Data: []byte("jpg")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.UserID != "u1" || p.Status != models.StatusSuccess {
		t.Fatalf("unexpected property: %+v", p)
	}
	if p.CreatedAt != "2025-03-01T09:00:00Z" {
		t.Errorf("created_at = %q", p.CreatedAt)
	}
	if p.Files == nil || p.Files.HTMLFilename != "sheet.html" {
		t.Fatalf("files = %+v", p.Files)
	}
	if len(p.Files.ImageFilenames) != 1 || p.Files.ImageFilenames[0] != "a.jpg" {
		t.Errorf("image names = %v", p.Files.ImageFilenames)
	}

	data, err := s.File(ctx, strings.TrimPrefix(p.Files.HTMLPath, "/files/"))
	if err != nil || string(data) != "<html/>" {
		t.Errorf("File() = %q, %v", data, err)
	}

	page, err := s.List(ctx, "u1", 0, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Count != 1 || page.HasMore == nil || *page.HasMore {
		t.Errorf("unexpected page: %+v", page)
	}

	other, _ := s.List(ctx, "u2", 0, 20)
	if other.Total != 0 || len(other.Properties) != 0 {
		t.Errorf("listings leaked across users: %+v", other)
	}
}

func TestPropertyService_Pagination(t *testing.T) {
	ctx := context.Background()
	s := newProps()
	for i := 0; i < 45; i++ {
		if _, err := s.Create(ctx, "u1", DemoFields(i), nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	tests := []struct {
		offset, limit int
		wantCount     int
		wantMore      bool
	}{
		{0, 20, 20, true},
		{20, 20, 20, true},
		{40, 20, 5, false},
		{60, 20, 0, false},
		{-5, 0, 45, false},
	}
	for _, tt := range tests {
		page, err := s.List(ctx, "u1", tt.offset, tt.limit)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Count != tt.wantCount || *page.HasMore != tt.wantMore || page.Total != 45 {
			t.Errorf("offset %d: count=%d more=%v total=%d", tt.offset, page.Count, *page.HasMore, page.Total)
		}
	}
}

func TestPropertyService_GetDelete(t *testing.T) {
	ctx := context.Background()
	s := newProps()
	p, err := s.Create(ctx, "u1", DemoFields(0), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Get(ctx, "u2", p.ID); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("foreign get: %v", err)
	}
	if err := s.Delete(ctx, "u1", p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "u1", p.ID); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	if err := s.Delete(ctx, "u1", p.ID); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if _, err := s.File(ctx, "../etc/passwd"); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("traversal: %v", err)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(repository.NewMemoryUserRepository(), "k", time.Hour)
	props := newProps()

	user, err := Seed(ctx, auth, props, 12)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	page, _ := props.List(ctx, user.ID, 0, 100)
	if page.Total != 12 {
		t.Fatalf("total = %d, want 12", page.Total)
	}
	if page.Properties[0].ReinsID != "1000000001" {
		t.Errorf("first listing = %q, want index 0 first", page.Properties[0].ReinsID)
	}

	for _, p := range page.Properties {
		raw := []byte(`{"_id":"` + p.ID + `","reins_id":"` + p.ReinsID + `","rent":"` + p.Rent + `","created_at":"x","updated_at":"y"}`)
		if _, err := models.DecodeProperty(raw); err != nil {
			t.Errorf("seeded listing fails schema: %v", err)
		}
	}

	if _, err := auth.Login(ctx, models.Credentials{Username: DemoUsername, Password: DemoPassword}); err != nil {
		t.Errorf("demo login: %v", err)
	}
	if _, err := Seed(ctx, auth, props, 12); err != nil {
		t.Errorf("second seed: %v", err)
	}
	if page, _ := props.List(ctx, user.ID, 0, 100); page.Total != 12 {
		t.Errorf("second seed added listings: %d", page.Total)
	}
}
