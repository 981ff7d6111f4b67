package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atinyakov/ReinsDesk/internal/models"
	"github.com/atinyakov/ReinsDesk/internal/repository"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(repository.NewMemoryUserRepository(), "test-secret", time.Hour)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newAuth(t)

	reg, err := s.Register(ctx, models.Registration{Username: "alice", Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Token == "" || reg.User.ID == "" {
		t.Fatalf("expected token and user id, got %+v", reg)
	}

	got, err := s.Login(ctx, models.Credentials{Username: "ALICE", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.User.ID != reg.User.ID {
		t.Errorf("user id = %q, want %q", got.User.ID, reg.User.ID)
	}

	id, err := s.Verify(got.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != reg.User.ID {
		t.Errorf("subject = %q, want %q", id, reg.User.ID)
	}

	u, err := s.User(ctx, id)
	if err != nil || u.Username != "alice" {
		t.Errorf("User() = %+v, %v", u, err)
	}
}

func TestAuthService_Errors(t *testing.T) {
	ctx := context.Background()
	s := newAuth(t)
	if _, err := s.Register(ctx, models.Registration{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"duplicate username", func() error {
			_, err := s.Register(ctx, models.Registration{Username: "Bob", Password: "x"})
			return err
		}, ErrUserExists},
		{"empty registration", func() error {
			_, err := s.Register(ctx, models.Registration{Username: " ", Password: "x"})
			return err
		}, ErrInvalidInput},
		{"wrong password", func() error {
			_, err := s.Login(ctx, models.Credentials{Username: "bob", Password: "nope"})
			return err
		}, ErrInvalidCredentials},
		{"unknown user", func() error {
			_, err := s.Login(ctx, models.Credentials{Username: "carol", Password: "pw"})
			return err
		}, ErrInvalidCredentials},
		{"empty login", func() error {
			_, err := s.Login(ctx, models.Credentials{})
			return err
		}, ErrInvalidInput},
		{"unknown user id", func() error {
			_, err := s.User(ctx, "missing")
			return err
		}, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthService_Verify(t *testing.T) {
	s := newAuth(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	resp, err := s.issue(models.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(base.Add(time.Hour)),
	}).SignedString([]byte("other-secret"))

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "u1",
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name    string
		token   string
		now     time.Time
		wantErr bool
	}{
		{"valid", resp.Token, base.Add(time.Minute), false},
		{"expired", resp.Token, base.Add(2 * time.Hour), true},
		{"wrong key", other, base, true},
		{"no expiry", noExp, base, true},
		{"garbage", "not-a-token", base, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			s.now = func() time.Time { return now }
			id, err := s.Verify(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil || id != "u1" {
				t.Errorf("Verify() = %q, %v", id, err)
			}
		})
	}
}
