// Package service provides the business logic of the stub backend,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/ReinsDesk/internal/models"
	"github.com/atinyakov/ReinsDesk/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("User already exists")
	// ErrInvalidToken is returned for a bearer token that fails verification.
	ErrInvalidToken = errors.New("Invalid or expired token")
	// ErrInvalidInput is returned when required fields are missing.
	ErrInvalidInput = errors.New("Username and password are required")
)

// UserRepository defines the persistence operations required by AuthService.
type UserRepository interface {
	CreateUser(ctx context.Context, rec repository.UserRecord) error
	UserByUsername(ctx context.Context, username string) (repository.UserRecord, error)
	UserByID(ctx context.Context, id string) (repository.UserRecord, error)
}

// AuthService registers accounts, checks passwords and issues HS256 tokens.
type AuthService struct {
	repo   UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService constructs an AuthService signing tokens with secret.
func NewAuthService(repo UserRepository, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, reg models.Registration) (models.AuthResponse, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	if reg.Username == "" || reg.Password == "" {
		return models.AuthResponse{}, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		ID:        uuid.NewString(),
		Username:  reg.Username,
		Email:     strings.TrimSpace(reg.Email),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.CreateUser(ctx, repository.UserRecord{User: user, PasswordHash: hash}); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.AuthResponse{}, ErrUserExists
		}
		return models.AuthResponse{}, err
	}
	return s.issue(user)
}

// Login checks creds and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (models.AuthResponse, error) {
	if creds.Username == "" || creds.Password == "" {
		return models.AuthResponse{}, ErrInvalidInput
	}
	rec, err := s.repo.UserByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.AuthResponse{}, ErrInvalidCredentials
		}
		return models.AuthResponse{}, err
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(creds.Password)) != nil {
		return models.AuthResponse{}, ErrInvalidCredentials
	}
	return s.issue(rec.User)
}

// User returns the account with the given id.
func (s *AuthService) User(ctx context.Context, id string) (models.User, error) {
	rec, err := s.repo.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return rec.User, nil
}

// Verify checks token and returns the user id it was issued for.
func (s *AuthService) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *AuthService) issue(user models.User) (models.AuthResponse, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("sign token: %w", err)
	}
	return models.AuthResponse{Token: signed, User: user}, nil
}
