package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/repository"
	"github.com/atinyakov/ReinsDesk/internal/service"
)

// Backend is a fully wired in-memory stub backend.
type Backend struct {
	Auth       *service.AuthService
	Properties *service.PropertyService
	Handler    http.Handler
}

// BackendOptions configures NewBackend.
type BackendOptions struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Seed is the number of demo listings created for the demo account;
	// zero skips seeding.
	Seed     int
	FilesDir string
	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewBackend wires repositories, services and the router.
func NewBackend(ctx context.Context, opts BackendOptions) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	auth := service.NewAuthService(repository.NewMemoryUserRepository(), opts.JWTSecret, opts.TokenTTL)
	props := service.NewPropertyService(repository.NewMemoryPropertyRepository(), repository.NewFileRepository(opts.FilesDir))

	if opts.Seed > 0 {
		if _, err := service.Seed(ctx, auth, props, opts.Seed); err != nil {
			return nil, err
		}
	}

	return &Backend{
		Auth:       auth,
		Properties: props,
		Handler: NewRouter(
			&AuthHandler{AuthService: auth},
			&PropertyHandler{Properties: props},
			auth,
			opts.CORSOrigins,
			opts.Logger,
		),
	}, nil
}
