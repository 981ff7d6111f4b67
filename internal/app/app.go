package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/apiclient"
	"github.com/atinyakov/ReinsDesk/internal/client/detail"
	"github.com/atinyakov/ReinsDesk/internal/client/listing"
	"github.com/atinyakov/ReinsDesk/internal/client/session"
	"github.com/atinyakov/ReinsDesk/internal/client/storage"
	"github.com/atinyakov/ReinsDesk/internal/config"
)

// App is the composed client: one instance of every store sharing a single
// backend client and storage.
type App struct {
	Options *config.Options
	Log     *zap.Logger

	Storage storage.Storage
	API     *apiclient.Client
	Session *session.Store
	Listing *listing.Store
	Detail  *detail.Store
	Nav     *Coordinator
}

// New builds the client from opts. notify receives every user-facing message.
func New(ctx context.Context, opts *config.Options, log *zap.Logger, notify Notifier) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store, err := storage.Open(ctx, opts.Storage.Driver, opts.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	hc, err := apiclient.NewHTTPClient(opts.API.CAFile, opts.API.Timeout)
	if err != nil {
		_ = storage.Close(store)
		return nil, err
	}

	return Compose(ctx, opts, store, apiclient.New(opts.API.BaseURL, store,
		apiclient.WithHTTPClient(hc),
		apiclient.WithFileBaseURL(opts.API.FileBaseURL),
		apiclient.WithLogger(log.Named("api")),
	), log, notify), nil
}

// Compose wires the stores around an existing client and storage.
func Compose(ctx context.Context, opts *config.Options, store storage.Storage, api *apiclient.Client, log *zap.Logger, notify Notifier) *App {
	if log == nil {
		log = zap.NewNop()
	}
	pageSize := listing.DefaultPageSize
	if opts != nil && opts.Listing.PageSize > 0 {
		pageSize = opts.Listing.PageSize
	}

	a := &App{Options: opts, Log: log, Storage: store, API: api}
	a.Session = session.New(ctx, api, store, session.WithLogger(log.Named("session")))
	a.Listing = listing.New(api, listing.WithPageSize(pageSize), listing.WithLogger(log.Named("listing")))
	a.Detail = detail.New(api, a.Listing, log.Named("detail"))

	start := ScreenLogin
	if a.Session.IsLoggedIn() {
		start = ScreenProperties
	}
	a.Nav = NewCoordinator(api, start, notify, log.Named("nav"))
	return a
}

// Login signs in from the login screen and moves to the property list.
func (a *App) Login(ctx context.Context, username, password string) error {
	a.Nav.Navigate(ScreenLogin, "")
	if err := a.Session.Login(ctx, username, password); err != nil {
		return err
	}
	a.Nav.Navigate(ScreenProperties, "")
	return nil
}

// Register creates an account from the login screen and signs in.
func (a *App) Register(ctx context.Context, username, email, password string) error {
	a.Nav.Navigate(ScreenLogin, "")
	if err := a.Session.Register(ctx, username, email, password); err != nil {
		return err
	}
	a.Nav.Navigate(ScreenProperties, "")
	return nil
}

// Logout clears the session and returns to the login screen.
func (a *App) Logout(ctx context.Context) error {
	err := a.Session.Logout(ctx)
	a.Nav.Navigate(ScreenLogin, "")
	return err
}

// OpenProperty shows id on the detail screen.
func (a *App) OpenProperty(ctx context.Context, id string) error {
	a.Nav.Navigate(ScreenDetail, id)
	return a.Detail.FetchProperty(ctx, id)
}

// DeleteCurrent deletes the property on the detail screen and goes back to
// the list.
func (a *App) DeleteCurrent(ctx context.Context) error {
	id := a.Nav.DetailID()
	if id == "" {
		return fmt.Errorf("no property selected")
	}
	if err := a.Detail.DeleteProperty(ctx, id); err != nil {
		return err
	}
	a.Nav.Navigate(ScreenProperties, "")
	return nil
}

// Close releases storage and detaches listeners.
func (a *App) Close() error {
	a.Nav.Close()
	a.Session.Close()
	return storage.Close(a.Storage)
}
