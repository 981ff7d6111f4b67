// Package session holds the client's authentication state and keeps it in
// step with durable storage.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/apiclient"
	"github.com/atinyakov/ReinsDesk/internal/client/storage"
	"github.com/atinyakov/ReinsDesk/internal/models"
)

// State is the authentication state.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	CheckingAuth
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case CheckingAuth:
		return "checking_auth"
	}
	return "unknown"
}

// API is the part of the backend client the session needs.
type API interface {
	Login(ctx context.Context, creds models.Credentials) (models.AuthResponse, error)
	Register(ctx context.Context, reg models.Registration) (models.AuthResponse, error)
	Me(ctx context.Context) (models.User, error)
	Subscribe(fn func(apiclient.Event)) func()
}

// Listener is called after every state change.
type Listener func(State, models.Session)

// Store owns the session. Create it with New and pass it by pointer.
type Store struct {
	api   API
	store storage.Storage
	log   *zap.Logger
	now   func() time.Time

	mu        sync.RWMutex
	state     State
	token     string
	user      *models.User
	listeners []Listener

	unsubscribe func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New restores the session from store and subscribes to session expiry
// events of api. Unusable stored credentials are cleared and the session
// starts anonymous.
func New(ctx context.Context, api API, store storage.Storage, opts ...Option) *Store {
	s := &Store{api: api, store: store, log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.restore(ctx)
	s.unsubscribe = api.Subscribe(func(ev apiclient.Event) {
		if ev.Kind == apiclient.EventSessionExpired {
			s.set(Anonymous, "", nil)
		}
	})
	return s
}

// Close detaches the store from the API event stream.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Store) restore(ctx context.Context) {
	tok, ok, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		s.log.Warn("read stored token", zap.Error(err))
		return
	}
	if !ok || tok == "" {
		return
	}
	if err := s.checkToken(tok); err != nil {
		s.log.Info("discarding stored token", zap.Error(err))
		s.clear(ctx)
		return
	}

	var user *models.User
	if raw, ok, err := s.store.Get(ctx, storage.KeyUser); err == nil && ok && raw != "" {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.log.Warn("dropping corrupt cached user", zap.Error(err))
			_ = s.store.Delete(ctx, storage.KeyUser)
		} else {
			user = &u
		}
	}

	s.state, s.token, s.user = Authenticated, tok, user
}

// checkToken rejects tokens that are JWTs with a past exp claim or that look
// like JWTs but do not parse. Opaque tokens pass.
func (s *Store) checkToken(tok string) error {
	if strings.ContainsAny(tok, " \t\r\n") {
		return fmt.Errorf("token contains whitespace")
	}
	if strings.Count(tok, ".") != 2 {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return fmt.Errorf("malformed token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("malformed exp claim: %w", err)
	}
	if exp != nil && !exp.After(s.now()) {
		return fmt.Errorf("token expired at %s", exp.Time.Format(time.RFC3339))
	}
	return nil
}

// Login authenticates with username and password and persists the result.
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.set(Authenticating, "", nil)
	resp, err := s.api.Login(ctx, models.Credentials{Username: username, Password: password})
	return s.finishAuth(ctx, resp, err)
}

// Register creates an account and signs in with it.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	s.set(Authenticating, "", nil)
	resp, err := s.api.Register(ctx, models.Registration{Username: username, Email: email, Password: password})
	return s.finishAuth(ctx, resp, err)
}

func (s *Store) finishAuth(ctx context.Context, resp models.AuthResponse, err error) error {
	if err != nil {
		s.clear(ctx)
		s.set(Anonymous, "", nil)
		return err
	}
	if err := s.persist(ctx, resp.Token, resp.User); err != nil {
		s.clear(ctx)
		s.set(Anonymous, "", nil)
		return err
	}
	user := resp.User
	s.set(Authenticated, resp.Token, &user)
	return nil
}

func (s *Store) persist(ctx context.Context, token string, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyUser, string(raw)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

// Logout clears the session without contacting the backend. The state is
// always Anonymous afterwards; the returned error only reports storage
// failures.
func (s *Store) Logout(ctx context.Context) error {
	err := s.clear(ctx)
	s.set(Anonymous, "", nil)
	return err
}

// CheckAuth validates the stored token against the backend.
func (s *Store) CheckAuth(ctx context.Context) error {
	tok, ok, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		s.set(Anonymous, "", nil)
		return fmt.Errorf("read stored token: %w", err)
	}
	if !ok || tok == "" {
		s.set(Anonymous, "", nil)
		return nil
	}

	s.mu.RLock()
	prevUser := s.user
	s.mu.RUnlock()
	s.set(CheckingAuth, tok, prevUser)

	user, err := s.api.Me(ctx)
	if err != nil {
		s.clear(ctx)
		s.set(Anonymous, "", nil)
		return err
	}
	if raw, mErr := json.Marshal(user); mErr == nil {
		if sErr := s.store.Set(ctx, storage.KeyUser, string(raw)); sErr != nil {
			s.log.Warn("store refreshed user", zap.Error(sErr))
		}
	}
	s.set(Authenticated, tok, &user)
	return nil
}

func (s *Store) clear(ctx context.Context) error {
	err := s.store.Delete(ctx, storage.KeyToken, storage.KeyUser)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			s.log.Warn("clear stored credentials", zap.Error(e))
		}
	}
	return err
}

func (s *Store) set(state State, token string, user *models.User) {
	s.mu.Lock()
	s.state, s.token, s.user = state, token, user
	snap := s.snapshotLocked()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(state, snap)
		}
	}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a read-only copy of the session.
func (s *Store) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() models.Session {
	snap := models.Session{
		Token:      s.token,
		IsLoggedIn: s.state == Authenticated && s.token != "",
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// IsLoggedIn reports whether the session is authenticated with a token.
func (s *Store) IsLoggedIn() bool {
	return s.Snapshot().IsLoggedIn
}

// Subscribe registers l for state changes and returns a function removing it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners[idx] = nil
	}
}
