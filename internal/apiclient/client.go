// Package apiclient is the HTTP adapter for the listing backend. It attaches
// the stored bearer token, normalizes failures into *Error and announces
// every failure to subscribers before returning it.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/client/storage"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000/api"

// maxBody caps how much of a response body is read.
const maxBody = 32 << 20

// Client talks to the backend REST API.
type Client struct {
	baseURL  string
	fileBase string
	http     *http.Client
	store    storage.Storage
	log      *zap.Logger

	subMu   sync.RWMutex
	subs    []subscriber
	nextSub int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithFileBaseURL overrides the base used to resolve relative file paths.
func WithFileBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.fileBase = strings.TrimRight(u, "/")
		}
	}
}

// New returns a Client for baseURL that reads the bearer token from store.
func New(baseURL string, store storage.Storage, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		baseURL:  baseURL,
		fileBase: FileBaseFromAPI(baseURL),
		http:     &http.Client{Timeout: 10 * time.Second},
		store:    store,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileBaseFromAPI strips a trailing /api from an API base URL.
func FileBaseFromAPI(baseURL string) string {
	return strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api")
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Storage returns the durable storage the client reads credentials from.
func (c *Client) Storage() storage.Storage { return c.store }

// HasToken reports whether a non-empty token is stored.
func (c *Client) HasToken(ctx context.Context) bool {
	tok, _ := c.token(ctx)
	return tok != ""
}

func (c *Client) token(ctx context.Context) (string, error) {
	tok, ok, err := c.store.Get(ctx, storage.KeyToken)
	if err != nil || !ok {
		return "", err
	}
	return tok, nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// authRequired makes the call fail fast when no token is stored.
	authRequired bool
}

// Do sends a JSON request and decodes the response into out (which may be
// nil). body, when non-nil, is JSON encoded. The token is attached when one
// is stored; Do itself does not require one.
func (c *Client) Do(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	req := request{method: method, path: path, query: query}
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		req.body = bytes.NewReader(buf)
		req.contentType = "application/json"
	}
	raw, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func decodeInto(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs req and returns the raw response body of a 2xx response.
func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	tok, err := c.token(ctx)
	if err != nil {
		c.log.Warn("read stored token", zap.Error(err))
	}
	if req.authRequired && tok == "" {
		return nil, authRequiredError()
	}

	u := c.baseURL + "/" + strings.TrimLeft(req.path, "/")
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if tok != "" {
		httpReq.Header.Set("Authorization", "Bearer "+tok)
	}

	log := c.log.With(
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.String("request_id", reqID),
	)
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled by the caller: not a failure worth announcing.
			return nil, transportError(err)
		}
		apiErr := transportError(err)
		log.Debug("request failed", zap.Error(err))
		c.emit(Event{Kind: EventRequestFailed, Method: req.method, Path: req.path, Err: apiErr})
		return nil, apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		apiErr := transportError(fmt.Errorf("read response: %w", err))
		c.emit(Event{Kind: EventRequestFailed, Method: req.method, Path: req.path, Err: apiErr})
		return nil, apiErr
	}

	log.Debug("request done",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < http.StatusBadRequest {
		return raw, nil
	}

	apiErr := statusError(resp.StatusCode, raw)
	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.store.Delete(ctx, storage.KeyToken, storage.KeyUser); err != nil {
			log.Warn("clear stored credentials", zap.Error(err))
		}
		c.emit(Event{Kind: EventSessionExpired, Method: req.method, Path: req.path, Err: apiErr})
		return nil, apiErr
	}
	c.emit(Event{Kind: EventRequestFailed, Method: req.method, Path: req.path, Err: apiErr})
	return nil, apiErr
}

// IsCanceled reports whether err comes from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
