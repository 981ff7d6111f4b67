package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

// Login exchanges credentials for a token. It does not touch storage.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/login", creds, nil, &out); err != nil {
		return models.AuthResponse{}, err
	}
	if out.Token == "" {
		return models.AuthResponse{}, fmt.Errorf("login response has no token")
	}
	return out, nil
}

// Register creates an account and returns its token. It does not touch storage.
func (c *Client) Register(ctx context.Context, reg models.Registration) (models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/register", reg, nil, &out); err != nil {
		return models.AuthResponse{}, err
	}
	if out.Token == "" {
		return models.AuthResponse{}, fmt.Errorf("register response has no token")
	}
	return out, nil
}

// Me returns the account of the stored token. The response may be the bare
// user or wrapped as {"user": {...}}.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	raw, err := c.send(ctx, request{method: http.MethodGet, path: "/auth/me", authRequired: true})
	if err != nil {
		return models.User{}, err
	}

	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}

	var u models.User
	if err := decodeInto(raw, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}
