// Package client is the tracking agent's HTTP client for the job tracker
// API. Tokens are persisted through the state store so logins survive agent
// restarts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/job-tracker/internal/agent/state"
	"github.com/jonathan/job-tracker/internal/types"
)

// ErrAuthRequired is returned when no session exists or the server rejects
// the stored token.
var ErrAuthRequired = errors.New("authentication required")

const defaultTimeout = 30 * time.Second

// SessionStore persists the auth session. *state.Store satisfies it.
type SessionStore interface {
	SaveSession(sess state.Session) error
	Session() (*state.Session, error)
	ClearSession() error
}

// Client talks to the job tracker REST API.
type Client struct {
	base     string
	http     *http.Client
	sessions SessionStore
}

// New creates a client for the API at base.
func New(base string, sessions SessionStore) *Client {
	return &Client{
		base:     strings.TrimSuffix(base, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		sessions: sessions,
	}
}

// apiError is the server's JSON error body.
type apiError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		sess, err := c.sessions.Session()
		if err != nil {
			return ErrAuthRequired
		}
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token expired or revoked; drop it so the next attempt prompts a login
		_ = c.sessions.ClearSession()
		return ErrAuthRequired
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Message)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Login authenticates against the server and persists the session.
func (c *Client) Login(ctx context.Context, username, password string) (*types.User, error) {
	var resp types.AuthResponse
	err := c.doJSON(ctx, "POST", "/users/login", types.LoginRequest{
		Username: username,
		Password: password,
	}, false, &resp)
	if err != nil {
		return nil, err
	}

	if err := c.sessions.SaveSession(state.Session{Token: resp.Token, Username: username}); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return resp.User, nil
}

// Logout discards the stored session.
func (c *Client) Logout() error {
	return c.sessions.ClearSession()
}

// LoggedIn reports whether a usable session exists, and the username.
func (c *Client) LoggedIn() (bool, string) {
	sess, err := c.sessions.Session()
	if err != nil {
		return false, ""
	}
	return true, sess.Username
}

// SaveCompany submits a detected application. It returns the stored record
// and whether it was newly created.
func (c *Client) SaveCompany(ctx context.Context, req types.SaveApplicationRequest) (*types.Application, bool, error) {
	var resp types.SaveApplicationResponse
	if err := c.doJSON(ctx, "POST", "/companies", req, true, &resp); err != nil {
		return nil, false, err
	}
	return resp.Data, resp.IsNew, nil
}

// Profile fetches the user's profile with their tracked applications.
func (c *Client) Profile(ctx context.Context) (*types.ProfileResponse, error) {
	var resp types.ProfileResponse
	if err := c.doJSON(ctx, "GET", "/users/profile", nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks server reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, "GET", "/health", nil, false, nil)
}
