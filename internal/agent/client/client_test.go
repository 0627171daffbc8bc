package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-tracker/internal/agent/state"
	"github.com/jonathan/job-tracker/internal/types"
)

// memSessions is an in-memory SessionStore.
type memSessions struct {
	sess *state.Session
}

func (m *memSessions) SaveSession(sess state.Session) error {
	m.sess = &sess
	return nil
}

func (m *memSessions) Session() (*state.Session, error) {
	if m.sess == nil {
		return nil, state.ErrNoSession
	}
	return m.sess, nil
}

func (m *memSessions) ClearSession() error {
	m.sess = nil
	return nil
}

func TestLoginPersistsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/users/login", r.URL.Path)

		var req types.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)

		_ = json.NewEncoder(w).Encode(types.AuthResponse{
			Success: true,
			Token:   "tok-123",
			User:    &types.User{Username: "alice"},
		})
	}))
	defer srv.Close()

	sessions := &memSessions{}
	c := New(srv.URL, sessions)

	user, err := c.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	require.NotNil(t, sessions.sess)
	assert.Equal(t, "tok-123", sessions.sess.Token)

	ok, username := c.LoggedIn()
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestSaveCompanySendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.SaveApplicationResponse{
			Success: true,
			Data:    &types.Application{Name: "Acme"},
			IsNew:   true,
		})
	}))
	defer srv.Close()

	sessions := &memSessions{sess: &state.Session{Token: "tok-123"}}
	c := New(srv.URL, sessions)

	record, isNew, err := c.SaveCompany(context.Background(), types.SaveApplicationRequest{Name: "Acme"})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "Acme", record.Name)
}

func TestSaveCompanyWithoutSession(t *testing.T) {
	c := New("http://unreachable.invalid", &memSessions{})

	_, _, err := c.SaveCompany(context.Background(), types.SaveApplicationRequest{Name: "Acme"})
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sessions := &memSessions{sess: &state.Session{Token: "stale"}}
	c := New(srv.URL, sessions)

	_, _, err := c.SaveCompany(context.Background(), types.SaveApplicationRequest{Name: "Acme"})
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Nil(t, sessions.sess, "rejected token is discarded")
}

func TestServerErrorMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "company name is required"})
	}))
	defer srv.Close()

	sessions := &memSessions{sess: &state.Session{Token: "tok"}}
	c := New(srv.URL, sessions)

	_, _, err := c.SaveCompany(context.Background(), types.SaveApplicationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company name is required")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, &memSessions{})
	assert.NoError(t, c.Health(context.Background()))
}
