package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-tracker/internal/config"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/resolver"
	"github.com/jonathan/job-tracker/internal/server/middleware"
	"github.com/jonathan/job-tracker/internal/types"
)

// fakeStore is an in-memory Store used by the handler tests.
type fakeStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*db.User
	applications map[uuid.UUID]*db.Application
	resumes      map[uuid.UUID]*db.Resume // keyed by user ID
	pingErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[uuid.UUID]*db.User),
		applications: make(map[uuid.UUID]*db.Application),
		resumes:      make(map[uuid.UUID]*db.Resume),
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) CreateUser(_ context.Context, username, name, email, passwordHash string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	now := time.Now()
	f.users[id] = &db.User{
		ID: id, Username: username, Name: name, Email: email,
		PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	u, err := f.GetUserByUsername(ctx, username)
	return u != nil, err
}

func (f *fakeStore) EmailExists(_ context.Context, email string, excludeID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id uuid.UUID, name, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	u.Name, u.Email, u.UpdatedAt = name, email, time.Now()
	return nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeStore) ListApplications(_ context.Context, userID uuid.UUID) ([]db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Application
	for _, a := range f.applications {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ApplicationDate.After(out[j].ApplicationDate)
	})
	return out, nil
}

func (f *fakeStore) GetApplication(_ context.Context, id uuid.UUID) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) FindApplicationByNameURL(_ context.Context, userID uuid.UUID, name, urlKey string) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.applications {
		if a.UserID == userID && a.Name == name && db.URLKey(a.URL) == urlKey {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindApplicationByName(_ context.Context, userID uuid.UUID, name string) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *db.Application
	for _, a := range f.applications {
		if a.UserID == userID && a.Name == name {
			if latest == nil || a.ApplicationDate.After(latest.ApplicationDate) {
				latest = a
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeStore) UpsertApplication(_ context.Context, a db.Application) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	f.applications[a.ID] = &a
	cp := a
	return &cp, nil
}

func (f *fakeStore) RefreshApplication(_ context.Context, id uuid.UUID, url, status, notes string) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return nil, fmt.Errorf("application not found: %s", id)
	}
	a.URL, a.Status, a.Notes, a.UpdatedAt = url, status, notes, time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeStore) UpdateApplication(_ context.Context, id uuid.UUID, upd db.ApplicationUpdate) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return nil, fmt.Errorf("application not found: %s", id)
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.URL != nil {
		a.URL = *upd.URL
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.Notes != nil {
		a.Notes = *upd.Notes
	}
	if upd.ApplicationDate != nil {
		a.ApplicationDate = *upd.ApplicationDate
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeStore) DeleteApplication(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.applications[id]; !ok {
		return fmt.Errorf("application not found: %s", id)
	}
	delete(f.applications, id)
	return nil
}

func (f *fakeStore) UpsertResume(_ context.Context, r db.Resume) (*db.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	if existing, ok := f.resumes[r.UserID]; ok {
		r.ID, r.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		r.ID, r.CreatedAt = uuid.New(), now
	}
	r.UpdatedAt = now
	f.resumes[r.UserID] = &r
	cp := r
	return &cp, nil
}

func (f *fakeStore) GetResumeByUser(_ context.Context, userID uuid.UUID) (*db.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[userID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

// fixedAnalyzer returns a canned analysis for handler tests.
type fixedAnalyzer struct {
	analysis *types.Analysis
	err      error
}

func (f *fixedAnalyzer) Analyze(context.Context, string, string) (*types.Analysis, error) {
	return f.analysis, f.err
}

// newTestServer wires a Server around a fake store without a database.
func newTestServer(t *testing.T, store *fakeStore) *Server {
	t.Helper()

	passwordConfig := &config.PasswordConfig{BcryptCost: 4}
	jwtService := NewJWTService(&config.JWTConfig{Secret: "test-secret-key-for-tests", ExpirationHours: 1})
	userService := NewUserService(store, passwordConfig)

	return &Server{
		store:       store,
		resolver:    resolver.New(store),
		analyzer:    &fixedAnalyzer{analysis: &types.Analysis{MatchScore: 80, Recommendation: "good fit"}},
		jwtService:  jwtService,
		userService: userService,
		authHandler: NewAuthHandler(userService, jwtService),
	}
}

// seedUser registers a user directly through the service and returns its ID.
func seedUser(t *testing.T, s *Server, username string) uuid.UUID {
	t.Helper()
	user, err := s.userService.Register(context.Background(), &types.RegisterRequest{
		Username: username,
		Password: "password123",
	})
	require.NoError(t, err)
	return user.ID
}

// authedRequest builds a request carrying the user ID the way the auth
// middleware would.
func authedRequest(method, target string, body io.Reader, userID uuid.UUID) *http.Request {
	r := httptest.NewRequest(method, target, body)
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func TestHandleHealth(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["message"])

	store.pingErr = fmt.Errorf("connection refused")
	w = httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.NotEmpty(t, body["message"])
}
