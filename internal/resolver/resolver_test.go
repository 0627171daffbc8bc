package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store used in place of Postgres.
type memStore struct {
	apps map[uuid.UUID]*db.Application
}

func newMemStore() *memStore {
	return &memStore{apps: make(map[uuid.UUID]*db.Application)}
}

func (s *memStore) FindApplicationByNameURL(_ context.Context, userID uuid.UUID, name, urlKey string) (*db.Application, error) {
	for _, a := range s.apps {
		if a.UserID == userID && a.Name == name && db.URLKey(a.URL) == urlKey {
			return a, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindApplicationByName(_ context.Context, userID uuid.UUID, name string) (*db.Application, error) {
	var best *db.Application
	for _, a := range s.apps {
		if a.UserID == userID && a.Name == name {
			if best == nil || a.ApplicationDate.After(best.ApplicationDate) {
				best = a
			}
		}
	}
	return best, nil
}

func (s *memStore) UpsertApplication(_ context.Context, a db.Application) (*db.Application, error) {
	for _, existing := range s.apps {
		if existing.UserID == a.UserID && existing.Name == a.Name && db.URLKey(existing.URL) == db.URLKey(a.URL) {
			existing.URL = a.URL
			existing.Status = a.Status
			existing.Notes = a.Notes
			return existing, nil
		}
	}
	stored := a
	stored.ID = uuid.New()
	s.apps[stored.ID] = &stored
	return &stored, nil
}

func (s *memStore) RefreshApplication(_ context.Context, id uuid.UUID, url, status, notes string) (*db.Application, error) {
	a, ok := s.apps[id]
	if !ok {
		return nil, nil
	}
	a.URL = url
	a.Status = status
	a.Notes = notes
	return a, nil
}

func (s *memStore) count() int { return len(s.apps) }

func TestResolve_MissingName(t *testing.T) {
	r := New(newMemStore())

	_, _, err := r.Resolve(context.Background(), uuid.New(), Candidate{Name: "   "})
	assert.ErrorIs(t, err, ErrMissingName)
}

func TestResolve_InvalidStatus(t *testing.T) {
	r := New(newMemStore())

	_, _, err := r.Resolve(context.Background(), uuid.New(), Candidate{Name: "Acme", Status: "ghosted"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestResolve_Idempotent(t *testing.T) {
	store := newMemStore()
	r := New(store)
	userID := uuid.New()
	c := Candidate{Name: "Globex", URL: "https://globex.example/job/1"}

	first, created, err := r.Resolve(context.Background(), userID, c)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := r.Resolve(context.Background(), userID, c)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.count())
}

func TestResolve_DistinctPostingsSameCompany(t *testing.T) {
	store := newMemStore()
	r := New(store)
	userID := uuid.New()

	a, created, err := r.Resolve(context.Background(), userID, Candidate{Name: "Acme", URL: "https://acme.example/job/1"})
	require.NoError(t, err)
	assert.True(t, created)

	b, created, err := r.Resolve(context.Background(), userID, Candidate{Name: "Acme", URL: "https://acme.example/job/2"})
	require.NoError(t, err)
	assert.True(t, created)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, store.count())
}

func TestResolve_PreservesFirstApplicationDate(t *testing.T) {
	store := newMemStore()
	r := New(store)
	userID := uuid.New()
	d1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d2 := d1.Add(48 * time.Hour)

	_, _, err := r.Resolve(context.Background(), userID, Candidate{
		Name: "Initech", URL: "https://initech.example/careers/7", ApplicationDate: d1,
	})
	require.NoError(t, err)

	rec, created, err := r.Resolve(context.Background(), userID, Candidate{
		Name: "Initech", URL: "https://initech.example/careers/7", ApplicationDate: d2,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, d1, rec.ApplicationDate)
}

func TestResolve_NoURLMatchesByNameAlone(t *testing.T) {
	store := newMemStore()
	r := New(store)
	userID := uuid.New()

	a, _, err := r.Resolve(context.Background(), userID, Candidate{Name: "Hooli", URL: "https://hooli.example/jobs/1"})
	require.NoError(t, err)

	b, created, err := r.Resolve(context.Background(), userID, Candidate{Name: "Hooli", Status: types.StatusInterview})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, types.StatusInterview, b.Status)
	// An update without a URL keeps the stored one.
	assert.Equal(t, "https://hooli.example/jobs/1", b.URL)
}

func TestResolve_DefaultsStatusAndDate(t *testing.T) {
	store := newMemStore()
	r := New(store)

	rec, created, err := r.Resolve(context.Background(), uuid.New(), Candidate{Name: "Vandelay"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, types.StatusApplied, rec.Status)
	assert.WithinDuration(t, time.Now(), rec.ApplicationDate, 5*time.Second)
}

func TestResolve_ScopedPerUser(t *testing.T) {
	store := newMemStore()
	r := New(store)
	alice := uuid.New()
	bob := uuid.New()
	c := Candidate{Name: "Globex", URL: "https://globex.example/job/1"}

	_, created, err := r.Resolve(context.Background(), alice, c)
	require.NoError(t, err)
	assert.True(t, created)

	// The same candidate from a different user never matches alice's record.
	_, created, err = r.Resolve(context.Background(), bob, c)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, store.count())
}
