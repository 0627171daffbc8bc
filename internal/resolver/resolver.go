// Package resolver decides whether a detected application event updates an
// existing record or creates a new one.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/types"
)

// ErrMissingName indicates a candidate without a company name.
var ErrMissingName = errors.New("company name is required")

// ErrInvalidStatus indicates a candidate with an unknown status value.
var ErrInvalidStatus = errors.New("invalid application status")

// Store is the subset of the application store the resolver needs.
type Store interface {
	FindApplicationByNameURL(ctx context.Context, userID uuid.UUID, name, urlKey string) (*db.Application, error)
	FindApplicationByName(ctx context.Context, userID uuid.UUID, name string) (*db.Application, error)
	UpsertApplication(ctx context.Context, a db.Application) (*db.Application, error)
	RefreshApplication(ctx context.Context, id uuid.UUID, url, status, notes string) (*db.Application, error)
}

// Candidate is a detected "applied to company" event to be reconciled against
// the caller's existing records.
type Candidate struct {
	Name            string
	URL             string
	Status          string
	Notes           string
	ApplicationDate time.Time
}

// Resolver reconciles candidates against a user's owned application records.
// All matching is scoped to the calling user; other users' records are never
// visible here.
type Resolver struct {
	store Store
	locks *userLocks
}

// New creates a Resolver over the given store.
func New(store Store) *Resolver {
	return &Resolver{
		store: store,
		locks: newUserLocks(),
	}
}

// Resolve applies the dedup/upsert rules:
//
//  1. A record matching (name, url), or name alone when the candidate has no
//     URL, is updated in place, keeping its original application date.
//  2. A same-name record with a different URL counts as a distinct
//     application (a second posting); a new record is created.
//  3. Otherwise a new record is created.
//
// It returns the resulting record and whether it was newly created. The
// per-user lock serializes the read-modify-write against concurrent requests
// from the same user; across processes the (user_id, name, url_key) unique
// index keeps duplicate saves converging on a single row.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, c Candidate) (*db.Application, bool, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil, false, ErrMissingName
	}

	status := c.Status
	if status == "" {
		status = types.StatusApplied
	}
	if !types.ValidStatus(status) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}

	appliedAt := c.ApplicationDate
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}

	unlock := r.locks.lock(userID)
	defer unlock()

	var existing *db.Application
	var err error
	urlKey := db.URLKey(c.URL)
	if urlKey != "" {
		existing, err = r.store.FindApplicationByNameURL(ctx, userID, name, urlKey)
	} else {
		existing, err = r.store.FindApplicationByName(ctx, userID, name)
	}
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		url := c.URL
		if strings.TrimSpace(url) == "" {
			url = existing.URL
		}
		notes := c.Notes
		if notes == "" {
			notes = existing.Notes
		}
		updated, err := r.store.RefreshApplication(ctx, existing.ID, url, status, notes)
		if err != nil {
			return nil, false, err
		}
		return updated, false, nil
	}

	created, err := r.store.UpsertApplication(ctx, db.Application{
		UserID:          userID,
		Name:            name,
		URL:             strings.TrimSpace(c.URL),
		ApplicationDate: appliedAt,
		Status:          status,
		Notes:           c.Notes,
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}
