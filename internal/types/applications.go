package types

import (
	"time"

	"github.com/google/uuid"
)

// Application statuses. New records default to StatusApplied.
const (
	StatusApplied    = "applied"
	StatusInterview  = "interview"
	StatusOffer      = "offer"
	StatusRejected   = "rejected"
	StatusNoResponse = "no_response"
)

// ValidStatus reports whether s is one of the known application statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusApplied, StatusInterview, StatusOffer, StatusRejected, StatusNoResponse:
		return true
	}
	return false
}

// Application represents one tracked job application.
type Application struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"-"`
	Name            string    `json:"name"`
	URL             string    `json:"url,omitempty"`
	ApplicationDate time.Time `json:"applicationDate"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SaveApplicationRequest is the POST /companies body: a detected (or manually
// entered) application candidate.
type SaveApplicationRequest struct {
	Name            string     `json:"name" validate:"required,min=1"`
	URL             string     `json:"url,omitempty"`
	Status          string     `json:"status,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	ApplicationDate *time.Time `json:"applicationDate,omitempty"`
}

// UpdateApplicationRequest is the PUT /companies/{id} body; all fields are
// optional partial updates.
type UpdateApplicationRequest struct {
	Name            string     `json:"name,omitempty"`
	URL             *string    `json:"url,omitempty"`
	Status          string     `json:"status,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	ApplicationDate *time.Time `json:"applicationDate,omitempty"`
}

// SaveApplicationResponse is returned by POST /companies.
type SaveApplicationResponse struct {
	Success bool         `json:"success"`
	Data    *Application `json:"data"`
	IsNew   bool         `json:"isNew"`
}

// ListApplicationsResponse is returned by GET /companies.
type ListApplicationsResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Data    []Application `json:"data"`
}
