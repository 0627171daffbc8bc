package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a stored user account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Application represents one tracked job application owned by a user.
type Application struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	ApplicationDate time.Time `json:"application_date"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Resume represents a user's uploaded resume. At most one exists per user.
type Resume struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	Content      string    `json:"-"`
	OriginalFile []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// URLKey normalizes a destination URL for the (user, name, url) uniqueness
// key. Whitespace is trimmed and an absent URL maps to the empty string so
// the unique index never has to deal with NULLs.
func URLKey(rawURL string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(rawURL), "/"))
}
