package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const appColumns = `id, user_id, name, url, application_date, status, notes, created_at, updated_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.URL, &a.ApplicationDate,
		&a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return &a, nil
}

// ListApplications retrieves all applications owned by a user, most recent
// application first.
func (db *DB) ListApplications(ctx context.Context, userID uuid.UUID) ([]Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+appColumns+` FROM applications
		 WHERE user_id = $1
		 ORDER BY application_date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, nil
}

// GetApplication retrieves an application by ID. Returns nil when not found.
// Callers are responsible for checking UserID against the requester.
func (db *DB) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	return scanApplication(db.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1`, id))
}

// FindApplicationByNameURL retrieves a user's application matching both name
// and normalized URL key. Returns nil when not found.
func (db *DB) FindApplicationByNameURL(ctx context.Context, userID uuid.UUID, name, urlKey string) (*Application, error) {
	return scanApplication(db.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications
		 WHERE user_id = $1 AND name = $2 AND url_key = $3`,
		userID, name, urlKey))
}

// FindApplicationByName retrieves a user's most recent application with the
// given company name, regardless of URL. Returns nil when not found.
func (db *DB) FindApplicationByName(ctx context.Context, userID uuid.UUID, name string) (*Application, error) {
	return scanApplication(db.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications
		 WHERE user_id = $1 AND name = $2
		 ORDER BY application_date DESC
		 LIMIT 1`,
		userID, name))
}

// UpsertApplication inserts an application, or refreshes the row that already
// holds the (user_id, name, url_key) key. The original application_date is
// deliberately left untouched on conflict so the first-applied timestamp
// survives re-detections; the unique index makes concurrent saves of the same
// key converge on one row.
func (db *DB) UpsertApplication(ctx context.Context, a Application) (*Application, error) {
	return scanApplication(db.pool.QueryRow(ctx,
		`INSERT INTO applications (user_id, name, url, url_key, application_date, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, name, url_key) DO UPDATE SET
			url = EXCLUDED.url,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		 RETURNING `+appColumns,
		a.UserID, a.Name, a.URL, URLKey(a.URL), a.ApplicationDate, a.Status, a.Notes))
}

// RefreshApplication updates an existing application in place with freshly
// detected candidate fields. The stored application_date is preserved.
func (db *DB) RefreshApplication(ctx context.Context, id uuid.UUID, url, status, notes string) (*Application, error) {
	return scanApplication(db.pool.QueryRow(ctx,
		`UPDATE applications
		 SET url = $1, url_key = $2, status = $3, notes = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING `+appColumns,
		url, URLKey(url), status, notes, id))
}

// ApplicationUpdate holds optional fields for a partial update. Nil pointers
// leave the stored value unchanged.
type ApplicationUpdate struct {
	Name            *string
	URL             *string
	Status          *string
	Notes           *string
	ApplicationDate *time.Time
}

// UpdateApplication applies a partial update to an application.
func (db *DB) UpdateApplication(ctx context.Context, id uuid.UUID, upd ApplicationUpdate) (*Application, error) {
	query := `UPDATE applications SET updated_at = NOW()`
	args := []any{}
	argNum := 1

	if upd.Name != nil {
		query += fmt.Sprintf(", name = $%d", argNum)
		args = append(args, *upd.Name)
		argNum++
	}
	if upd.URL != nil {
		query += fmt.Sprintf(", url = $%d, url_key = $%d", argNum, argNum+1)
		args = append(args, *upd.URL, URLKey(*upd.URL))
		argNum += 2
	}
	if upd.Status != nil {
		query += fmt.Sprintf(", status = $%d", argNum)
		args = append(args, *upd.Status)
		argNum++
	}
	if upd.Notes != nil {
		query += fmt.Sprintf(", notes = $%d", argNum)
		args = append(args, *upd.Notes)
		argNum++
	}
	if upd.ApplicationDate != nil {
		query += fmt.Sprintf(", application_date = $%d", argNum)
		args = append(args, *upd.ApplicationDate)
		argNum++
	}

	query += fmt.Sprintf(" WHERE id = $%d RETURNING %s", argNum, appColumns)
	args = append(args, id)

	return scanApplication(db.pool.QueryRow(ctx, query, args...))
}

// DeleteApplication deletes an application by ID.
func (db *DB) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("application not found: %s", id)
	}
	return nil
}
