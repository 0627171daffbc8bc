package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const resumeColumns = `id, user_id, file_name, file_type, file_size, content, original_file, created_at, updated_at`

func scanResume(row pgx.Row) (*Resume, error) {
	var r Resume
	err := row.Scan(&r.ID, &r.UserID, &r.FileName, &r.FileType, &r.FileSize,
		&r.Content, &r.OriginalFile, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan resume: %w", err)
	}
	return &r, nil
}

// UpsertResume stores a user's resume, replacing any previous upload. The
// unique constraint on user_id enforces the one-resume-per-user invariant.
func (db *DB) UpsertResume(ctx context.Context, r Resume) (*Resume, error) {
	return scanResume(db.pool.QueryRow(ctx,
		`INSERT INTO resumes (user_id, file_name, file_type, file_size, content, original_file)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_type = EXCLUDED.file_type,
			file_size = EXCLUDED.file_size,
			content = EXCLUDED.content,
			original_file = EXCLUDED.original_file,
			updated_at = NOW()
		 RETURNING `+resumeColumns,
		r.UserID, r.FileName, r.FileType, r.FileSize, r.Content, r.OriginalFile))
}

// GetResumeByUser retrieves a user's resume. Returns nil when none uploaded.
func (db *DB) GetResumeByUser(ctx context.Context, userID uuid.UUID) (*Resume, error) {
	return scanResume(db.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1`, userID))
}
