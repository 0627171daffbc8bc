package types

import (
	"time"

	"github.com/google/uuid"
)

// ResumeMeta is the resume metadata returned by upload and GET /resume/me.
// The stored binary and full extracted text are never sent back; clients get
// a short content preview instead.
type ResumeMeta struct {
	ID             uuid.UUID `json:"id"`
	FileName       string    `json:"fileName"`
	FileType       string    `json:"fileType"`
	FileSize       int64     `json:"fileSize"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ContentPreview string    `json:"contentPreview"`
}

// AnalyzeRequest is the POST /resume/analyze body.
type AnalyzeRequest struct {
	JobDescription string `json:"jobDescription" validate:"required,min=1"`
}

// Analysis is the structured resume/job-description match report.
type Analysis struct {
	Improvements   []string `json:"improvements"`
	MatchingSkills []string `json:"matchingSkills"`
	MissingSkills  []string `json:"missingSkills"`
	MatchScore     int      `json:"matchScore"`
	Recommendation string   `json:"recommendation"`
}
