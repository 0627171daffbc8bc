package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/pdftext"
	"github.com/jonathan/job-tracker/internal/server/middleware"
	"github.com/jonathan/job-tracker/internal/types"
)

const (
	maxResumeSize  = 5 << 20 // 5MB
	previewLength  = 300
	pdfContentType = "application/pdf"
)

// contentPreview truncates extracted text for API responses, cutting on a
// rune boundary so multi-byte characters are never split.
func contentPreview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= previewLength {
		return text
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func toResumeMeta(res *db.Resume) *types.ResumeMeta {
	return &types.ResumeMeta{
		ID:             res.ID,
		FileName:       res.FileName,
		FileType:       res.FileType,
		FileSize:       res.FileSize,
		UpdatedAt:      res.UpdatedAt,
		ContentPreview: contentPreview(res.Content),
	}
}

// handleUploadResume accepts a PDF resume as multipart form data under the
// "resumeFile" field, extracts its text, and stores both. A second upload
// replaces the user's existing resume.
func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize+4096)
	if err := r.ParseMultipartForm(maxResumeSize); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to parse upload: file may exceed the 5MB limit")
		return
	}

	file, header, err := r.FormFile("resumeFile")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "missing resumeFile field")
		return
	}
	defer file.Close()

	if header.Size > maxResumeSize {
		s.errorResponse(w, http.StatusBadRequest, "resume exceeds the 5MB limit")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read resume file")
		return
	}

	if !pdftext.IsPDF(data) {
		s.errorResponse(w, http.StatusBadRequest, "only PDF resumes are supported")
		return
	}

	text, err := pdftext.Extract(data)
	if err != nil {
		log.Printf("[resume] text extraction failed for %s: %v", header.Filename, err)
		s.errorResponse(w, http.StatusUnprocessableEntity, "could not extract text from PDF")
		return
	}

	stored, err := s.store.UpsertResume(r.Context(), db.Resume{
		UserID:       userID,
		FileName:     header.Filename,
		FileType:     pdfContentType,
		FileSize:     int64(len(data)),
		Content:      text,
		OriginalFile: data,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "resume": toResumeMeta(stored)})
}

// handleGetResume returns the authenticated user's resume metadata.
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	res, err := s.store.GetResumeByUser(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if res == nil {
		s.errorResponse(w, http.StatusNotFound, "no resume uploaded")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "resume": toResumeMeta(res)})
}

// handleAnalyzeResume compares the stored resume against a job description.
func (s *Server) handleAnalyzeResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req types.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.authHandler.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	res, err := s.store.GetResumeByUser(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if res == nil {
		s.errorResponse(w, http.StatusNotFound, "resume not found: upload a resume before requesting analysis")
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), res.Content, req.JobDescription)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "analysis": analysis})
}
