package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/resolver"
	"github.com/jonathan/job-tracker/internal/server/middleware"
	"github.com/jonathan/job-tracker/internal/types"
)

// handleListCompanies returns all tracked applications for the authenticated
// user, most recent first.
func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	apps, err := s.store.ListApplications(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.ListApplicationsResponse{
		Success: true,
		Count:   len(apps),
		Data:    toAPIApplications(apps),
	})
}

// handleSaveCompany records a detected or manually entered application. The
// resolver decides whether the candidate updates an existing record or
// creates a new one; a new record answers 201, an updated one 200.
func (s *Server) handleSaveCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req types.SaveApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An absent date leaves the candidate's zero value so the resolver
	// defaults it to detection time.
	var appliedAt time.Time
	if req.ApplicationDate != nil {
		appliedAt = *req.ApplicationDate
	}

	record, created, err := s.resolver.Resolve(r.Context(), userID, resolver.Candidate{
		Name:            req.Name,
		URL:             req.URL,
		Status:          req.Status,
		Notes:           req.Notes,
		ApplicationDate: appliedAt,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	apiRecord := toAPIApplication(*record)
	s.jsonResponse(w, status, types.SaveApplicationResponse{
		Success: true,
		Data:    &apiRecord,
		IsNew:   created,
	})
}

// ownedApplication loads an application and verifies the requester owns it.
func (s *Server) ownedApplication(r *http.Request, userID uuid.UUID) (*db.Application, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a valid UUID"}
	}

	app, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, &ErrNotFound{Resource: "company record"}
	}
	if app.UserID != userID {
		return nil, &ErrNotOwner{}
	}
	return app, nil
}

// handleGetCompany returns a single application record.
func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	app, err := s.ownedApplication(r, userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "data": toAPIApplication(*app)})
}

// handleUpdateCompany applies a partial update to an application record.
func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	app, err := s.ownedApplication(r, userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	var req types.UpdateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status != "" && !types.ValidStatus(req.Status) {
		s.errorResponse(w, http.StatusBadRequest, "invalid status: "+req.Status)
		return
	}

	upd := db.ApplicationUpdate{
		URL:             req.URL,
		Notes:           req.Notes,
		ApplicationDate: req.ApplicationDate,
	}
	if req.Name != "" {
		upd.Name = &req.Name
	}
	if req.Status != "" {
		upd.Status = &req.Status
	}

	updated, err := s.store.UpdateApplication(r.Context(), app.ID, upd)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "data": toAPIApplication(*updated)})
}

// handleDeleteCompany deletes an application record.
func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	app, err := s.ownedApplication(r, userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	if err := s.store.DeleteApplication(r.Context(), app.ID); err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": "company record deleted"})
}
