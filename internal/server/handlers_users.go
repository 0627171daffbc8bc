package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/server/middleware"
	"github.com/jonathan/job-tracker/internal/types"
)

func toAPIApplication(a db.Application) types.Application {
	return types.Application{
		ID:              a.ID,
		UserID:          a.UserID,
		Name:            a.Name,
		URL:             a.URL,
		ApplicationDate: a.ApplicationDate,
		Status:          a.Status,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toAPIApplications(apps []db.Application) []types.Application {
	out := make([]types.Application, 0, len(apps))
	for _, a := range apps {
		out = append(out, toAPIApplication(a))
	}
	return out
}

// handleGetProfile returns the authenticated user's profile together with
// their tracked applications.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := s.userService.GetProfile(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	apps, err := s.store.ListApplications(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.ProfileResponse{
		Success: true,
		User:    user,
		Records: toAPIApplications(apps),
	})
}

// handleUpdateProfile updates the authenticated user's name, email, or
// password.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req types.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.authHandler.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	user, err := s.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	// Credentials may have changed, so a fresh token is issued with the
	// update response.
	token, err := s.jwtService.GenerateToken(user.ID, user.Username)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.AuthResponse{
		Success: true,
		Token:   token,
		User:    user,
	})
}
