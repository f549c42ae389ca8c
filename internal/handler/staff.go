package handler

import (
	"errors"
	"net/http"

	"github.com/divecrm/divecrm/internal/middleware"
	"github.com/divecrm/divecrm/internal/repository"
	"github.com/divecrm/divecrm/internal/service"
)

// ListStaff returns every staff account
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	users, err := h.authSvc.ListStaff(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("staff list failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list staff")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"staff": users})
}

// CreateStaffRequest represents a new staff account request
type CreateStaffRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// CreateStaff registers a new staff account
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Username and password are required")
		return
	}

	u, err := h.authSvc.CreateStaff(r.Context(), req.Username, req.Password, req.IsAdmin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "username_taken", "This username is already in use")
		case errors.Is(err, service.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, "password_too_weak", "The password is too short")
		default:
			h.log.Error().Err(err).Msg("staff create failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create staff account")
		}
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// DeleteStaff removes a staff account
func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == middleware.GetUserID(r.Context()) {
		writeError(w, http.StatusBadRequest, "validation_error", "You cannot delete your own account")
		return
	}

	if err := h.authSvc.DeleteStaff(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found", "Staff account not found")
			return
		}
		h.log.Error().Err(err).Msg("staff delete failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete staff account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Staff account deleted"})
}
