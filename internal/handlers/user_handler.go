package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"audithub/internal/middleware"
	"audithub/internal/service"
	"audithub/internal/validation"
)

// UserHandler handles user profile and management requests
type UserHandler struct {
	authService *service.AuthService
	activityMw  *middleware.ActivityMiddleware
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *service.AuthService, activityMw *middleware.ActivityMiddleware) *UserHandler {
	return &UserHandler{authService: authService, activityMw: activityMw}
}

// UpdateProfileRequest represents a profile update
type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// CreateUserRequest represents a new employee account
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"omitempty,oneof=owner employee"`
}

// SetActiveRequest toggles an account's active flag
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// GetProfile returns the authenticated user's profile
// @Summary Get own profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/me [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUserIDNotFound)
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil || user == nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	roles, _ := h.authService.GetUserRoles(userID)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"roles": roles,
	})
}

// UpdateProfile updates the authenticated user's profile
// @Summary Update own profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /users/me [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUserIDNotFound)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.authService.UpdateProfile(userID, req.FirstName, req.LastName)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// ChangePassword changes the authenticated user's password
// @Summary Change own password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Password change"
// @Success 200 {object} map[string]string "Password changed"
// @Failure 403 {object} map[string]string "Wrong current password"
// @Router /users/me/password [put]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUserIDNotFound)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.activityMw.LogAction(&userID, "user.password.change", "users", "Password changed", getIP(r), r.UserAgent())
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// ListUsers lists the organization's users (owner only)
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	limit, offset := parsePagination(r)
	users, total, err := h.authService.ListUsers(orgID, limit, offset)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// CreateUser adds an employee to the organization (owner only)
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "New user"
// @Success 201 {object} models.User
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.AddUser(orgID, req.Email, req.Password, req.FirstName, req.LastName, req.Role)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	slog.Info("User created", "user_id", user.ID, "organization_id", orgID)
	if creatorID, ok := middleware.GetUserID(r); ok {
		_ = h.activityMw.LogAction(&creatorID, "user.create", "users", "Created user "+user.Email, getIP(r), r.UserAgent())
	}
	respondWithJSON(w, http.StatusCreated, user)
}

// SetActive enables or disables a user account (owner only)
// @Summary Activate or deactivate user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body SetActiveRequest true "Active flag"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id}/active [put]
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	userID, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.authService.SetUserActive(userID, orgID, req.IsActive)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if actorID, ok := middleware.GetUserID(r); ok {
		action := "user.activate"
		if !req.IsActive {
			action = "user.deactivate"
		}
		_ = h.activityMw.LogAction(&actorID, action, "users", "Changed active flag for "+user.Email, getIP(r), r.UserAgent())
	}
	respondWithJSON(w, http.StatusOK, user)
}
