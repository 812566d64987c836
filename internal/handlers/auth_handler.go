package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"audithub/internal/config"
	"audithub/internal/middleware"
	"audithub/internal/models"
	"audithub/internal/service"
	"audithub/internal/validation"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
	activityMw  *middleware.ActivityMiddleware
	config      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, activityMw *middleware.ActivityMiddleware, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		activityMw:  activityMw,
		config:      cfg,
	}
}

// RegisterRequest represents a registration request. Registration
// creates an organization and its owner account in one step.
type RegisterRequest struct {
	OrganizationName string `json:"organization_name" validate:"required,min=2,max=255"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	FirstName        string `json:"first_name" validate:"required"`
	LastName         string `json:"last_name" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Register handles organization registration
// @Summary Register a new organization
// @Description Create a new organization with its owner account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} map[string]interface{} "Registration successful"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Email or organization already taken"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.config.App.EnableRegistration {
		respondWithError(w, http.StatusForbidden, "Registration is disabled")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(req.OrganizationName, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		slog.Error("Registration failed", "email", req.Email, "error", err)
		_ = h.activityMw.LogAction(nil, "user.register.error", "users", "Registration failed for "+req.Email, getIP(r), r.UserAgent())
		respondWithServiceError(w, err)
		return
	}

	slog.Info("Organization registered", "user_id", user.ID, "organization_id", user.OrganizationID, "email", user.Email)
	_ = h.activityMw.LogAction(&user.ID, "user.register", "users", "Organization and owner registered", getIP(r), r.UserAgent())

	// Auto-login after registration
	h.issueTokens(w, r, user, http.StatusCreated)
}

// Login handles user login
// @Summary User login
// @Description Authenticate user and return JWT tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{} "Login successful with tokens"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, accessJTI, refreshJTI, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Email, "error", err, "ip", getIP(r))
		_ = h.activityMw.LogAction(nil, "user.login.failed", "users", "Failed login attempt for "+req.Email, getIP(r), r.UserAgent())
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	slog.Info("User logged in", "user_id", user.ID, "email", user.Email, "ip", getIP(r))
	_ = h.activityMw.LogAction(&user.ID, "user.login", "users", "User logged in", getIP(r), r.UserAgent())

	sessionID := h.authService.GenerateSessionID()
	now := time.Now()
	if err := h.authService.CreateSession(user.ID, sessionID, refreshJTI, "refresh", getIP(r), r.UserAgent(), now.Add(h.config.JWT.RefreshExpiration)); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	_ = h.authService.CreateSession(user.ID, sessionID, accessJTI, "access", getIP(r), r.UserAgent(), now.Add(h.config.JWT.Expiration))

	h.setRefreshCookie(w, r, refreshToken)
	h.respondWithTokens(w, http.StatusOK, accessToken, refreshToken, user.ID)
}

// Refresh handles token refresh
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest false "Refresh token (also read from cookie)"
// @Success 200 {object} map[string]interface{} "New token pair"
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		// Fall back to the HTTP-only cookie
		if cookie, err := r.Cookie("refresh_token"); err == nil {
			refreshToken = cookie.Value
		}
	}
	if refreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "Missing refresh token")
		return
	}

	newAccess, newRefresh, user, err := h.authService.RefreshToken(refreshToken, getIP(r), r.UserAgent(), h.config.JWT.Expiration, h.config.JWT.RefreshExpiration)
	if err != nil {
		slog.Warn("Token refresh failed", "error", err, "ip", getIP(r))
		respondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	_ = h.activityMw.LogAction(&user.ID, "user.token.refresh", "users", "Tokens refreshed", getIP(r), r.UserAgent())

	h.setRefreshCookie(w, r, newRefresh)
	h.respondWithTokens(w, http.StatusOK, newAccess, newRefresh, user.ID)
}

// Logout handles user logout
// @Summary User logout
// @Description Invalidate the current session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logged out"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		if err := h.authService.Logout(parts[1]); err != nil {
			slog.Warn("Logout failed", "error", err)
		}
	}

	if userID, ok := middleware.GetUserID(r); ok {
		_ = h.activityMw.LogAction(&userID, "user.logout", "users", "User logged out", getIP(r), r.UserAgent())
	}

	// Clear the refresh token cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     AuthAPIBasePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, user *models.User, code int) {
	accessToken, refreshToken, accessJTI, refreshJTI, err := h.authService.GenerateTokensForUser(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	sessionID := h.authService.GenerateSessionID()
	now := time.Now()
	if err := h.authService.CreateSession(user.ID, sessionID, refreshJTI, "refresh", getIP(r), r.UserAgent(), now.Add(h.config.JWT.RefreshExpiration)); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	_ = h.authService.CreateSession(user.ID, sessionID, accessJTI, "access", getIP(r), r.UserAgent(), now.Add(h.config.JWT.Expiration))

	h.setRefreshCookie(w, r, refreshToken)
	h.respondWithTokens(w, code, accessToken, refreshToken, user.ID)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, r *http.Request, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     AuthAPIBasePath,
		MaxAge:   int(h.config.JWT.RefreshExpiration.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, code int, accessToken, refreshToken string, userID uint) {
	user, err := h.authService.GetUserByID(userID)
	if err != nil || user == nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	roles, _ := h.authService.GetUserRoles(user.ID)

	respondWithJSON(w, code, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.config.JWT.Expiration.Seconds()),
		"user": map[string]interface{}{
			"id":              user.ID,
			"organization_id": user.OrganizationID,
			"email":           user.Email,
			"first_name":      user.FirstName,
			"last_name":       user.LastName,
			"is_active":       user.IsActive,
			"last_login_at":   user.LastLoginAt,
			"created_at":      user.CreatedAt,
			"updated_at":      user.UpdatedAt,
			"roles":           roles,
		},
	})
}
