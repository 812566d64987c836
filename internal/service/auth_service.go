package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"audithub/internal/auth"
	"audithub/internal/models"
	"audithub/internal/repository"

	"github.com/google/uuid"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	orgRepo     *repository.OrganizationRepository
	roleRepo    *repository.RoleRepository
	sessionRepo *repository.SessionRepository
	authService *auth.Service
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *repository.UserRepository,
	orgRepo *repository.OrganizationRepository,
	roleRepo *repository.RoleRepository,
	sessionRepo *repository.SessionRepository,
	authService *auth.Service,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		orgRepo:     orgRepo,
		roleRepo:    roleRepo,
		sessionRepo: sessionRepo,
		authService: authService,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL-safe slug from an organization name
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Register creates a new organization with its owner account
func (s *AuthService) Register(orgName, email, password, firstName, lastName string) (*models.User, error) {
	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	slug := slugify(orgName)
	if slug == "" {
		return nil, fmt.Errorf("%w: organization name is empty", ErrInvalidInput)
	}
	existingOrg, err := s.orgRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existingOrg != nil {
		return nil, fmt.Errorf("%w: organization name already taken", ErrConflict)
	}

	passwordHash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{Name: orgName, Slug: slug}
	if err := s.orgRepo.Create(org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	user := &models.User{
		OrganizationID: org.ID,
		Email:          email,
		PasswordHash:   passwordHash,
		FirstName:      firstName,
		LastName:       lastName,
		IsActive:       true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// The first user of an organization is its owner
	ownerRole, err := s.roleRepo.GetByName("owner")
	if err != nil {
		return nil, err
	}
	if ownerRole != nil {
		if err := s.userRepo.AssignRole(user.ID, ownerRole.ID); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// AddUser creates an employee account within an existing organization
func (s *AuthService) AddUser(orgID uint, email, password, firstName, lastName, roleName string) (*models.User, error) {
	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	passwordHash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		OrganizationID: orgID,
		Email:          email,
		PasswordHash:   passwordHash,
		FirstName:      firstName,
		LastName:       lastName,
		IsActive:       true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if roleName == "" {
		roleName = "employee"
	}
	role, err := s.roleRepo.GetByName(roleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("%w: role %s", ErrNotFound, roleName)
	}
	if err := s.userRepo.AssignRole(user.ID, role.ID); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and returns token material for the user
func (s *AuthService) Login(email, password string) (accessToken, refreshToken, accessJTI, refreshJTI string, user *models.User, err error) {
	user, err = s.userRepo.GetByEmail(email)
	if err != nil {
		return "", "", "", "", nil, err
	}
	if user == nil {
		return "", "", "", "", nil, fmt.Errorf("%w: invalid credentials", ErrPermissionDenied)
	}
	if !user.IsActive {
		return "", "", "", "", nil, fmt.Errorf("%w: account is deactivated", ErrPermissionDenied)
	}

	if err := s.authService.VerifyPassword(user.PasswordHash, password); err != nil {
		return "", "", "", "", nil, fmt.Errorf("%w: invalid credentials", ErrPermissionDenied)
	}

	accessToken, refreshToken, accessJTI, refreshJTI, err = s.GenerateTokensForUser(user)
	if err != nil {
		return "", "", "", "", nil, err
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		return "", "", "", "", nil, err
	}

	return accessToken, refreshToken, accessJTI, refreshJTI, user, nil
}

// GenerateTokensForUser generates a fresh access and refresh token pair
func (s *AuthService) GenerateTokensForUser(user *models.User) (accessToken, refreshToken, accessJTI, refreshJTI string, err error) {
	accessToken, accessJTI, err = s.authService.GenerateToken(user.ID, user.OrganizationID, user.Email)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, refreshJTI, err = s.authService.GenerateRefreshToken(user.ID, user.OrganizationID, user.Email)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return accessToken, refreshToken, accessJTI, refreshJTI, nil
}

// GenerateSessionID generates an ID grouping the tokens of one login
func (s *AuthService) GenerateSessionID() string {
	return uuid.NewString()
}

// CreateSession persists a session row for one token
func (s *AuthService) CreateSession(userID uint, sessionID, jti, tokenType, ipAddress, userAgent string, expiresAt time.Time) error {
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		JTI:       jti,
		TokenType: tokenType,
		ExpiresAt: expiresAt,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	return s.sessionRepo.Create(session)
}

// RefreshToken validates a refresh token and rotates the session
func (s *AuthService) RefreshToken(refreshToken, ipAddress, userAgent string, accessExpiry, refreshExpiry time.Duration) (newAccess, newRefresh string, user *models.User, err error) {
	claims, err := s.authService.ValidateToken(refreshToken)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: invalid refresh token", ErrPermissionDenied)
	}

	session, err := s.sessionRepo.GetByJTI(claims.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: session not found", ErrPermissionDenied)
	}
	if session.TokenType != "refresh" {
		return "", "", nil, fmt.Errorf("%w: not a refresh token", ErrPermissionDenied)
	}

	user, err = s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return "", "", nil, err
	}
	if user == nil || !user.IsActive {
		return "", "", nil, fmt.Errorf("%w: account is deactivated", ErrPermissionDenied)
	}

	// Rotate: drop the whole login's sessions, then issue a fresh pair
	if err := s.sessionRepo.DeleteBySessionID(session.SessionID); err != nil {
		return "", "", nil, err
	}

	newAccess, newRefresh, accessJTI, refreshJTI, err := s.GenerateTokensForUser(user)
	if err != nil {
		return "", "", nil, err
	}

	sessionID := s.GenerateSessionID()
	now := time.Now()
	if err := s.CreateSession(user.ID, sessionID, accessJTI, "access", ipAddress, userAgent, now.Add(accessExpiry)); err != nil {
		return "", "", nil, err
	}
	if err := s.CreateSession(user.ID, sessionID, refreshJTI, "refresh", ipAddress, userAgent, now.Add(refreshExpiry)); err != nil {
		return "", "", nil, err
	}

	return newAccess, newRefresh, user, nil
}

// Logout invalidates the current login's sessions based on the presented token
func (s *AuthService) Logout(token string) error {
	jti, err := s.authService.ExtractJTI(token)
	if err != nil {
		return err
	}

	session, err := s.sessionRepo.GetByJTI(jti)
	if err != nil {
		// Session already gone; treat logout as idempotent
		return nil
	}

	return s.sessionRepo.DeleteBySessionID(session.SessionID)
}

// UpdateProfile changes a user's display fields
func (s *AuthService) UpdateProfile(userID uint, firstName, lastName string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if firstName != "" {
		user.FirstName = firstName
	}
	if lastName != "" {
		user.LastName = lastName
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password and sets a new one.
// All other sessions of the user are invalidated.
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err := s.authService.VerifyPassword(user.PasswordHash, currentPassword); err != nil {
		return fmt.Errorf("%w: current password is wrong", ErrPermissionDenied)
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(userID, hash); err != nil {
		return err
	}
	return s.sessionRepo.DeleteAllUserSessions(userID)
}

// SetUserActive enables or disables an account within the caller's organization
func (s *AuthService) SetUserActive(userID, orgID uint, active bool) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.OrganizationID != orgID {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	user.IsActive = active
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	if !active {
		// Deactivation kills all live sessions
		if err := s.sessionRepo.DeleteAllUserSessions(userID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// ListUsers returns the users of an organization
func (s *AuthService) ListUsers(orgID uint, limit, offset int) ([]models.User, int, error) {
	users, err := s.userRepo.GetByOrganization(orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.userRepo.CountByOrganization(orgID)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

// GetUserRoles retrieves the role names of a user
func (s *AuthService) GetUserRoles(userID uint) ([]string, error) {
	roles, err := s.userRepo.GetUserRoles(userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names, nil
}
