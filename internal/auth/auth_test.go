package auth

import (
	"testing"
	"time"

	"audithub/internal/config"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        24 * time.Hour,
		RefreshExpiration: 168 * time.Hour,
	}
}

func TestHashPassword(t *testing.T) {
	svc := NewService(testConfig())

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	if hash == password {
		t.Error("Hash should not equal the original password")
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := NewService(testConfig())

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	// Test correct password
	err = svc.VerifyPassword(hash, password)
	if err != nil {
		t.Errorf("Should verify correct password, got error: %v", err)
	}

	// Test incorrect password
	err = svc.VerifyPassword(hash, "wrongpassword")
	if err == nil {
		t.Error("Should not verify incorrect password")
	}
}

func TestGenerateToken(t *testing.T) {
	svc := NewService(testConfig())

	token, jti, err := svc.GenerateToken(1, 1, "test@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("Token should not be empty")
	}
	if jti == "" {
		t.Error("JTI should not be empty")
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewService(testConfig())

	userID := uint(42)
	orgID := uint(7)
	email := "auditor@example.com"

	token, jti, err := svc.GenerateToken(userID, orgID, email)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected user ID %d, got %d", userID, claims.UserID)
	}
	if claims.OrganizationID != orgID {
		t.Errorf("Expected organization ID %d, got %d", orgID, claims.OrganizationID)
	}
	if claims.Email != email {
		t.Errorf("Expected email %s, got %s", email, claims.Email)
	}
	if claims.ID != jti {
		t.Errorf("Expected JTI %s, got %s", jti, claims.ID)
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	svc := NewService(testConfig())

	_, err := svc.ValidateToken("not-a-token")
	if err == nil {
		t.Error("Should reject a malformed token")
	}

	// Token signed by a different key pair must be rejected
	other := NewService(testConfig())
	token, _, err := other.GenerateToken(1, 1, "test@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Should reject a token signed with a different key")
	}
}

func TestExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.Expiration = -1 * time.Hour
	svc := NewService(cfg)

	token, _, err := svc.GenerateToken(1, 1, "test@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Should reject an expired token")
	}
}

func TestExtractJTI(t *testing.T) {
	cfg := testConfig()
	cfg.Expiration = -1 * time.Hour
	svc := NewService(cfg)

	// JTI extraction must work even for expired tokens (logout path)
	token, jti, err := svc.GenerateToken(1, 1, "test@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	extracted, err := svc.ExtractJTI(token)
	if err != nil {
		t.Fatalf("Failed to extract JTI: %v", err)
	}
	if extracted != jti {
		t.Errorf("Expected JTI %s, got %s", jti, extracted)
	}
}

func TestGenerateRandomToken(t *testing.T) {
	first, err := GenerateRandomToken(16)
	if err != nil {
		t.Fatalf("Failed to generate random token: %v", err)
	}
	second, err := GenerateRandomToken(16)
	if err != nil {
		t.Fatalf("Failed to generate random token: %v", err)
	}

	if first == second {
		t.Error("Random tokens should not repeat")
	}
}
