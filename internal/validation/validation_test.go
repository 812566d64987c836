package validation

import (
	"strings"
	"testing"
)

type registerRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	OrgName  string `validate:"required"`
}

func TestStructValid(t *testing.T) {
	req := registerRequest{
		Email:    "owner@example.com",
		Password: "supersecret",
		OrgName:  "Acme GmbH",
	}
	if err := Struct(req); err != nil {
		t.Errorf("Expected valid struct, got error: %v", err)
	}
}

func TestStructMissingFields(t *testing.T) {
	err := Struct(registerRequest{})
	if err == nil {
		t.Fatal("Expected error for empty struct")
	}
	if !strings.Contains(err.Error(), "Email is required") {
		t.Errorf("Expected email error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Password is required") {
		t.Errorf("Expected password error, got: %v", err)
	}
}

func TestStructInvalidEmail(t *testing.T) {
	req := registerRequest{Email: "not-an-email", Password: "supersecret", OrgName: "Acme"}
	err := Struct(req)
	if err == nil {
		t.Fatal("Expected error for invalid email")
	}
	if !strings.Contains(err.Error(), "must be a valid email") {
		t.Errorf("Expected email format error, got: %v", err)
	}
}

func TestStructShortPassword(t *testing.T) {
	req := registerRequest{Email: "owner@example.com", Password: "short", OrgName: "Acme"}
	err := Struct(req)
	if err == nil {
		t.Fatal("Expected error for short password")
	}
	if !strings.Contains(err.Error(), "at least 8") {
		t.Errorf("Expected min length error, got: %v", err)
	}
}

func TestVar(t *testing.T) {
	if err := Var("draft", "oneof=draft in_progress completed reviewed"); err != nil {
		t.Errorf("Expected valid status, got: %v", err)
	}
	if err := Var("bogus", "oneof=draft in_progress completed reviewed"); err == nil {
		t.Error("Expected error for unknown status")
	}
}
