package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgUserIDNotFound     = "User ID not found"
	ErrMsgInvalidAuditID     = "Invalid audit ID"
	ErrMsgInvalidTemplateID  = "Invalid template ID"
)

// API path constants
const (
	AuthAPIBasePath = "/api/v1/auth"
)

// Role name constants
const (
	RoleOwner    = "owner"
	RoleEmployee = "employee"
)
