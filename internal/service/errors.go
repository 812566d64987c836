package service

import "errors"

// Domain errors shared across services. Handlers map these to HTTP status
// codes instead of matching on message strings.
var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAuditIncomplete   = errors.New("audit has unanswered questions")
	ErrAuditLocked       = errors.New("audit is completed and locked")
	ErrStaleRevision     = errors.New("answer was modified by someone else")
	ErrInvalidInput      = errors.New("invalid input")
)
