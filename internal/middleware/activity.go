package middleware

import (
	"database/sql"
	"net/http"

	"audithub/internal/models"
	"audithub/internal/repository"
)

// ActivityMiddleware records security-relevant actions
type ActivityMiddleware struct {
	activityRepo *repository.ActivityLogRepository
}

// NewActivityMiddleware creates a new activity middleware
func NewActivityMiddleware(db *sql.DB) *ActivityMiddleware {
	return &ActivityMiddleware{
		activityRepo: repository.NewActivityLogRepository(db),
	}
}

// Log records an action in the activity log after the request completes
func (m *ActivityMiddleware) Log(action, resource string, details string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Call the next handler first
			next.ServeHTTP(w, r)

			// Get user ID from context if available
			var userID *uint
			if id, ok := GetUserID(r); ok {
				userID = &id
			}

			log := &models.ActivityLog{
				UserID:    userID,
				Action:    action,
				Resource:  resource,
				Details:   details,
				IPAddress: getIP(r),
				UserAgent: r.UserAgent(),
			}

			// Save to database (ignore errors to not block the request)
			_ = m.activityRepo.Create(log)
		})
	}
}

// LogAction logs a specific action
func (m *ActivityMiddleware) LogAction(userID *uint, action, resource, details, ipAddress, userAgent string) error {
	log := &models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	return m.activityRepo.Create(log)
}
