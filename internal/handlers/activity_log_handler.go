package handlers

import (
	"net/http"
	"strconv"

	"audithub/internal/repository"
)

// ActivityLogHandler handles activity log requests
type ActivityLogHandler struct {
	activityRepo *repository.ActivityLogRepository
}

// NewActivityLogHandler creates a new activity log handler
func NewActivityLogHandler(activityRepo *repository.ActivityLogRepository) *ActivityLogHandler {
	return &ActivityLogHandler{activityRepo: activityRepo}
}

// ListActivityLogs lists activity log entries (owner only)
// @Summary List activity logs
// @Tags ActivityLogs
// @Produce json
// @Security BearerAuth
// @Param user_id query int false "Filter by user"
// @Param action query string false "Filter by action"
// @Param resource query string false "Filter by resource"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.ActivityLog
// @Router /activity-logs [get]
func (h *ActivityLogHandler) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
	var filters repository.ActivityLogFilters
	if v := r.URL.Query().Get("user_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			userID := uint(id)
			filters.UserID = &userID
		}
	}
	filters.Action = r.URL.Query().Get("action")
	filters.Resource = r.URL.Query().Get("resource")

	limit, offset := parsePagination(r)
	logs, err := h.activityRepo.List(filters, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load activity logs")
		return
	}
	respondWithJSON(w, http.StatusOK, logs)
}
