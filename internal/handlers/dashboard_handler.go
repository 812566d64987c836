package handlers

import (
	"net/http"

	"audithub/internal/middleware"
	"audithub/internal/service"
)

// DashboardHandler handles dashboard requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
	rbacMw           *middleware.RBACMiddleware
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService, rbacMw *middleware.RBACMiddleware) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, rbacMw: rbacMw}
}

// GetDashboard returns audit statistics scoped to the caller's visibility
// @Summary Get dashboard
// @Description Status and level counts, score statistics, open recommendations, score trend and recent audits. Owners aggregate over the whole organization, other users over their own audits.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.DashboardStats
// @Router /dashboard [get]
// @Router /audits/statistics [get]
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUserIDNotFound)
		return
	}
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	isOwner := h.rbacMw.HasRole(userID, RoleOwner)

	stats, err := h.dashboardService.GetStats(orgID, userID, isOwner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
