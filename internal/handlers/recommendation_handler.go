package handlers

import (
	"encoding/json"
	"net/http"

	"audithub/internal/middleware"
	"audithub/internal/service"
	"audithub/internal/validation"
)

// RecommendationHandler handles remediation item requests
type RecommendationHandler struct {
	recommendationService *service.RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendationService *service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: recommendationService}
}

// UpdateRecommendationRequest moves a recommendation through its workflow
type UpdateRecommendationRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress done dismissed"`
}

// ListRecommendations lists the organization's recommendations
// @Summary List recommendations
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Recommendation
// @Router /recommendations [get]
func (h *RecommendationHandler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	limit, offset := parsePagination(r)
	recommendations, err := h.recommendationService.List(orgID, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, recommendations)
}

// UpdateRecommendation updates a recommendation's status
// @Summary Update recommendation status
// @Tags Recommendations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recommendation ID"
// @Param request body UpdateRecommendationRequest true "New status"
// @Success 200 {object} models.Recommendation
// @Failure 404 {object} map[string]string "Recommendation not found"
// @Router /recommendations/{id} [put]
func (h *RecommendationHandler) UpdateRecommendation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid recommendation ID")
		return
	}

	var req UpdateRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.recommendationService.UpdateStatus(id, orgID, req.Status)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}
