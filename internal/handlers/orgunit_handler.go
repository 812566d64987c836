package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"audithub/internal/middleware"
	"audithub/internal/models"
	"audithub/internal/repository"
	"audithub/internal/service"
	"audithub/internal/validation"
)

// OrgUnitHandler handles organizational unit requests
type OrgUnitHandler struct {
	orgUnitService *service.OrgUnitService
}

// NewOrgUnitHandler creates a new org unit handler
func NewOrgUnitHandler(orgUnitService *service.OrgUnitService) *OrgUnitHandler {
	return &OrgUnitHandler{orgUnitService: orgUnitService}
}

// OrgUnitRequest represents an org unit create or update payload
type OrgUnitRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=255"`
	Type     string  `json:"type" validate:"required,oneof=company branch department team"`
	ParentID *uint   `json:"parent_id,omitempty"`
	Code     *string `json:"code,omitempty"`
	IsActive bool    `json:"is_active"`
}

// ListOrgUnits lists the organization's units
// @Summary List org units
// @Tags OrgUnits
// @Produce json
// @Security BearerAuth
// @Param type query string false "Filter by type"
// @Param parent_id query int false "Filter by parent"
// @Success 200 {array} models.OrgUnit
// @Router /org-units [get]
func (h *OrgUnitHandler) ListOrgUnits(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var filters repository.OrgUnitFilters
	if t := r.URL.Query().Get("type"); t != "" {
		filters.Type = t
	}
	if v := r.URL.Query().Get("parent_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			parentID := uint(id)
			filters.ParentID = &parentID
		}
	}

	units, err := h.orgUnitService.List(orgID, filters)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, units)
}

// GetOrgUnit returns one org unit
// @Summary Get org unit
// @Tags OrgUnits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Org unit ID"
// @Success 200 {object} models.OrgUnit
// @Failure 404 {object} map[string]string "Org unit not found"
// @Router /org-units/{id} [get]
func (h *OrgUnitHandler) GetOrgUnit(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid org unit ID")
		return
	}

	unit, err := h.orgUnitService.Get(id, orgID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, unit)
}

// CreateOrgUnit creates a new org unit (owner only)
// @Summary Create org unit
// @Tags OrgUnits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OrgUnitRequest true "Org unit"
// @Success 201 {object} models.OrgUnit
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /org-units [post]
func (h *OrgUnitHandler) CreateOrgUnit(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req OrgUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	unit, err := h.orgUnitService.Create(orgID, &models.OrgUnit{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
		Code:     req.Code,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, unit)
}

// UpdateOrgUnit updates an org unit (owner only)
// @Summary Update org unit
// @Tags OrgUnits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Org unit ID"
// @Param request body OrgUnitRequest true "Org unit"
// @Success 200 {object} models.OrgUnit
// @Failure 404 {object} map[string]string "Org unit not found"
// @Router /org-units/{id} [put]
func (h *OrgUnitHandler) UpdateOrgUnit(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid org unit ID")
		return
	}

	var req OrgUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	unit, err := h.orgUnitService.Update(id, orgID, req.Name, req.Type, req.ParentID, req.IsActive)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, unit)
}

// DeleteOrgUnit deletes an org unit (owner only)
// @Summary Delete org unit
// @Tags OrgUnits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Org unit ID"
// @Success 200 {object} map[string]string "Org unit deleted"
// @Failure 409 {object} map[string]string "Org unit has children or audits"
// @Router /org-units/{id} [delete]
func (h *OrgUnitHandler) DeleteOrgUnit(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid org unit ID")
		return
	}

	if err := h.orgUnitService.Delete(id, orgID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Org unit deleted"})
}
