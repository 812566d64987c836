package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"audithub/internal/middleware"
	"audithub/internal/models"
	"audithub/internal/service"
	"audithub/internal/validation"
)

// TemplateHandler handles audit template requests
type TemplateHandler struct {
	templateService *service.TemplateService
	activityMw      *middleware.ActivityMiddleware
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateService *service.TemplateService, activityMw *middleware.ActivityMiddleware) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, activityMw: activityMw}
}

// CreateTemplateRequest is the nested payload for a new template
type CreateTemplateRequest struct {
	Name        string                  `json:"name" validate:"required,min=1,max=255"`
	Standard    *string                 `json:"standard,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Version     string                  `json:"version"`
	Sections    []CreateSectionRequest  `json:"sections" validate:"required,min=1,dive"`
}

// CreateSectionRequest is one section of a new template
type CreateSectionRequest struct {
	Name        string                  `json:"name" validate:"required"`
	Description *string                 `json:"description,omitempty"`
	Weight      float64                 `json:"weight" validate:"gte=0"`
	Questions   []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// CreateQuestionRequest is one question of a new template section
type CreateQuestionRequest struct {
	Text       string   `json:"text" validate:"required"`
	HelpText   *string  `json:"help_text,omitempty"`
	AnswerType string   `json:"answer_type" validate:"required,oneof=yes_no yes_no_partial scale_1_5 multiple_choice text"`
	Choices    []string `json:"choices,omitempty"`
	Weight     float64  `json:"weight" validate:"gte=0"`
	IsRequired bool     `json:"is_required"`
}

// ListTemplates lists the active templates visible to the organization
// @Summary List templates
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AuditTemplate
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	templates, err := h.templateService.List(orgID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, templates)
}

// GetTemplate returns one template with its sections and questions
// @Summary Get template
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 200 {object} models.TemplateWithSections
// @Failure 404 {object} map[string]string "Template not found"
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidTemplateID)
		return
	}

	template, err := h.templateService.Get(id, orgID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, template)
}

// CreateTemplate creates a template with sections and questions (owner only)
// @Summary Create template
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTemplateRequest true "Template definition"
// @Success 201 {object} models.TemplateWithSections
// @Failure 400 {object} map[string]string "Invalid template"
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	userID, _ := middleware.GetUserID(r)

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	template := &models.TemplateWithSections{
		AuditTemplate: models.AuditTemplate{
			Name:        req.Name,
			Standard:    req.Standard,
			Description: req.Description,
			Version:     req.Version,
			CreatedBy:   &userID,
		},
	}
	for _, sec := range req.Sections {
		section := models.SectionWithQuestions{
			TemplateSection: models.TemplateSection{
				Name:        sec.Name,
				Description: sec.Description,
				Weight:      sec.Weight,
			},
		}
		for _, q := range sec.Questions {
			section.Questions = append(section.Questions, models.TemplateQuestion{
				Text:       q.Text,
				HelpText:   q.HelpText,
				AnswerType: q.AnswerType,
				Choices:    q.Choices,
				Weight:     q.Weight,
				IsRequired: q.IsRequired,
			})
		}
		template.Sections = append(template.Sections, section)
	}

	created, err := h.templateService.Create(orgID, template)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	slog.Info("Template created", "template_id", created.ID, "organization_id", orgID)
	_ = h.activityMw.LogAction(&userID, "template.create", "templates", "Created template "+created.Name, getIP(r), r.UserAgent())
	respondWithJSON(w, http.StatusCreated, created)
}

// DeactivateTemplate retires a template (owner only)
// @Summary Deactivate template
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 200 {object} map[string]string "Template deactivated"
// @Failure 404 {object} map[string]string "Template not found"
// @Router /templates/{id} [delete]
func (h *TemplateHandler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidTemplateID)
		return
	}

	if err := h.templateService.Deactivate(id, orgID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	if userID, ok := middleware.GetUserID(r); ok {
		_ = h.activityMw.LogAction(&userID, "template.deactivate", "templates", "Deactivated template", getIP(r), r.UserAgent())
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Template deactivated"})
}
