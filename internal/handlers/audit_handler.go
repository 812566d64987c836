package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"audithub/internal/middleware"
	"audithub/internal/repository"
	"audithub/internal/service"
	"audithub/internal/validation"
)

// AuditHandler handles audit lifecycle requests
type AuditHandler struct {
	auditService      *service.AuditService
	comparisonService *service.ComparisonService
	rbacMw            *middleware.RBACMiddleware
	activityMw        *middleware.ActivityMiddleware
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(
	auditService *service.AuditService,
	comparisonService *service.ComparisonService,
	rbacMw *middleware.RBACMiddleware,
	activityMw *middleware.ActivityMiddleware,
) *AuditHandler {
	return &AuditHandler{
		auditService:      auditService,
		comparisonService: comparisonService,
		rbacMw:            rbacMw,
		activityMw:        activityMw,
	}
}

// SubmitAnswerRequest represents one answer submission
type SubmitAnswerRequest struct {
	QuestionID       uint    `json:"question_id" validate:"required"`
	Value            string  `json:"value" validate:"required"`
	Comment          *string `json:"comment,omitempty"`
	ExpectedRevision *int    `json:"expected_revision,omitempty"`
}

// CompareRequest selects the audits to compare
type CompareRequest struct {
	AuditIDs []uint `json:"audit_ids" validate:"required,min=2,max=5"`
}

// identity pulls the caller's IDs and owner flag from the request context
func (h *AuditHandler) identity(r *http.Request) (userID, orgID uint, isOwner, ok bool) {
	userID, ok = middleware.GetUserID(r)
	if !ok {
		return 0, 0, false, false
	}
	orgID, ok = middleware.GetOrgID(r)
	if !ok {
		return 0, 0, false, false
	}
	return userID, orgID, h.rbacMw.HasRole(userID, RoleOwner), true
}

// ListAudits lists the audits visible to the caller
// @Summary List audits
// @Description Owners see all audits of the organization, employees the ones they created or are assigned to
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param template_id query int false "Filter by template"
// @Param org_unit_id query int false "Filter by org unit"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.AuditWithDetails
// @Router /audits [get]
func (h *AuditHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var filters repository.AuditFilters
	if status := r.URL.Query().Get("status"); status != "" {
		if !service.IsValidStatus(status) {
			respondWithError(w, http.StatusBadRequest, "Unknown status "+status)
			return
		}
		filters.Status = status
	}
	if v := r.URL.Query().Get("template_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			templateID := uint(id)
			filters.TemplateID = &templateID
		}
	}
	if v := r.URL.Query().Get("org_unit_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			orgUnitID := uint(id)
			filters.OrgUnitID = &orgUnitID
		}
	}

	limit, offset := parsePagination(r)
	audits, err := h.auditService.List(orgID, userID, isOwner, filters, limit, offset)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, audits)
}

// CreateAudit creates a new audit in draft state
// @Summary Create audit
// @Tags Audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateAuditInput true "Audit details"
// @Success 201 {object} models.Audit
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Template not found"
// @Router /audits [post]
func (h *AuditHandler) CreateAudit(w http.ResponseWriter, r *http.Request) {
	userID, orgID, _, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var input service.CreateAuditInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	audit, err := h.auditService.Create(orgID, userID, input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	slog.Info("Audit created", "audit_id", audit.ID, "organization_id", orgID, "template_id", audit.TemplateID)
	_ = h.activityMw.LogAction(&userID, "audit.create", "audits", "Created audit "+audit.Name, getIP(r), r.UserAgent())
	respondWithJSON(w, http.StatusCreated, audit)
}

// GetAudit returns one audit with details
// @Summary Get audit
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.AuditWithDetails
// @Failure 404 {object} map[string]string "Audit not found"
// @Router /audits/{id} [get]
func (h *AuditHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	audit, err := h.auditService.Get(id, orgID, userID, isOwner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, audit)
}

// UpdateAudit updates audit metadata
// @Summary Update audit
// @Tags Audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Param request body service.UpdateAuditInput true "Fields to update"
// @Success 200 {object} models.Audit
// @Failure 409 {object} map[string]string "Audit is locked"
// @Router /audits/{id} [put]
func (h *AuditHandler) UpdateAudit(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	var input service.UpdateAuditInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	audit, err := h.auditService.Update(id, orgID, userID, isOwner, input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, audit)
}

// DeleteAudit deletes a draft audit
// @Summary Delete audit
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} map[string]string "Audit deleted"
// @Failure 409 {object} map[string]string "Only draft audits can be deleted"
// @Router /audits/{id} [delete]
func (h *AuditHandler) DeleteAudit(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	if err := h.auditService.Delete(id, orgID, userID, isOwner); err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.activityMw.LogAction(&userID, "audit.delete", "audits", "Deleted audit", getIP(r), r.UserAgent())
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Audit deleted"})
}

// StartAudit moves a draft audit to in_progress
// @Summary Start audit
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.Audit
// @Failure 409 {object} map[string]string "Invalid transition"
// @Router /audits/{id}/start [post]
func (h *AuditHandler) StartAudit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "audit.start", func(id, orgID, userID uint, isOwner bool) (interface{}, error) {
		return h.auditService.Start(id, orgID, userID, isOwner)
	})
}

// CompleteAudit scores and freezes an audit
// @Summary Complete audit
// @Description All questions must be answered. Freezes the score, section breakdown and recommendations.
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.Audit
// @Failure 409 {object} map[string]string "Audit incomplete or invalid transition"
// @Router /audits/{id}/complete [post]
func (h *AuditHandler) CompleteAudit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "audit.complete", func(id, orgID, userID uint, isOwner bool) (interface{}, error) {
		return h.auditService.Complete(id, orgID, userID, isOwner)
	})
}

// ReviewAudit marks a completed audit as reviewed (owner only)
// @Summary Review audit
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.Audit
// @Failure 409 {object} map[string]string "Invalid transition"
// @Router /audits/{id}/review [post]
func (h *AuditHandler) ReviewAudit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "audit.review", func(id, orgID, userID uint, isOwner bool) (interface{}, error) {
		return h.auditService.Review(id, orgID)
	})
}

// UnreviewAudit moves a reviewed audit back to completed (owner only)
// @Summary Unreview audit
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.Audit
// @Failure 409 {object} map[string]string "Invalid transition"
// @Router /audits/{id}/unreview [post]
func (h *AuditHandler) UnreviewAudit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "audit.unreview", func(id, orgID, userID uint, isOwner bool) (interface{}, error) {
		return h.auditService.Unreview(id, orgID)
	})
}

// ReopenAudit moves a completed audit back to in_progress
// @Summary Reopen audit
// @Description Discards the frozen score, section breakdown and recommendations. Answers are kept.
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.Audit
// @Failure 409 {object} map[string]string "Invalid transition"
// @Router /audits/{id}/reopen [post]
func (h *AuditHandler) ReopenAudit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "audit.reopen", func(id, orgID, userID uint, isOwner bool) (interface{}, error) {
		return h.auditService.Reopen(id, orgID, userID, isOwner)
	})
}

// transition factors the shared shape of the lifecycle endpoints
func (h *AuditHandler) transition(w http.ResponseWriter, r *http.Request, action string, fn func(id, orgID, userID uint, isOwner bool) (interface{}, error)) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	audit, err := fn(id, orgID, userID, isOwner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	slog.Info("Audit transition", "audit_id", id, "action", action, "user_id", userID)
	_ = h.activityMw.LogAction(&userID, action, "audits", "Audit "+strconv.FormatUint(uint64(id), 10), getIP(r), r.UserAgent())
	respondWithJSON(w, http.StatusOK, audit)
}

// GetQuestions returns the audit's questions merged with current answers
// @Summary Get audit questions
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {array} models.SectionWithAnswers
// @Router /audits/{id}/questions [get]
func (h *AuditHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	sections, err := h.auditService.GetQuestions(id, orgID, userID, isOwner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sections)
}

// SubmitAnswer saves one answer
// @Summary Submit answer
// @Description Upserts the answer for one question. A stale expected_revision is rejected with 409.
// @Tags Audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Param request body SubmitAnswerRequest true "Answer"
// @Success 200 {object} models.AuditAnswer
// @Failure 409 {object} map[string]string "Audit locked or stale revision"
// @Router /audits/{id}/answers [post]
func (h *AuditHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.auditService.SubmitAnswer(id, orgID, userID, isOwner, req.QuestionID, req.Value, req.Comment, req.ExpectedRevision)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, answer)
}

// GetAnswers returns the raw answers of an audit
// @Summary Get answers
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {array} models.AuditAnswer
// @Router /audits/{id}/answers [get]
func (h *AuditHandler) GetAnswers(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	answers, err := h.auditService.GetAnswers(id, orgID, userID, isOwner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, answers)
}

// GetResults returns the frozen report of a completed audit
// @Summary Get audit results
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.AuditResults
// @Failure 409 {object} map[string]string "Audit has no frozen results"
// @Router /audits/{id}/results [get]
func (h *AuditHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	results, err := h.auditService.GetResults(id, orgID, userID, isOwner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}

// GetProgress returns completion progress with a live preview score
// @Summary Get audit progress
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.AuditProgress
// @Router /audits/{id}/progress [get]
func (h *AuditHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, orgID, isOwner, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	progress, err := h.auditService.GetProgress(id, orgID, userID, isOwner)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}

// CompareAudits compares 2-5 completed audits of the same template
// @Summary Compare audits
// @Tags Audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CompareRequest false "Audit IDs (alternatively via ids query parameter)"
// @Param ids query string false "Comma-separated audit IDs"
// @Success 200 {object} models.ComparisonResult
// @Failure 400 {object} map[string]string "Need 2 to 5 audits"
// @Failure 409 {object} map[string]string "Audits not comparable"
// @Router /audits/compare [post]
func (h *AuditHandler) CompareAudits(w http.ResponseWriter, r *http.Request) {
	_, orgID, _, ok := h.identity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req CompareRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if len(req.AuditIDs) == 0 {
		// Alternative: ?ids=1,2,3
		for _, part := range strings.Split(r.URL.Query().Get("ids"), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Invalid audit ID "+part)
				return
			}
			req.AuditIDs = append(req.AuditIDs, uint(id))
		}
	}

	result, err := h.comparisonService.Compare(orgID, req.AuditIDs)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
