package service

import (
	"errors"
	"fmt"
	"time"

	"audithub/internal/models"
	"audithub/internal/repository"
	"audithub/internal/scoring"
)

// Recommendation thresholds on section percentages
const (
	criticalBelow = 50.0
	highBelow     = 70.0
	mediumBelow   = 85.0
)

// AuditService handles the audit lifecycle: creation, answering,
// scoring at completion and the review cycle.
type AuditService struct {
	auditRepo          *repository.AuditRepository
	templateRepo       *repository.TemplateRepository
	answerRepo         *repository.AnswerRepository
	sectionScoreRepo   *repository.SectionScoreRepository
	recommendationRepo *repository.RecommendationRepository
	orgUnitRepo        *repository.OrgUnitRepository
	userRepo           *repository.UserRepository
	engine             *scoring.Engine
}

// NewAuditService creates a new audit service
func NewAuditService(
	auditRepo *repository.AuditRepository,
	templateRepo *repository.TemplateRepository,
	answerRepo *repository.AnswerRepository,
	sectionScoreRepo *repository.SectionScoreRepository,
	recommendationRepo *repository.RecommendationRepository,
	orgUnitRepo *repository.OrgUnitRepository,
	userRepo *repository.UserRepository,
	engine *scoring.Engine,
) *AuditService {
	return &AuditService{
		auditRepo:          auditRepo,
		templateRepo:       templateRepo,
		answerRepo:         answerRepo,
		sectionScoreRepo:   sectionScoreRepo,
		recommendationRepo: recommendationRepo,
		orgUnitRepo:        orgUnitRepo,
		userRepo:           userRepo,
		engine:             engine,
	}
}

// CreateAuditInput carries the fields for a new audit
type CreateAuditInput struct {
	TemplateID uint       `json:"template_id" validate:"required"`
	Name       string     `json:"name" validate:"required,min=1,max=255"`
	OrgUnitID  *uint      `json:"org_unit_id,omitempty"`
	AssignedTo *uint      `json:"assigned_to,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// Create starts a new audit in draft state from an active template
func (s *AuditService) Create(orgID, userID uint, input CreateAuditInput) (*models.Audit, error) {
	template, err := s.templateRepo.GetByID(input.TemplateID, orgID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: template %d", ErrNotFound, input.TemplateID)
	}
	if !template.IsActive {
		return nil, fmt.Errorf("%w: template %q is no longer active", ErrConflict, template.Name)
	}

	if input.OrgUnitID != nil {
		unit, err := s.orgUnitRepo.GetByID(*input.OrgUnitID, orgID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, fmt.Errorf("%w: org unit %d", ErrNotFound, *input.OrgUnitID)
		}
	}
	if input.AssignedTo != nil {
		assignee, err := s.userRepo.GetByID(*input.AssignedTo)
		if err != nil {
			return nil, err
		}
		if assignee == nil || assignee.OrganizationID != orgID {
			return nil, fmt.Errorf("%w: assignee %d", ErrNotFound, *input.AssignedTo)
		}
	}

	audit := &models.Audit{
		OrganizationID: orgID,
		TemplateID:     input.TemplateID,
		OrgUnitID:      input.OrgUnitID,
		Name:           input.Name,
		Status:         StatusDraft,
		CreatedBy:      userID,
		AssignedTo:     input.AssignedTo,
		DueDate:        input.DueDate,
	}
	if err := s.auditRepo.Create(audit); err != nil {
		return nil, fmt.Errorf("failed to create audit: %w", err)
	}
	return audit, nil
}

// List returns the audits visible to a user. Owners see all audits of
// their organization, employees only those they created or are
// assigned to.
func (s *AuditService) List(orgID, userID uint, isOwner bool, filters repository.AuditFilters, limit, offset int) ([]models.AuditWithDetails, error) {
	if !isOwner {
		filters.VisibleTo = &userID
	}
	return s.auditRepo.GetByOrganization(orgID, filters, limit, offset)
}

// Get returns one audit with joined details, enforcing visibility
func (s *AuditService) Get(auditID, orgID, userID uint, isOwner bool) (*models.AuditWithDetails, error) {
	audit, err := s.auditRepo.GetWithDetails(auditID, orgID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, fmt.Errorf("%w: audit %d", ErrNotFound, auditID)
	}
	if !s.canAccess(&audit.Audit, userID, isOwner) {
		return nil, fmt.Errorf("%w: audit %d", ErrPermissionDenied, auditID)
	}
	return audit, nil
}

// UpdateAuditInput carries the mutable fields of an audit
type UpdateAuditInput struct {
	Name       *string    `json:"name,omitempty"`
	OrgUnitID  *uint      `json:"org_unit_id,omitempty"`
	AssignedTo *uint      `json:"assigned_to,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// Update modifies metadata of a draft or in-progress audit
func (s *AuditService) Update(auditID, orgID, userID uint, isOwner bool, input UpdateAuditInput) (*models.Audit, error) {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}
	if audit.Status != StatusDraft && audit.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: audit is %s", ErrAuditLocked, audit.Status)
	}

	if input.Name != nil && *input.Name != "" {
		audit.Name = *input.Name
	}
	if input.OrgUnitID != nil {
		unit, err := s.orgUnitRepo.GetByID(*input.OrgUnitID, orgID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, fmt.Errorf("%w: org unit %d", ErrNotFound, *input.OrgUnitID)
		}
		audit.OrgUnitID = input.OrgUnitID
	}
	if input.AssignedTo != nil {
		assignee, err := s.userRepo.GetByID(*input.AssignedTo)
		if err != nil {
			return nil, err
		}
		if assignee == nil || assignee.OrganizationID != orgID {
			return nil, fmt.Errorf("%w: assignee %d", ErrNotFound, *input.AssignedTo)
		}
		audit.AssignedTo = input.AssignedTo
	}
	if input.DueDate != nil {
		audit.DueDate = input.DueDate
	}

	if err := s.auditRepo.Update(audit); err != nil {
		return nil, fmt.Errorf("failed to update audit: %w", err)
	}
	return audit, nil
}

// Delete removes a draft audit. Only the creator or an owner may
// delete, and only while no lifecycle progress has been made.
func (s *AuditService) Delete(auditID, orgID, userID uint, isOwner bool) error {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return err
	}
	if !isOwner && audit.CreatedBy != userID {
		return fmt.Errorf("%w: only the creator can delete an audit", ErrPermissionDenied)
	}
	if audit.Status != StatusDraft {
		return fmt.Errorf("%w: only draft audits can be deleted", ErrConflict)
	}
	return s.auditRepo.Delete(auditID, orgID)
}

// Start transitions a draft audit to in_progress
func (s *AuditService) Start(auditID, orgID, userID uint, isOwner bool) (*models.Audit, error) {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}
	if !CanTransition(audit.Status, StatusInProgress) || audit.Status != StatusDraft {
		return nil, fmt.Errorf("%w: cannot start audit in status %s", ErrInvalidTransition, audit.Status)
	}
	if err := s.auditRepo.MarkStarted(auditID); err != nil {
		return nil, err
	}
	return s.auditRepo.GetByID(auditID, orgID)
}

// SubmitAnswer upserts one answer. Answering a draft audit starts it
// implicitly; completed and reviewed audits reject writes.
func (s *AuditService) SubmitAnswer(auditID, orgID, userID uint, isOwner bool, questionID uint, value string, comment *string, expectedRevision *int) (*models.AuditAnswer, error) {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}
	if audit.Status == StatusCompleted || audit.Status == StatusReviewed {
		return nil, fmt.Errorf("%w: audit is %s", ErrAuditLocked, audit.Status)
	}

	question, err := s.findQuestion(audit.TemplateID, orgID, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.validateAnswerValue(question, value); err != nil {
		return nil, err
	}

	if audit.Status == StatusDraft {
		if err := s.auditRepo.MarkStarted(auditID); err != nil {
			return nil, err
		}
	}

	answer := &models.AuditAnswer{
		AuditID:    auditID,
		QuestionID: questionID,
		Value:      value,
		Comment:    comment,
		AnsweredBy: userID,
	}
	if err := s.answerRepo.Upsert(answer, expectedRevision); err != nil {
		if errors.Is(err, repository.ErrStaleRevision) {
			return nil, fmt.Errorf("%w: question %d", ErrStaleRevision, questionID)
		}
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}
	return answer, nil
}

// GetQuestions returns the audit's template tree merged with the
// current answers, for resuming a partially answered audit.
func (s *AuditService) GetQuestions(auditID, orgID, userID uint, isOwner bool) ([]models.SectionWithAnswers, error) {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}

	template, err := s.templateRepo.GetWithSections(audit.TemplateID, orgID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: template %d", ErrNotFound, audit.TemplateID)
	}

	answers, err := s.answerRepo.GetMapByAudit(auditID)
	if err != nil {
		return nil, err
	}

	sections := make([]models.SectionWithAnswers, 0, len(template.Sections))
	for _, section := range template.Sections {
		withAnswers := models.SectionWithAnswers{TemplateSection: section.TemplateSection}
		for _, question := range section.Questions {
			qa := models.QuestionWithAnswer{TemplateQuestion: question}
			if answer, ok := answers[question.ID]; ok {
				a := answer
				qa.Answer = &a
			}
			withAnswers.Questions = append(withAnswers.Questions, qa)
		}
		sections = append(sections, withAnswers)
	}
	return sections, nil
}

// GetAnswers returns the raw answers of an audit
func (s *AuditService) GetAnswers(auditID, orgID, userID uint, isOwner bool) ([]models.AuditAnswer, error) {
	if _, err := s.getAccessible(auditID, orgID, userID, isOwner); err != nil {
		return nil, err
	}
	return s.answerRepo.GetByAudit(auditID)
}

// Complete scores an audit and freezes the result. All questions must
// be answered first.
func (s *AuditService) Complete(auditID, orgID, userID uint, isOwner bool) (*models.Audit, error) {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}
	if !CanTransition(audit.Status, StatusCompleted) {
		return nil, fmt.Errorf("%w: cannot complete audit in status %s", ErrInvalidTransition, audit.Status)
	}

	template, err := s.templateRepo.GetWithSections(audit.TemplateID, orgID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: template %d", ErrNotFound, audit.TemplateID)
	}

	answered, err := s.answerRepo.CountByAudit(auditID)
	if err != nil {
		return nil, err
	}
	total := countQuestions(template)
	if answered < total {
		return nil, fmt.Errorf("%w: %d of %d questions answered", ErrAuditIncomplete, answered, total)
	}

	answerMap, err := s.answerRepo.GetMapByAudit(auditID)
	if err != nil {
		return nil, err
	}

	sections := toScoringSections(template)
	result := s.engine.Score(sections, toScoringAnswers(answerMap))

	// Freeze overall and per-section scores at full precision
	if err := s.auditRepo.MarkCompleted(auditID, result.Overall); err != nil {
		return nil, err
	}
	frozen := make([]models.SectionScore, 0, len(result.Sections))
	for _, sec := range result.Sections {
		frozen = append(frozen, models.SectionScore{
			AuditID:           auditID,
			SectionID:         sec.SectionID,
			SectionName:       sec.SectionName,
			Percentage:        sec.Percentage,
			TotalWeight:       sec.TotalWeight,
			QuestionsAnswered: sec.QuestionsAnswered,
			QuestionsTotal:    sec.QuestionsTotal,
		})
	}
	if err := s.sectionScoreRepo.ReplaceForAudit(auditID, frozen); err != nil {
		return nil, err
	}

	recommendations := generateRecommendations(auditID, template, result, answerMap)
	if err := s.recommendationRepo.ReplaceForAudit(auditID, recommendations); err != nil {
		return nil, err
	}

	return s.auditRepo.GetByID(auditID, orgID)
}

// Review marks a completed audit as reviewed. Owner only.
func (s *AuditService) Review(auditID, orgID uint) (*models.Audit, error) {
	audit, err := s.auditRepo.GetByID(auditID, orgID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, fmt.Errorf("%w: audit %d", ErrNotFound, auditID)
	}
	if !CanTransition(audit.Status, StatusReviewed) {
		return nil, fmt.Errorf("%w: cannot review audit in status %s", ErrInvalidTransition, audit.Status)
	}
	if err := s.auditRepo.MarkReviewed(auditID); err != nil {
		return nil, err
	}
	return s.auditRepo.GetByID(auditID, orgID)
}

// Unreview moves a reviewed audit back to completed. Owner only.
func (s *AuditService) Unreview(auditID, orgID uint) (*models.Audit, error) {
	audit, err := s.auditRepo.GetByID(auditID, orgID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, fmt.Errorf("%w: audit %d", ErrNotFound, auditID)
	}
	if audit.Status != StatusReviewed {
		return nil, fmt.Errorf("%w: cannot unreview audit in status %s", ErrInvalidTransition, audit.Status)
	}
	if err := s.auditRepo.MarkUnreviewed(auditID); err != nil {
		return nil, err
	}
	return s.auditRepo.GetByID(auditID, orgID)
}

// Reopen moves a completed audit back to in_progress and discards the
// frozen score, section breakdown and recommendations. Answers are kept.
func (s *AuditService) Reopen(auditID, orgID, userID uint, isOwner bool) (*models.Audit, error) {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}
	if !CanTransition(audit.Status, StatusInProgress) || audit.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: cannot reopen audit in status %s", ErrInvalidTransition, audit.Status)
	}

	if err := s.auditRepo.Reopen(auditID); err != nil {
		return nil, err
	}
	if err := s.sectionScoreRepo.DeleteByAudit(auditID); err != nil {
		return nil, err
	}
	if err := s.recommendationRepo.ReplaceForAudit(auditID, nil); err != nil {
		return nil, err
	}
	return s.auditRepo.GetByID(auditID, orgID)
}

// GetResults returns the frozen report of a completed or reviewed
// audit, with percentages rounded for presentation.
func (s *AuditService) GetResults(auditID, orgID, userID uint, isOwner bool) (*models.AuditResults, error) {
	audit, err := s.Get(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}
	if audit.Status != StatusCompleted && audit.Status != StatusReviewed {
		return nil, fmt.Errorf("%w: audit has no frozen results in status %s", ErrConflict, audit.Status)
	}

	sectionScores, err := s.sectionScoreRepo.GetByAudit(auditID)
	if err != nil {
		return nil, err
	}
	recommendations, err := s.recommendationRepo.GetByAudit(auditID)
	if err != nil {
		return nil, err
	}

	results := &models.AuditResults{
		AuditID:         audit.ID,
		AuditName:       audit.Name,
		TemplateName:    audit.TemplateName,
		Status:          audit.Status,
		CompletedAt:     audit.CompletedAt,
		Sections:        make([]models.SectionResult, 0, len(sectionScores)),
		Recommendations: recommendations,
	}
	if audit.Score != nil {
		results.OverallScore = scoring.Round1(*audit.Score)
	}
	for _, sec := range sectionScores {
		results.Sections = append(results.Sections, models.SectionResult{
			SectionID:         sec.SectionID,
			SectionName:       sec.SectionName,
			Percentage:        scoring.Round1(sec.Percentage),
			TotalWeight:       sec.TotalWeight,
			QuestionsAnswered: sec.QuestionsAnswered,
			QuestionsTotal:    sec.QuestionsTotal,
		})
	}
	return results, nil
}

// GetProgress returns completion progress plus a live preview score
// computed over the current partial answer set
func (s *AuditService) GetProgress(auditID, orgID, userID uint, isOwner bool) (*models.AuditProgress, error) {
	audit, err := s.getAccessible(auditID, orgID, userID, isOwner)
	if err != nil {
		return nil, err
	}

	template, err := s.templateRepo.GetWithSections(audit.TemplateID, orgID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: template %d", ErrNotFound, audit.TemplateID)
	}

	answerMap, err := s.answerRepo.GetMapByAudit(auditID)
	if err != nil {
		return nil, err
	}

	total := countQuestions(template)
	answered := len(answerMap)
	result := s.engine.Score(toScoringSections(template), toScoringAnswers(answerMap))

	progress := &models.AuditProgress{
		AuditID:           auditID,
		Status:            audit.Status,
		QuestionsTotal:    total,
		QuestionsAnswered: answered,
		PreviewScore:      scoring.Round1(result.Overall),
		IsComplete:        total > 0 && answered >= total,
	}
	if total > 0 {
		progress.PercentComplete = scoring.Round1(100 * float64(answered) / float64(total))
	}
	return progress, nil
}

func (s *AuditService) canAccess(audit *models.Audit, userID uint, isOwner bool) bool {
	if isOwner {
		return true
	}
	if audit.CreatedBy == userID {
		return true
	}
	return audit.AssignedTo != nil && *audit.AssignedTo == userID
}

func (s *AuditService) getAccessible(auditID, orgID, userID uint, isOwner bool) (*models.Audit, error) {
	audit, err := s.auditRepo.GetByID(auditID, orgID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, fmt.Errorf("%w: audit %d", ErrNotFound, auditID)
	}
	if !s.canAccess(audit, userID, isOwner) {
		return nil, fmt.Errorf("%w: audit %d", ErrPermissionDenied, auditID)
	}
	return audit, nil
}

func (s *AuditService) findQuestion(templateID, orgID, questionID uint) (*models.TemplateQuestion, error) {
	template, err := s.templateRepo.GetWithSections(templateID, orgID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: template %d", ErrNotFound, templateID)
	}
	for _, section := range template.Sections {
		for _, question := range section.Questions {
			if question.ID == questionID {
				q := question
				return &q, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: question %d does not belong to this audit", ErrNotFound, questionID)
}

func (s *AuditService) validateAnswerValue(question *models.TemplateQuestion, value string) error {
	if value == "" {
		return fmt.Errorf("%w: answer value is empty", ErrInvalidInput)
	}
	switch question.AnswerType {
	case scoring.AnswerTypeYesNo:
		if !contains([]string{"yes", "no"}, value) {
			return fmt.Errorf("%w: expected yes or no", ErrInvalidInput)
		}
	case scoring.AnswerTypeYesNoPartial:
		if !contains([]string{"yes", "partial", "no"}, value) {
			return fmt.Errorf("%w: expected yes, partial or no", ErrInvalidInput)
		}
	case scoring.AnswerTypeMultipleChoice:
		if !contains(question.Choices, value) {
			return fmt.Errorf("%w: value is not one of the choices", ErrInvalidInput)
		}
	}
	return nil
}

func countQuestions(template *models.TemplateWithSections) int {
	var total int
	for _, section := range template.Sections {
		total += len(section.Questions)
	}
	return total
}

func toScoringSections(template *models.TemplateWithSections) []scoring.Section {
	sections := make([]scoring.Section, 0, len(template.Sections))
	for _, section := range template.Sections {
		sec := scoring.Section{
			ID:     section.ID,
			Name:   section.Name,
			Weight: section.Weight,
		}
		for _, question := range section.Questions {
			sec.Questions = append(sec.Questions, scoring.Question{
				ID:         question.ID,
				AnswerType: question.AnswerType,
				Weight:     question.Weight,
				Choices:    question.Choices,
			})
		}
		sections = append(sections, sec)
	}
	return sections
}

func toScoringAnswers(answers map[uint]models.AuditAnswer) map[uint]scoring.Answer {
	m := make(map[uint]scoring.Answer, len(answers))
	for questionID, answer := range answers {
		m[questionID] = scoring.Answer{Value: answer.Value}
	}
	return m
}
