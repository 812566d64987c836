package service

import (
	"fmt"

	"audithub/internal/models"
	"audithub/internal/repository"
	"audithub/internal/scoring"
)

var validAnswerTypes = []string{
	scoring.AnswerTypeYesNo,
	scoring.AnswerTypeYesNoPartial,
	scoring.AnswerTypeScale,
	scoring.AnswerTypeMultipleChoice,
	scoring.AnswerTypeText,
}

// TemplateService handles audit template business logic
type TemplateService struct {
	templateRepo *repository.TemplateRepository
}

// NewTemplateService creates a new template service
func NewTemplateService(templateRepo *repository.TemplateRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo}
}

// List returns the active templates visible to an organization,
// including global templates that have no owning organization.
func (s *TemplateService) List(orgID uint) ([]models.AuditTemplate, error) {
	return s.templateRepo.GetAll(orgID)
}

// Get returns a template with its full section and question tree
func (s *TemplateService) Get(templateID, orgID uint) (*models.TemplateWithSections, error) {
	template, err := s.templateRepo.GetWithSections(templateID, orgID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: template %d", ErrNotFound, templateID)
	}
	return template, nil
}

// Create validates and persists a template with its sections and questions
func (s *TemplateService) Create(orgID uint, template *models.TemplateWithSections) (*models.TemplateWithSections, error) {
	if err := s.validate(template); err != nil {
		return nil, err
	}

	template.OrganizationID = &orgID
	template.IsActive = true
	if template.Version == "" {
		template.Version = "1.0"
	}

	for i := range template.Sections {
		if template.Sections[i].SortOrder == 0 {
			template.Sections[i].SortOrder = i + 1
		}
		for j := range template.Sections[i].Questions {
			if template.Sections[i].Questions[j].SortOrder == 0 {
				template.Sections[i].Questions[j].SortOrder = j + 1
			}
		}
	}

	if err := s.templateRepo.Create(template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return template, nil
}

// Deactivate retires a template so no new audits can use it.
// Existing audits keep their frozen scores and answers.
func (s *TemplateService) Deactivate(templateID, orgID uint) error {
	template, err := s.templateRepo.GetByID(templateID, orgID)
	if err != nil {
		return err
	}
	if template == nil {
		return fmt.Errorf("%w: template %d", ErrNotFound, templateID)
	}
	if template.OrganizationID == nil {
		return fmt.Errorf("%w: global templates cannot be deactivated", ErrPermissionDenied)
	}
	return s.templateRepo.Deactivate(templateID, orgID)
}

func (s *TemplateService) validate(template *models.TemplateWithSections) error {
	if template.Name == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if len(template.Sections) == 0 {
		return fmt.Errorf("%w: template needs at least one section", ErrInvalidInput)
	}
	for _, section := range template.Sections {
		if section.Name == "" {
			return fmt.Errorf("%w: section name is required", ErrInvalidInput)
		}
		if section.Weight < 0 {
			return fmt.Errorf("%w: section weight must not be negative", ErrInvalidInput)
		}
		if len(section.Questions) == 0 {
			return fmt.Errorf("%w: section %q needs at least one question", ErrInvalidInput, section.Name)
		}
		for _, question := range section.Questions {
			if question.Text == "" {
				return fmt.Errorf("%w: question text is required", ErrInvalidInput)
			}
			if question.Weight < 0 {
				return fmt.Errorf("%w: question weight must not be negative", ErrInvalidInput)
			}
			if !contains(validAnswerTypes, question.AnswerType) {
				return fmt.Errorf("%w: unknown answer type %q", ErrInvalidInput, question.AnswerType)
			}
			if question.AnswerType == scoring.AnswerTypeMultipleChoice && len(question.Choices) == 0 {
				return fmt.Errorf("%w: multiple choice question needs choices", ErrInvalidInput)
			}
		}
	}
	return nil
}
