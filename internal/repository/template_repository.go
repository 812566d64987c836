package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"audithub/internal/models"

	"github.com/lib/pq"
)

// TemplateRepository handles database operations for audit templates
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template with its sections and questions in one transaction
func (r *TemplateRepository) Create(template *models.TemplateWithSections) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO audit_templates (organization_id, name, standard, description, version, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(
		query,
		template.OrganizationID,
		template.Name,
		template.Standard,
		template.Description,
		template.Version,
		template.IsActive,
		template.CreatedBy,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}

	for i := range template.Sections {
		section := &template.Sections[i]
		section.TemplateID = template.ID

		query := `
			INSERT INTO template_sections (template_id, name, description, weight, sort_order)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		err = tx.QueryRow(
			query,
			section.TemplateID,
			section.Name,
			section.Description,
			section.Weight,
			section.SortOrder,
		).Scan(&section.ID, &section.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert section %q: %w", section.Name, err)
		}

		for j := range section.Questions {
			question := &section.Questions[j]
			question.SectionID = section.ID

			query := `
				INSERT INTO template_questions (section_id, text, help_text, answer_type, choices, weight, is_required, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id, created_at
			`
			err = tx.QueryRow(
				query,
				question.SectionID,
				question.Text,
				question.HelpText,
				question.AnswerType,
				pq.Array(question.Choices),
				question.Weight,
				question.IsRequired,
				question.SortOrder,
			).Scan(&question.ID, &question.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert question: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetByID retrieves a template header by ID, visible to the given organization
// (own templates plus global ones)
func (r *TemplateRepository) GetByID(id, orgID uint) (*models.AuditTemplate, error) {
	var template models.AuditTemplate
	query := `
		SELECT id, organization_id, name, standard, description, version, is_active, created_by, created_at, updated_at
		FROM audit_templates
		WHERE id = $1 AND (organization_id IS NULL OR organization_id = $2)
	`
	err := r.db.QueryRow(query, id, orgID).Scan(
		&template.ID,
		&template.OrganizationID,
		&template.Name,
		&template.Standard,
		&template.Description,
		&template.Version,
		&template.IsActive,
		&template.CreatedBy,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// GetWithSections retrieves a template with its full nested structure,
// sections and questions ordered by sort order
func (r *TemplateRepository) GetWithSections(id, orgID uint) (*models.TemplateWithSections, error) {
	template, err := r.GetByID(id, orgID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, nil
	}

	result := &models.TemplateWithSections{AuditTemplate: *template}

	sectionQuery := `
		SELECT id, template_id, name, description, weight, sort_order, created_at
		FROM template_sections
		WHERE template_id = $1
		ORDER BY sort_order ASC, id ASC
	`
	rows, err := r.db.Query(sectionQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sectionIndex := make(map[uint]int)
	for rows.Next() {
		var section models.TemplateSection
		err := rows.Scan(
			&section.ID,
			&section.TemplateID,
			&section.Name,
			&section.Description,
			&section.Weight,
			&section.SortOrder,
			&section.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sectionIndex[section.ID] = len(result.Sections)
		result.Sections = append(result.Sections, models.SectionWithQuestions{TemplateSection: section})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	questionQuery := `
		SELECT q.id, q.section_id, q.text, q.help_text, q.answer_type, q.choices, q.weight, q.is_required, q.sort_order, q.created_at
		FROM template_questions q
		INNER JOIN template_sections s ON q.section_id = s.id
		WHERE s.template_id = $1
		ORDER BY s.sort_order ASC, s.id ASC, q.sort_order ASC, q.id ASC
	`
	qRows, err := r.db.Query(questionQuery, id)
	if err != nil {
		return nil, err
	}
	defer qRows.Close()

	for qRows.Next() {
		var question models.TemplateQuestion
		err := qRows.Scan(
			&question.ID,
			&question.SectionID,
			&question.Text,
			&question.HelpText,
			&question.AnswerType,
			pq.Array(&question.Choices),
			&question.Weight,
			&question.IsRequired,
			&question.SortOrder,
			&question.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if idx, ok := sectionIndex[question.SectionID]; ok {
			result.Sections[idx].Questions = append(result.Sections[idx].Questions, question)
		}
	}
	return result, qRows.Err()
}

// GetAll retrieves all active templates visible to an organization
func (r *TemplateRepository) GetAll(orgID uint) ([]models.AuditTemplate, error) {
	query := `
		SELECT id, organization_id, name, standard, description, version, is_active, created_by, created_at, updated_at
		FROM audit_templates
		WHERE is_active = true AND (organization_id IS NULL OR organization_id = $1)
		ORDER BY name ASC
	`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.AuditTemplate
	for rows.Next() {
		var template models.AuditTemplate
		err := rows.Scan(
			&template.ID,
			&template.OrganizationID,
			&template.Name,
			&template.Standard,
			&template.Description,
			&template.Version,
			&template.IsActive,
			&template.CreatedBy,
			&template.CreatedAt,
			&template.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	return templates, rows.Err()
}

// CountQuestions counts all questions of a template
func (r *TemplateRepository) CountQuestions(templateID uint) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM template_questions q
		INNER JOIN template_sections s ON q.section_id = s.id
		WHERE s.template_id = $1
	`
	err := r.db.QueryRow(query, templateID).Scan(&count)
	return count, err
}

// Deactivate marks a template as inactive so no new audits can use it
func (r *TemplateRepository) Deactivate(id, orgID uint) error {
	query := `
		UPDATE audit_templates
		SET is_active = false, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND organization_id = $2
	`
	_, err := r.db.Exec(query, id, orgID)
	return err
}
