package testutil

import (
	"database/sql"
	"testing"

	"audithub/internal/models"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures holds test data
type Fixtures struct {
	DB           *sql.DB
	Organization *models.Organization
	OwnerUser    *models.User
	EmployeeUser *models.User
	Template     *models.AuditTemplate
	Sections     []models.TemplateSection
	Questions    []models.TemplateQuestion
}

// SetupFixtures creates an organization with an owner, an employee and
// one two-section template
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	fixtures := &Fixtures{
		DB: db,
	}

	fixtures.Organization = createOrganization(t, db, "Test Org", "test-org")

	ownerRole := getRole(t, db, "owner")
	employeeRole := getRole(t, db, "employee")

	fixtures.OwnerUser = createUser(t, db, fixtures.Organization.ID, "owner@test.com", "Owner", "User", []uint{ownerRole.ID})
	fixtures.EmployeeUser = createUser(t, db, fixtures.Organization.ID, "employee@test.com", "Employee", "User", []uint{employeeRole.ID})

	fixtures.Template = createTemplate(t, db, fixtures.Organization.ID, fixtures.OwnerUser.ID)
	fixtures.Sections, fixtures.Questions = createSections(t, db, fixtures.Template.ID)

	return fixtures
}

// createOrganization creates an organization
func createOrganization(t *testing.T, db *sql.DB, name, slug string) *models.Organization {
	t.Helper()

	var org models.Organization
	err := db.QueryRow(`
		INSERT INTO organizations (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug, created_at, updated_at
	`, name, slug).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create organization %s: %v", name, err)
	}

	return &org
}

// getRole looks up a seeded role by name
func getRole(t *testing.T, db *sql.DB, name string) *models.Role {
	t.Helper()

	var role models.Role
	err := db.QueryRow(
		"SELECT id, name, description, created_at FROM roles WHERE name = $1",
		name,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to get role %s: %v", name, err)
	}

	return &role
}

// createUser creates a user with specified roles
func createUser(t *testing.T, db *sql.DB, orgID uint, email, firstName, lastName string, roleIDs []uint) *models.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var user models.User
	err = db.QueryRow(`
		INSERT INTO users (organization_id, email, password_hash, first_name, last_name, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id, organization_id, email, first_name, last_name, is_active, created_at, updated_at
	`, orgID, email, string(hashedPassword), firstName, lastName).Scan(
		&user.ID, &user.OrganizationID, &user.Email, &user.FirstName, &user.LastName,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}

	for _, roleID := range roleIDs {
		if _, err := db.Exec("INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)", user.ID, roleID); err != nil {
			t.Fatalf("Failed to assign role %d to user %s: %v", roleID, email, err)
		}
	}

	return &user
}

// createTemplate creates an active template
func createTemplate(t *testing.T, db *sql.DB, orgID, createdBy uint) *models.AuditTemplate {
	t.Helper()

	var template models.AuditTemplate
	err := db.QueryRow(`
		INSERT INTO audit_templates (organization_id, name, standard, version, is_active, created_by)
		VALUES ($1, 'ISO 27001 Baseline', 'ISO 27001', '1.0', true, $2)
		RETURNING id, organization_id, name, version, is_active, created_at, updated_at
	`, orgID, createdBy).Scan(
		&template.ID, &template.OrganizationID, &template.Name, &template.Version,
		&template.IsActive, &template.CreatedAt, &template.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	return &template
}

// createSections creates two weighted sections with a mix of question types
func createSections(t *testing.T, db *sql.DB, templateID uint) ([]models.TemplateSection, []models.TemplateQuestion) {
	t.Helper()

	sections := []struct {
		name   string
		weight float64
	}{
		{"Access Control", 60},
		{"Data Protection", 40},
	}

	var createdSections []models.TemplateSection
	var createdQuestions []models.TemplateQuestion

	for i, sec := range sections {
		var section models.TemplateSection
		err := db.QueryRow(`
			INSERT INTO template_sections (template_id, name, weight, sort_order)
			VALUES ($1, $2, $3, $4)
			RETURNING id, template_id, name, weight, sort_order, created_at
		`, templateID, sec.name, sec.weight, i+1).Scan(
			&section.ID, &section.TemplateID, &section.Name, &section.Weight,
			&section.SortOrder, &section.CreatedAt,
		)
		if err != nil {
			t.Fatalf("Failed to create section %s: %v", sec.name, err)
		}
		createdSections = append(createdSections, section)

		questions := []struct {
			text       string
			answerType string
			weight     float64
			required   bool
		}{
			{"Is multi-factor authentication enforced?", "yes_no", 10, true},
			{"Rate the password policy maturity", "scale_1_5", 10, false},
		}
		for j, q := range questions {
			var question models.TemplateQuestion
			err := db.QueryRow(`
				INSERT INTO template_questions (section_id, text, answer_type, choices, weight, is_required, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id, section_id, text, answer_type, weight, is_required, sort_order, created_at
			`, section.ID, q.text, q.answerType, pq.Array([]string{}), q.weight, q.required, j+1).Scan(
				&question.ID, &question.SectionID, &question.Text, &question.AnswerType,
				&question.Weight, &question.IsRequired, &question.SortOrder, &question.CreatedAt,
			)
			if err != nil {
				t.Fatalf("Failed to create question: %v", err)
			}
			createdQuestions = append(createdQuestions, question)
		}
	}

	return createdSections, createdQuestions
}

// CreateAudit creates a draft audit for the fixture template
func (f *Fixtures) CreateAudit(t *testing.T, name string, createdBy uint) *models.Audit {
	t.Helper()

	var audit models.Audit
	err := f.DB.QueryRow(`
		INSERT INTO audits (organization_id, template_id, name, status, created_by)
		VALUES ($1, $2, $3, 'draft', $4)
		RETURNING id, organization_id, template_id, name, status, created_by, created_at, updated_at
	`, f.Organization.ID, f.Template.ID, name, createdBy).Scan(
		&audit.ID, &audit.OrganizationID, &audit.TemplateID, &audit.Name,
		&audit.Status, &audit.CreatedBy, &audit.CreatedAt, &audit.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create audit %s: %v", name, err)
	}

	return &audit
}

// AnswerAll answers every fixture question with the given value
func (f *Fixtures) AnswerAll(t *testing.T, auditID, answeredBy uint, value string) {
	t.Helper()

	for _, question := range f.Questions {
		_, err := f.DB.Exec(`
			INSERT INTO audit_answers (audit_id, question_id, value, revision, answered_by)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (audit_id, question_id)
			DO UPDATE SET value = $3, revision = audit_answers.revision + 1, updated_at = NOW()
		`, auditID, question.ID, value, answeredBy)
		if err != nil {
			t.Fatalf("Failed to answer question %d: %v", question.ID, err)
		}
	}
}

// Cleanup removes all test data
func (f *Fixtures) Cleanup(t *testing.T) {
	t.Helper()

	// Cleanup is handled by container termination
	// Data is not persisted between tests
}
