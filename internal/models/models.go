package models

import (
	"time"
)

// Organization represents a tenant. Every audit, template and user belongs
// to exactly one organization.
type Organization struct {
	ID        uint      `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// User represents a user in the system
type User struct {
	ID             uint       `json:"id" db:"id"`
	OrganizationID uint       `json:"organization_id" db:"organization_id"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	FirstName      string     `json:"first_name" db:"first_name"`
	LastName       string     `json:"last_name" db:"last_name"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Role represents a user role
type Role struct {
	ID          uint      `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserRole represents the many-to-many relationship between users and roles
type UserRole struct {
	UserID    uint      `json:"user_id" db:"user_id"`
	RoleID    uint      `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserWithRoles extends User with roles information
type UserWithRoles struct {
	User
	Roles []Role `json:"roles"`
}

// Session represents a user session
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         uint      `json:"user_id" db:"user_id"`
	SessionID      string    `json:"session_id" db:"session_id"` // Groups access and refresh tokens from same login
	JTI            string    `json:"jti" db:"jti"`
	TokenType      string    `json:"token_type" db:"token_type"` // "access" or "refresh"
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	IPAddress      string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      string    `json:"user_agent,omitempty" db:"user_agent"`
}

// ActivityLog represents an activity log entry
type ActivityLog struct {
	ID        uint      `json:"id" db:"id"`
	UserID    *uint     `json:"user_id,omitempty" db:"user_id"`
	UserEmail *string   `json:"user_email,omitempty" db:"user_email"`
	Action    string    `json:"action" db:"action"`
	Resource  string    `json:"resource" db:"resource"`
	Details   string    `json:"details,omitempty" db:"details"`
	IPAddress string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OrgUnit represents a node in the organizational hierarchy that an audit
// can target. Type is one of: company, branch, department, team.
type OrgUnit struct {
	ID             uint      `json:"id" db:"id"`
	OrganizationID uint      `json:"organization_id" db:"organization_id"`
	ParentID       *uint     `json:"parent_id,omitempty" db:"parent_id"`
	Type           string    `json:"type" db:"type"`
	Name           string    `json:"name" db:"name"`
	Code           *string   `json:"code,omitempty" db:"code"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// AuditTemplate represents a reusable questionnaire (e.g. ISO 27701)
type AuditTemplate struct {
	ID             uint      `json:"id" db:"id"`
	OrganizationID *uint     `json:"organization_id,omitempty" db:"organization_id"` // nil for global templates
	Name           string    `json:"name" db:"name"`
	Standard       *string   `json:"standard,omitempty" db:"standard"`
	Description    *string   `json:"description,omitempty" db:"description"`
	Version        string    `json:"version" db:"version"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedBy      *uint     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TemplateSection represents an ordered, weighted group of questions
type TemplateSection struct {
	ID          uint      `json:"id" db:"id"`
	TemplateID  uint      `json:"template_id" db:"template_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Weight      float64   `json:"weight" db:"weight"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TemplateQuestion represents a single weighted question within a section.
/// AnswerType is one of: yes_no, yes_no_partial, scale_1_5, multiple_choice, text.
type TemplateQuestion struct {
	ID          uint      `json:"id" db:"id"`
	SectionID   uint      `json:"section_id" db:"section_id"`
	Text        string    `json:"text" db:"text"`
	HelpText    *string   `json:"help_text,omitempty" db:"help_text"`
	AnswerType  string    `json:"answer_type" db:"answer_type"`
	Choices     []string  `json:"choices,omitempty" db:"choices"`
	Weight      float64   `json:"weight" db:"weight"`
	IsRequired  bool      `json:"is_required" db:"is_required"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TemplateWithSections extends AuditTemplate with its full nested structure
type TemplateWithSections struct {
	AuditTemplate
	Sections []SectionWithQuestions `json:"sections"`
}

// SectionWithQuestions extends TemplateSection with its questions
type SectionWithQuestions struct {
	TemplateSection
	Questions []TemplateQuestion `json:"questions"`
}

// Audit represents a single audit run against a template.
// Status is one of: draft, in_progress, completed, reviewed.
type Audit struct {
	ID             uint       `json:"id" db:"id"`
	OrganizationID uint       `json:"organization_id" db:"organization_id"`
	TemplateID     uint       `json:"template_id" db:"template_id"`
	OrgUnitID      *uint      `json:"org_unit_id,omitempty" db:"org_unit_id"`
	Name           string     `json:"name" db:"name"`
	Status         string     `json:"status" db:"status"`
	CreatedBy      uint       `json:"created_by" db:"created_by"`
	AssignedTo     *uint      `json:"assigned_to,omitempty" db:"assigned_to"`
	Score          *float64   `json:"score,omitempty" db:"score"` // frozen at completion, full precision
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	DueDate        *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// AuditWithDetails extends Audit with joined template and user info
type AuditWithDetails struct {
	Audit
	TemplateName   string  `json:"template_name"`
	CreatorName    string  `json:"creator_name"`
	AssigneeName   *string `json:"assignee_name,omitempty"`
	OrgUnitName    *string `json:"org_unit_name,omitempty"`
	AnsweredCount  int     `json:"answered_count"`
	QuestionsTotal int     `json:"questions_total"`
}

// AuditAnswer represents the answer to one question of one audit.
// Revision increments on every write; stale writes are rejected.
type AuditAnswer struct {
	ID         uint      `json:"id" db:"id"`
	AuditID    uint      `json:"audit_id" db:"audit_id"`
	QuestionID uint      `json:"question_id" db:"question_id"`
	Value      string    `json:"value" db:"value"`
	Comment    *string   `json:"comment,omitempty" db:"comment"`
	Revision   int       `json:"revision" db:"revision"`
	AnsweredBy uint      `json:"answered_by" db:"answered_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SectionScore represents the frozen per-section breakdown persisted when
// an audit is completed
type SectionScore struct {
	ID                uint      `json:"id" db:"id"`
	AuditID           uint      `json:"audit_id" db:"audit_id"`
	SectionID         uint      `json:"section_id" db:"section_id"`
	SectionName       string    `json:"section_name" db:"section_name"`
	Percentage        float64   `json:"percentage" db:"percentage"`
	TotalWeight       float64   `json:"total_weight" db:"total_weight"`
	QuestionsAnswered int       `json:"questions_answered" db:"questions_answered"`
	QuestionsTotal    int       `json:"questions_total" db:"questions_total"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Recommendation represents a remediation item generated at audit
// completion. Priority is one of: critical, high, medium, low.
// Status is one of: open, in_progress, done, dismissed.
type Recommendation struct {
	ID         uint      `json:"id" db:"id"`
	AuditID    uint      `json:"audit_id" db:"audit_id"`
	SectionID  *uint     `json:"section_id,omitempty" db:"section_id"`
	QuestionID *uint     `json:"question_id,omitempty" db:"question_id"`
	Priority   string    `json:"priority" db:"priority"`
	Text       string    `json:"text" db:"text"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// QuestionWithAnswer merges a template question with the audit's current
// answer (if any) for the resume view
type QuestionWithAnswer struct {
	TemplateQuestion
	Answer *AuditAnswer `json:"answer,omitempty"`
}

// SectionWithAnswers groups questions with answers per section
type SectionWithAnswers struct {
	TemplateSection
	Questions []QuestionWithAnswer `json:"questions"`
}

// AuditProgress reports live completeness and a score preview over the
// answers submitted so far
type AuditProgress struct {
	AuditID           uint    `json:"audit_id"`
	Status            string  `json:"status"`
	QuestionsTotal    int     `json:"questions_total"`
	QuestionsAnswered int     `json:"questions_answered"`
	PercentComplete   float64 `json:"percent_complete"`
	PreviewScore      float64 `json:"preview_score"`
	IsComplete        bool    `json:"is_complete"`
}

// SectionResult is the presentation form of one section's score,
// rounded to one decimal
type SectionResult struct {
	SectionID         uint    `json:"section_id"`
	SectionName       string  `json:"section_name"`
	Percentage        float64 `json:"percentage"`
	TotalWeight       float64 `json:"total_weight"`
	QuestionsAnswered int     `json:"questions_answered"`
	QuestionsTotal    int     `json:"questions_total"`
}

// AuditResults is the frozen report for a completed or reviewed audit
type AuditResults struct {
	AuditID         uint             `json:"audit_id"`
	AuditName       string           `json:"audit_name"`
	TemplateName    string           `json:"template_name"`
	Status          string           `json:"status"`
	OverallScore    float64          `json:"overall_score"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	Sections        []SectionResult  `json:"sections"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ComparisonEntry is one audit's row in a comparison result
type ComparisonEntry struct {
	AuditID     uint       `json:"audit_id"`
	AuditName   string     `json:"audit_name"`
	Score       float64    `json:"score"`
	Rank        int        `json:"rank"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SectionComparisonRow is one section's scores across the compared audits,
// keyed by audit id in the same order as the entries
type SectionComparisonRow struct {
	SectionID   uint      `json:"section_id"`
	SectionName string    `json:"section_name"`
	Scores      []float64 `json:"scores"`
}

// ComparisonResult compares 2-5 completed audits of the same template
type ComparisonResult struct {
	TemplateID   uint                   `json:"template_id"`
	TemplateName string                 `json:"template_name"`
	Entries      []ComparisonEntry      `json:"entries"`
	Best         ComparisonEntry        `json:"best"`
	Worst        ComparisonEntry        `json:"worst"`
	AverageScore float64                `json:"average_score"`
	Sections     []SectionComparisonRow `json:"sections"`
}

// StatusCount is a count of audits per status
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// LevelCount is a count of audits per organizational unit type
type LevelCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// ScoreTrendPoint is one completed audit on the dashboard trend line
type ScoreTrendPoint struct {
	AuditID     uint      `json:"audit_id"`
	AuditName   string    `json:"audit_name"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// DashboardStats aggregates audit statistics over the audits the caller
// is allowed to see
type DashboardStats struct {
	TotalAudits         int                `json:"total_audits"`
	ByStatus            []StatusCount      `json:"by_status"`
	ByLevel             []LevelCount       `json:"by_level"`
	AverageScore        *float64           `json:"average_score,omitempty"`
	BestScore           *float64           `json:"best_score,omitempty"`
	WorstScore          *float64           `json:"worst_score,omitempty"`
	OpenRecommendations int                `json:"open_recommendations"`
	ScoreTrend          []ScoreTrendPoint  `json:"score_trend"`
	RecentAudits        []AuditWithDetails `json:"recent_audits"`
}
