package repository

import (
	"database/sql"
	"fmt"
	"time"

	"audithub/internal/models"

	"github.com/lib/pq"
)

// AuditRepository handles database operations for audits
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit in draft status
func (r *AuditRepository) Create(audit *models.Audit) error {
	query := `
		INSERT INTO audits (organization_id, template_id, org_unit_id, name, status, created_by, assigned_to, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		query,
		audit.OrganizationID,
		audit.TemplateID,
		audit.OrgUnitID,
		audit.Name,
		audit.Status,
		audit.CreatedBy,
		audit.AssignedTo,
		audit.DueDate,
	).Scan(&audit.ID, &audit.CreatedAt, &audit.UpdatedAt)
}

// GetByID retrieves an audit by ID within an organization
func (r *AuditRepository) GetByID(id, orgID uint) (*models.Audit, error) {
	var audit models.Audit
	query := `
		SELECT id, organization_id, template_id, org_unit_id, name, status, created_by, assigned_to,
		       score, started_at, completed_at, reviewed_at, due_date, created_at, updated_at
		FROM audits
		WHERE id = $1 AND organization_id = $2
	`
	err := r.db.QueryRow(query, id, orgID).Scan(
		&audit.ID,
		&audit.OrganizationID,
		&audit.TemplateID,
		&audit.OrgUnitID,
		&audit.Name,
		&audit.Status,
		&audit.CreatedBy,
		&audit.AssignedTo,
		&audit.Score,
		&audit.StartedAt,
		&audit.CompletedAt,
		&audit.ReviewedAt,
		&audit.DueDate,
		&audit.CreatedAt,
		&audit.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &audit, nil
}

const auditDetailsSelect = `
	SELECT a.id, a.organization_id, a.template_id, a.org_unit_id, a.name, a.status, a.created_by, a.assigned_to,
	       a.score, a.started_at, a.completed_at, a.reviewed_at, a.due_date, a.created_at, a.updated_at,
	       t.name AS template_name,
	       CONCAT(cu.first_name, ' ', cu.last_name) AS creator_name,
	       CASE WHEN au.id IS NULL THEN NULL ELSE CONCAT(au.first_name, ' ', au.last_name) END AS assignee_name,
	       ou.name AS org_unit_name,
	       (SELECT COUNT(*) FROM audit_answers ans WHERE ans.audit_id = a.id) AS answered_count,
	       (SELECT COUNT(*) FROM template_questions q
	          INNER JOIN template_sections s ON q.section_id = s.id
	          WHERE s.template_id = a.template_id) AS questions_total
	FROM audits a
	INNER JOIN audit_templates t ON a.template_id = t.id
	INNER JOIN users cu ON a.created_by = cu.id
	LEFT JOIN users au ON a.assigned_to = au.id
	LEFT JOIN org_units ou ON a.org_unit_id = ou.id
`

func scanAuditDetails(rows interface{ Scan(...interface{}) error }) (models.AuditWithDetails, error) {
	var a models.AuditWithDetails
	err := rows.Scan(
		&a.ID,
		&a.OrganizationID,
		&a.TemplateID,
		&a.OrgUnitID,
		&a.Name,
		&a.Status,
		&a.CreatedBy,
		&a.AssignedTo,
		&a.Score,
		&a.StartedAt,
		&a.CompletedAt,
		&a.ReviewedAt,
		&a.DueDate,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.TemplateName,
		&a.CreatorName,
		&a.AssigneeName,
		&a.OrgUnitName,
		&a.AnsweredCount,
		&a.QuestionsTotal,
	)
	return a, err
}

// GetWithDetails retrieves an audit with joined template, user and progress info
func (r *AuditRepository) GetWithDetails(id, orgID uint) (*models.AuditWithDetails, error) {
	query := auditDetailsSelect + ` WHERE a.id = $1 AND a.organization_id = $2`
	audit, err := scanAuditDetails(r.db.QueryRow(query, id, orgID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &audit, nil
}

// AuditFilters holds optional filters for listing audits
type AuditFilters struct {
	Status     string
	TemplateID *uint
	OrgUnitID  *uint
	// VisibleTo restricts results to audits created by or assigned to this
	// user. Nil means no restriction (owners see everything).
	VisibleTo *uint
}

// GetByOrganization retrieves audits of an organization with optional filters
func (r *AuditRepository) GetByOrganization(orgID uint, filters AuditFilters, limit, offset int) ([]models.AuditWithDetails, error) {
	query := auditDetailsSelect + ` WHERE a.organization_id = $1`
	args := []interface{}{orgID}
	argCount := 1

	if filters.Status != "" {
		argCount++
		query += fmt.Sprintf(" AND a.status = $%d", argCount)
		args = append(args, filters.Status)
	}
	if filters.TemplateID != nil {
		argCount++
		query += fmt.Sprintf(" AND a.template_id = $%d", argCount)
		args = append(args, *filters.TemplateID)
	}
	if filters.OrgUnitID != nil {
		argCount++
		query += fmt.Sprintf(" AND a.org_unit_id = $%d", argCount)
		args = append(args, *filters.OrgUnitID)
	}
	if filters.VisibleTo != nil {
		argCount++
		query += fmt.Sprintf(" AND (a.created_by = $%d OR a.assigned_to = $%d)", argCount, argCount)
		args = append(args, *filters.VisibleTo)
	}

	argCount++
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []models.AuditWithDetails
	for rows.Next() {
		audit, err := scanAuditDetails(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

// GetByIDs retrieves several audits of an organization at once, preserving
// no particular order
func (r *AuditRepository) GetByIDs(ids []uint, orgID uint) ([]models.AuditWithDetails, error) {
	query := auditDetailsSelect + ` WHERE a.organization_id = $1 AND a.id = ANY($2)`

	int64IDs := make([]int64, len(ids))
	for i, id := range ids {
		int64IDs[i] = int64(id)
	}

	rows, err := r.db.Query(query, orgID, pq.Array(int64IDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []models.AuditWithDetails
	for rows.Next() {
		audit, err := scanAuditDetails(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

// Update updates an audit's editable metadata
func (r *AuditRepository) Update(audit *models.Audit) error {
	query := `
		UPDATE audits
		SET name = $1, org_unit_id = $2, assigned_to = $3, due_date = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5 AND organization_id = $6
	`
	_, err := r.db.Exec(query, audit.Name, audit.OrgUnitID, audit.AssignedTo, audit.DueDate, audit.ID, audit.OrganizationID)
	return err
}

// MarkStarted transitions an audit to in_progress
func (r *AuditRepository) MarkStarted(id uint) error {
	query := `
		UPDATE audits
		SET status = 'in_progress', started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id)
	return err
}

// MarkCompleted freezes the computed score and transitions to completed
func (r *AuditRepository) MarkCompleted(id uint, score float64) error {
	query := `
		UPDATE audits
		SET status = 'completed', score = $1, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.Exec(query, score, id)
	return err
}

// MarkReviewed transitions a completed audit to reviewed, without recompute
func (r *AuditRepository) MarkReviewed(id uint) error {
	query := `
		UPDATE audits
		SET status = 'reviewed', reviewed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id)
	return err
}

// MarkUnreviewed moves a reviewed audit back to completed
func (r *AuditRepository) MarkUnreviewed(id uint) error {
	query := `
		UPDATE audits
		SET status = 'completed', reviewed_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id)
	return err
}

// Reopen moves a completed audit back to in_progress and clears the frozen score
func (r *AuditRepository) Reopen(id uint) error {
	query := `
		UPDATE audits
		SET status = 'in_progress', score = NULL, completed_at = NULL, reviewed_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id)
	return err
}

// Delete deletes an audit and its dependent rows (cascaded by the schema)
func (r *AuditRepository) Delete(id, orgID uint) error {
	query := `DELETE FROM audits WHERE id = $1 AND organization_id = $2`
	_, err := r.db.Exec(query, id, orgID)
	return err
}

// CountByOrgUnit counts audits targeting an org unit
func (r *AuditRepository) CountByOrgUnit(orgUnitID uint) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM audits WHERE org_unit_id = $1`
	err := r.db.QueryRow(query, orgUnitID).Scan(&count)
	return count, err
}

// CountByStatus returns the audit counts per status for an organization.
// A non-nil visibleTo restricts the count to audits created by or
// assigned to that user, matching list visibility for non-owners.
func (r *AuditRepository) CountByStatus(orgID uint, visibleTo *uint) ([]models.StatusCount, error) {
	query := `
		SELECT status, COUNT(*)
		FROM audits
		WHERE organization_id = $1
		  AND ($2::bigint IS NULL OR created_by = $2 OR assigned_to = $2)
		GROUP BY status
		ORDER BY status ASC
	`
	rows, err := r.db.Query(query, orgID, visibleTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.StatusCount
	for rows.Next() {
		var sc models.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}

// GetScoreTrend returns completed audits ordered by completion time for the
// dashboard trend line
func (r *AuditRepository) GetScoreTrend(orgID uint, visibleTo *uint, limit int) ([]models.ScoreTrendPoint, error) {
	query := `
		SELECT id, name, score, completed_at
		FROM audits
		WHERE organization_id = $1 AND score IS NOT NULL AND completed_at IS NOT NULL
		  AND ($2::bigint IS NULL OR created_by = $2 OR assigned_to = $2)
		ORDER BY completed_at ASC
		LIMIT $3
	`
	rows, err := r.db.Query(query, orgID, visibleTo, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.ScoreTrendPoint
	for rows.Next() {
		var p models.ScoreTrendPoint
		if err := rows.Scan(&p.AuditID, &p.AuditName, &p.Score, &p.CompletedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetScoreStats returns average, best and worst frozen scores for an organization
func (r *AuditRepository) GetScoreStats(orgID uint, visibleTo *uint) (avg, best, worst *float64, err error) {
	query := `
		SELECT AVG(score), MAX(score), MIN(score)
		FROM audits
		WHERE organization_id = $1 AND score IS NOT NULL
		  AND ($2::bigint IS NULL OR created_by = $2 OR assigned_to = $2)
	`
	err = r.db.QueryRow(query, orgID, visibleTo).Scan(&avg, &best, &worst)
	return avg, best, worst, err
}

// CountByLevel returns the audit counts per organizational unit type.
// Audits without an org unit are reported under "unassigned".
func (r *AuditRepository) CountByLevel(orgID uint, visibleTo *uint) ([]models.LevelCount, error) {
	query := `
		SELECT COALESCE(u.type, 'unassigned'), COUNT(*)
		FROM audits a
		LEFT JOIN org_units u ON u.id = a.org_unit_id
		WHERE a.organization_id = $1
		  AND ($2::bigint IS NULL OR a.created_by = $2 OR a.assigned_to = $2)
		GROUP BY COALESCE(u.type, 'unassigned')
		ORDER BY 1 ASC
	`
	rows, err := r.db.Query(query, orgID, visibleTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.LevelCount
	for rows.Next() {
		var lc models.LevelCount
		if err := rows.Scan(&lc.Level, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}
	return counts, rows.Err()
}

// GetStale retrieves audits in the given statuses not updated since the cutoff.
// Used by the scheduler for reminder emails.
func (r *AuditRepository) GetStale(statuses []string, cutoff time.Time) ([]models.AuditWithDetails, error) {
	query := auditDetailsSelect + ` WHERE a.status = ANY($1) AND a.updated_at < $2 ORDER BY a.updated_at ASC`
	rows, err := r.db.Query(query, pq.Array(statuses), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []models.AuditWithDetails
	for rows.Next() {
		audit, err := scanAuditDetails(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

// GetDueSoon retrieves open audits whose due date falls before the deadline
func (r *AuditRepository) GetDueSoon(deadline time.Time) ([]models.AuditWithDetails, error) {
	query := auditDetailsSelect + `
		WHERE a.status IN ('draft', 'in_progress')
		  AND a.due_date IS NOT NULL
		  AND a.due_date <= $1
		ORDER BY a.due_date ASC`
	rows, err := r.db.Query(query, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []models.AuditWithDetails
	for rows.Next() {
		audit, err := scanAuditDetails(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}
