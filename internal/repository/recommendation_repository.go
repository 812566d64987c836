package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"audithub/internal/models"
)

// RecommendationRepository handles database operations for recommendations
type RecommendationRepository struct {
	db *sql.DB
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// ReplaceForAudit replaces all recommendations of an audit in one transaction.
// Called at audit completion; reopening clears them the same way.
func (r *RecommendationRepository) ReplaceForAudit(auditID uint, recommendations []models.Recommendation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(`DELETE FROM recommendations WHERE audit_id = $1`, auditID); err != nil {
		return err
	}

	query := `
		INSERT INTO recommendations (audit_id, section_id, question_id, priority, text, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, rec := range recommendations {
		status := rec.Status
		if status == "" {
			status = "open"
		}
		_, err := tx.Exec(query, auditID, rec.SectionID, rec.QuestionID, rec.Priority, rec.Text, status)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByAudit retrieves all recommendations of an audit, most severe first
func (r *RecommendationRepository) GetByAudit(auditID uint) ([]models.Recommendation, error) {
	query := `
		SELECT id, audit_id, section_id, question_id, priority, text, status, created_at, updated_at
		FROM recommendations
		WHERE audit_id = $1
		ORDER BY CASE priority
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, id ASC
	`
	return r.queryRecommendations(query, auditID)
}

// GetByOrganization retrieves recommendations across all audits of an
// organization, optionally filtered by status
func (r *RecommendationRepository) GetByOrganization(orgID uint, status string, limit, offset int) ([]models.Recommendation, error) {
	query := `
		SELECT rec.id, rec.audit_id, rec.section_id, rec.question_id, rec.priority, rec.text, rec.status, rec.created_at, rec.updated_at
		FROM recommendations rec
		INNER JOIN audits a ON rec.audit_id = a.id
		WHERE a.organization_id = $1
	`
	args := []interface{}{orgID}
	argCount := 1

	if status != "" {
		argCount++
		query += fmt.Sprintf(" AND rec.status = $%d", argCount)
		args = append(args, status)
	}

	argCount++
	query += fmt.Sprintf(" ORDER BY rec.created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	return r.queryRecommendations(query, args...)
}

// GetByID retrieves a recommendation scoped to an organization
func (r *RecommendationRepository) GetByID(id, orgID uint) (*models.Recommendation, error) {
	var rec models.Recommendation
	query := `
		SELECT rec.id, rec.audit_id, rec.section_id, rec.question_id, rec.priority, rec.text, rec.status, rec.created_at, rec.updated_at
		FROM recommendations rec
		INNER JOIN audits a ON rec.audit_id = a.id
		WHERE rec.id = $1 AND a.organization_id = $2
	`
	err := r.db.QueryRow(query, id, orgID).Scan(
		&rec.ID,
		&rec.AuditID,
		&rec.SectionID,
		&rec.QuestionID,
		&rec.Priority,
		&rec.Text,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateStatus updates the remediation status of a recommendation
func (r *RecommendationRepository) UpdateStatus(id uint, status string) error {
	query := `
		UPDATE recommendations
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.Exec(query, status, id)
	return err
}

// CountOpenByOrganization counts open recommendations of an organization
func (r *RecommendationRepository) CountOpenByOrganization(orgID uint, visibleTo *uint) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM recommendations rec
		INNER JOIN audits a ON rec.audit_id = a.id
		WHERE a.organization_id = $1 AND rec.status = 'open'
		  AND ($2::bigint IS NULL OR a.created_by = $2 OR a.assigned_to = $2)
	`
	err := r.db.QueryRow(query, orgID, visibleTo).Scan(&count)
	return count, err
}

func (r *RecommendationRepository) queryRecommendations(query string, args ...interface{}) ([]models.Recommendation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recommendations []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		err := rows.Scan(
			&rec.ID,
			&rec.AuditID,
			&rec.SectionID,
			&rec.QuestionID,
			&rec.Priority,
			&rec.Text,
			&rec.Status,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		recommendations = append(recommendations, rec)
	}
	return recommendations, rows.Err()
}
