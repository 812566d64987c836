package repository

import (
	"database/sql"
	"log/slog"

	"audithub/internal/models"
)

// SectionScoreRepository handles database operations for frozen section scores
type SectionScoreRepository struct {
	db *sql.DB
}

// NewSectionScoreRepository creates a new section score repository
func NewSectionScoreRepository(db *sql.DB) *SectionScoreRepository {
	return &SectionScoreRepository{db: db}
}

// ReplaceForAudit replaces the frozen breakdown of an audit in one transaction
func (r *SectionScoreRepository) ReplaceForAudit(auditID uint, scores []models.SectionScore) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(`DELETE FROM section_scores WHERE audit_id = $1`, auditID); err != nil {
		return err
	}

	query := `
		INSERT INTO section_scores (audit_id, section_id, section_name, percentage, total_weight, questions_answered, questions_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, score := range scores {
		_, err := tx.Exec(
			query,
			auditID,
			score.SectionID,
			score.SectionName,
			score.Percentage,
			score.TotalWeight,
			score.QuestionsAnswered,
			score.QuestionsTotal,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByAudit retrieves the frozen breakdown of an audit in section order
func (r *SectionScoreRepository) GetByAudit(auditID uint) ([]models.SectionScore, error) {
	query := `
		SELECT ss.id, ss.audit_id, ss.section_id, ss.section_name, ss.percentage, ss.total_weight,
		       ss.questions_answered, ss.questions_total, ss.created_at
		FROM section_scores ss
		INNER JOIN template_sections ts ON ss.section_id = ts.id
		WHERE ss.audit_id = $1
		ORDER BY ts.sort_order ASC, ts.id ASC
	`
	rows, err := r.db.Query(query, auditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.SectionScore
	for rows.Next() {
		var score models.SectionScore
		err := rows.Scan(
			&score.ID,
			&score.AuditID,
			&score.SectionID,
			&score.SectionName,
			&score.Percentage,
			&score.TotalWeight,
			&score.QuestionsAnswered,
			&score.QuestionsTotal,
			&score.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// DeleteByAudit removes the frozen breakdown, used when an audit is reopened
func (r *SectionScoreRepository) DeleteByAudit(auditID uint) error {
	query := `DELETE FROM section_scores WHERE audit_id = $1`
	_, err := r.db.Exec(query, auditID)
	return err
}
