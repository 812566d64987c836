package repository

import (
	"database/sql"
	"errors"
	"log/slog"

	"audithub/internal/models"
)

// ErrStaleRevision is returned when an answer write carries a revision that
// no longer matches the stored row
var ErrStaleRevision = errors.New("answer revision is stale")

// AnswerRepository handles database operations for audit answers
type AnswerRepository struct {
	db *sql.DB
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(db *sql.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// Upsert inserts or updates the answer for one question of one audit.
// If expectedRevision is non-nil it must match the stored revision, otherwise
// ErrStaleRevision is returned and nothing is written. Every successful write
// increments the revision.
func (r *AnswerRepository) Upsert(answer *models.AuditAnswer, expectedRevision *int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	var currentRevision int
	lockQuery := `
		SELECT revision FROM audit_answers
		WHERE audit_id = $1 AND question_id = $2
		FOR UPDATE
	`
	err = tx.QueryRow(lockQuery, answer.AuditID, answer.QuestionID).Scan(&currentRevision)
	switch {
	case err == sql.ErrNoRows:
		if expectedRevision != nil && *expectedRevision != 0 {
			return ErrStaleRevision
		}
		insertQuery := `
			INSERT INTO audit_answers (audit_id, question_id, value, comment, revision, answered_by)
			VALUES ($1, $2, $3, COALESCE($4, ''), 1, $5)
			RETURNING id, revision, created_at, updated_at
		`
		err = tx.QueryRow(
			insertQuery,
			answer.AuditID,
			answer.QuestionID,
			answer.Value,
			answer.Comment,
			answer.AnsweredBy,
		).Scan(&answer.ID, &answer.Revision, &answer.CreatedAt, &answer.UpdatedAt)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if expectedRevision != nil && *expectedRevision != currentRevision {
			return ErrStaleRevision
		}
		updateQuery := `
			UPDATE audit_answers
			SET value = $1, comment = COALESCE($2, ''), revision = revision + 1, answered_by = $3, updated_at = CURRENT_TIMESTAMP
			WHERE audit_id = $4 AND question_id = $5
			RETURNING id, revision, created_at, updated_at
		`
		err = tx.QueryRow(
			updateQuery,
			answer.Value,
			answer.Comment,
			answer.AnsweredBy,
			answer.AuditID,
			answer.QuestionID,
		).Scan(&answer.ID, &answer.Revision, &answer.CreatedAt, &answer.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByAudit retrieves all answers of an audit ordered by question
func (r *AnswerRepository) GetByAudit(auditID uint) ([]models.AuditAnswer, error) {
	query := `
		SELECT id, audit_id, question_id, value, comment, revision, answered_by, created_at, updated_at
		FROM audit_answers
		WHERE audit_id = $1
		ORDER BY question_id ASC
	`
	rows, err := r.db.Query(query, auditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.AuditAnswer
	for rows.Next() {
		var answer models.AuditAnswer
		err := rows.Scan(
			&answer.ID,
			&answer.AuditID,
			&answer.QuestionID,
			&answer.Value,
			&answer.Comment,
			&answer.Revision,
			&answer.AnsweredBy,
			&answer.CreatedAt,
			&answer.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return answers, rows.Err()
}

// GetMapByAudit retrieves all answers of an audit keyed by question ID
func (r *AnswerRepository) GetMapByAudit(auditID uint) (map[uint]models.AuditAnswer, error) {
	answers, err := r.GetByAudit(auditID)
	if err != nil {
		return nil, err
	}
	answerMap := make(map[uint]models.AuditAnswer, len(answers))
	for _, answer := range answers {
		answerMap[answer.QuestionID] = answer
	}
	return answerMap, nil
}

// CountByAudit counts the answers of an audit
func (r *AnswerRepository) CountByAudit(auditID uint) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM audit_answers WHERE audit_id = $1`
	err := r.db.QueryRow(query, auditID).Scan(&count)
	return count, err
}
