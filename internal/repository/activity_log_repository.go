package repository

import (
	"database/sql"
	"fmt"

	"audithub/internal/models"
)

// ActivityLogRepository handles database operations for activity logs
type ActivityLogRepository struct {
	db *sql.DB
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *sql.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create inserts a new activity log entry
func (r *ActivityLogRepository) Create(log *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, action, resource, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRow(
		query,
		log.UserID,
		log.Action,
		log.Resource,
		log.Details,
		log.IPAddress,
		log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
}

// ActivityLogFilters holds optional filters for listing activity logs
type ActivityLogFilters struct {
	UserID   *uint
	Action   string
	Resource string
}

// List retrieves activity logs with optional filters, newest first
func (r *ActivityLogRepository) List(filters ActivityLogFilters, limit, offset int) ([]models.ActivityLog, error) {
	query := `
		SELECT al.id, al.user_id, u.email, al.action, al.resource, al.details, al.ip_address, al.user_agent, al.created_at
		FROM activity_logs al
		LEFT JOIN users u ON al.user_id = u.id
		WHERE 1=1
	`
	var args []interface{}
	argCount := 0

	if filters.UserID != nil {
		argCount++
		query += fmt.Sprintf(" AND al.user_id = $%d", argCount)
		args = append(args, *filters.UserID)
	}
	if filters.Action != "" {
		argCount++
		query += fmt.Sprintf(" AND al.action = $%d", argCount)
		args = append(args, filters.Action)
	}
	if filters.Resource != "" {
		argCount++
		query += fmt.Sprintf(" AND al.resource = $%d", argCount)
		args = append(args, filters.Resource)
	}

	argCount++
	query += fmt.Sprintf(" ORDER BY al.created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.UserEmail,
			&log.Action,
			&log.Resource,
			&log.Details,
			&log.IPAddress,
			&log.UserAgent,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
