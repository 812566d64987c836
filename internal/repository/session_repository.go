package repository

import (
	"database/sql"

	"audithub/internal/models"
)

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session
func (r *SessionRepository) Create(session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, session_id, jti, token_type, expires_at, last_activity_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, $7, $8)
		RETURNING created_at
	`
	return r.db.QueryRow(
		query,
		session.ID,
		session.UserID,
		session.SessionID,
		session.JTI,
		session.TokenType,
		session.ExpiresAt,
		session.IPAddress,
		session.UserAgent,
	).Scan(&session.CreatedAt)
}

// GetByJTI retrieves a session by its token's JTI
func (r *SessionRepository) GetByJTI(jti string) (*models.Session, error) {
	var session models.Session
	query := `
		SELECT id, user_id, session_id, jti, token_type, expires_at, last_activity_at, created_at, ip_address, user_agent
		FROM sessions
		WHERE jti = $1 AND expires_at > CURRENT_TIMESTAMP
	`
	err := r.db.QueryRow(query, jti).Scan(
		&session.ID,
		&session.UserID,
		&session.SessionID,
		&session.JTI,
		&session.TokenType,
		&session.ExpiresAt,
		&session.LastActivityAt,
		&session.CreatedAt,
		&session.IPAddress,
		&session.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByUserID retrieves all active sessions for a user
func (r *SessionRepository) GetByUserID(userID uint) ([]models.Session, error) {
	query := `
		SELECT id, user_id, session_id, jti, token_type, expires_at, last_activity_at, created_at, ip_address, user_agent
		FROM sessions
		WHERE user_id = $1 AND expires_at > CURRENT_TIMESTAMP
		ORDER BY last_activity_at DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.SessionID,
			&session.JTI,
			&session.TokenType,
			&session.ExpiresAt,
			&session.LastActivityAt,
			&session.CreatedAt,
			&session.IPAddress,
			&session.UserAgent,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateLastActivity updates the last activity timestamp for all tokens of a login
func (r *SessionRepository) UpdateLastActivity(sessionID string) error {
	query := `UPDATE sessions SET last_activity_at = CURRENT_TIMESTAMP WHERE session_id = $1`
	_, err := r.db.Exec(query, sessionID)
	return err
}

// DeleteByJTI deletes a session by JTI
func (r *SessionRepository) DeleteByJTI(jti string) error {
	query := `DELETE FROM sessions WHERE jti = $1`
	_, err := r.db.Exec(query, jti)
	return err
}

// DeleteBySessionID deletes all tokens belonging to one login
func (r *SessionRepository) DeleteBySessionID(sessionID string) error {
	query := `DELETE FROM sessions WHERE session_id = $1`
	_, err := r.db.Exec(query, sessionID)
	return err
}

// DeleteAllUserSessions deletes all sessions for a user
func (r *SessionRepository) DeleteAllUserSessions(userID uint) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.db.Exec(query, userID)
	return err
}

// DeleteExpiredSessions removes all expired sessions
func (r *SessionRepository) DeleteExpiredSessions() error {
	query := `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`
	_, err := r.db.Exec(query)
	return err
}
