package repository

import (
	"database/sql"
	"fmt"

	"audithub/internal/models"
)

// OrgUnitRepository handles database operations for organizational units
type OrgUnitRepository struct {
	db *sql.DB
}

// NewOrgUnitRepository creates a new org unit repository
func NewOrgUnitRepository(db *sql.DB) *OrgUnitRepository {
	return &OrgUnitRepository{db: db}
}

// Create inserts a new org unit
func (r *OrgUnitRepository) Create(unit *models.OrgUnit) error {
	query := `
		INSERT INTO org_units (organization_id, parent_id, type, name, code, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		query,
		unit.OrganizationID,
		unit.ParentID,
		unit.Type,
		unit.Name,
		unit.Code,
		unit.IsActive,
	).Scan(&unit.ID, &unit.CreatedAt, &unit.UpdatedAt)
}

// GetByID retrieves an org unit by ID within an organization
func (r *OrgUnitRepository) GetByID(id, orgID uint) (*models.OrgUnit, error) {
	var unit models.OrgUnit
	query := `
		SELECT id, organization_id, parent_id, type, name, code, is_active, created_at, updated_at
		FROM org_units
		WHERE id = $1 AND organization_id = $2
	`
	err := r.db.QueryRow(query, id, orgID).Scan(
		&unit.ID,
		&unit.OrganizationID,
		&unit.ParentID,
		&unit.Type,
		&unit.Name,
		&unit.Code,
		&unit.IsActive,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// OrgUnitFilters holds optional filters for listing org units
type OrgUnitFilters struct {
	Type     string
	ParentID *uint
}

// GetByOrganization retrieves org units of an organization with optional filters
func (r *OrgUnitRepository) GetByOrganization(orgID uint, filters OrgUnitFilters) ([]models.OrgUnit, error) {
	query := `
		SELECT id, organization_id, parent_id, type, name, code, is_active, created_at, updated_at
		FROM org_units
		WHERE organization_id = $1
	`
	args := []interface{}{orgID}
	argCount := 1

	if filters.Type != "" {
		argCount++
		query += fmt.Sprintf(" AND type = $%d", argCount)
		args = append(args, filters.Type)
	}
	if filters.ParentID != nil {
		argCount++
		query += fmt.Sprintf(" AND parent_id = $%d", argCount)
		args = append(args, *filters.ParentID)
	}

	query += ` ORDER BY type ASC, name ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.OrgUnit
	for rows.Next() {
		var unit models.OrgUnit
		err := rows.Scan(
			&unit.ID,
			&unit.OrganizationID,
			&unit.ParentID,
			&unit.Type,
			&unit.Name,
			&unit.Code,
			&unit.IsActive,
			&unit.CreatedAt,
			&unit.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// Update updates an org unit
func (r *OrgUnitRepository) Update(unit *models.OrgUnit) error {
	query := `
		UPDATE org_units
		SET name = $1, code = $2, parent_id = $3, is_active = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5 AND organization_id = $6
	`
	_, err := r.db.Exec(query, unit.Name, unit.Code, unit.ParentID, unit.IsActive, unit.ID, unit.OrganizationID)
	return err
}

// Delete deletes an org unit
func (r *OrgUnitRepository) Delete(id, orgID uint) error {
	query := `DELETE FROM org_units WHERE id = $1 AND organization_id = $2`
	_, err := r.db.Exec(query, id, orgID)
	return err
}

// HasChildren checks whether an org unit has child units
func (r *OrgUnitRepository) HasChildren(id uint) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM org_units WHERE parent_id = $1`
	if err := r.db.QueryRow(query, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
