package service

import (
	"fmt"

	"audithub/internal/models"
	"audithub/internal/repository"
)

var validOrgUnitTypes = []string{"company", "branch", "department", "team"}

// OrgUnitService handles organizational unit business logic
type OrgUnitService struct {
	orgUnitRepo *repository.OrgUnitRepository
	auditRepo   *repository.AuditRepository
}

// NewOrgUnitService creates a new org unit service
func NewOrgUnitService(orgUnitRepo *repository.OrgUnitRepository, auditRepo *repository.AuditRepository) *OrgUnitService {
	return &OrgUnitService{orgUnitRepo: orgUnitRepo, auditRepo: auditRepo}
}

// List returns all org units of an organization, optionally filtered
func (s *OrgUnitService) List(orgID uint, filters repository.OrgUnitFilters) ([]models.OrgUnit, error) {
	return s.orgUnitRepo.GetByOrganization(orgID, filters)
}

// Get returns a single org unit
func (s *OrgUnitService) Get(unitID, orgID uint) (*models.OrgUnit, error) {
	unit, err := s.orgUnitRepo.GetByID(unitID, orgID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("%w: org unit %d", ErrNotFound, unitID)
	}
	return unit, nil
}

// Create validates and persists a new org unit
func (s *OrgUnitService) Create(orgID uint, unit *models.OrgUnit) (*models.OrgUnit, error) {
	if unit.Name == "" {
		return nil, fmt.Errorf("%w: org unit name is required", ErrInvalidInput)
	}
	if !contains(validOrgUnitTypes, unit.Type) {
		return nil, fmt.Errorf("%w: unknown org unit type %q", ErrInvalidInput, unit.Type)
	}
	if unit.ParentID != nil {
		parent, err := s.orgUnitRepo.GetByID(*unit.ParentID, orgID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("%w: parent org unit %d", ErrNotFound, *unit.ParentID)
		}
	}

	unit.OrganizationID = orgID
	unit.IsActive = true
	if err := s.orgUnitRepo.Create(unit); err != nil {
		return nil, fmt.Errorf("failed to create org unit: %w", err)
	}
	return unit, nil
}

// Update modifies an existing org unit
func (s *OrgUnitService) Update(unitID, orgID uint, name string, unitType string, parentID *uint, isActive bool) (*models.OrgUnit, error) {
	unit, err := s.Get(unitID, orgID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		unit.Name = name
	}
	if unitType != "" {
		if !contains(validOrgUnitTypes, unitType) {
			return nil, fmt.Errorf("%w: unknown org unit type %q", ErrInvalidInput, unitType)
		}
		unit.Type = unitType
	}
	if parentID != nil {
		if *parentID == unitID {
			return nil, fmt.Errorf("%w: org unit cannot be its own parent", ErrInvalidInput)
		}
		parent, err := s.orgUnitRepo.GetByID(*parentID, orgID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("%w: parent org unit %d", ErrNotFound, *parentID)
		}
		unit.ParentID = parentID
	}
	unit.IsActive = isActive

	if err := s.orgUnitRepo.Update(unit); err != nil {
		return nil, fmt.Errorf("failed to update org unit: %w", err)
	}
	return unit, nil
}

// Delete removes an org unit. Units with children or referenced by
// audits cannot be deleted.
func (s *OrgUnitService) Delete(unitID, orgID uint) error {
	if _, err := s.Get(unitID, orgID); err != nil {
		return err
	}

	hasChildren, err := s.orgUnitRepo.HasChildren(unitID)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("%w: org unit has child units", ErrConflict)
	}

	auditCount, err := s.auditRepo.CountByOrgUnit(unitID)
	if err != nil {
		return err
	}
	if auditCount > 0 {
		return fmt.Errorf("%w: org unit is referenced by %d audits", ErrConflict, auditCount)
	}

	return s.orgUnitRepo.Delete(unitID, orgID)
}
