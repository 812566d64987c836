package service

import (
	"fmt"

	"audithub/internal/models"
	"audithub/internal/repository"
)

var validRecommendationStatuses = []string{"open", "in_progress", "done", "dismissed"}

// RecommendationService manages the lifecycle of remediation items
type RecommendationService struct {
	recommendationRepo *repository.RecommendationRepository
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(recommendationRepo *repository.RecommendationRepository) *RecommendationService {
	return &RecommendationService{recommendationRepo: recommendationRepo}
}

// List returns an organization's recommendations, optionally filtered by status
func (s *RecommendationService) List(orgID uint, status string, limit, offset int) ([]models.Recommendation, error) {
	if status != "" && !contains(validRecommendationStatuses, status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.recommendationRepo.GetByOrganization(orgID, status, limit, offset)
}

// UpdateStatus moves a recommendation through its workflow
func (s *RecommendationService) UpdateStatus(recommendationID, orgID uint, status string) (*models.Recommendation, error) {
	if !contains(validRecommendationStatuses, status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	rec, err := s.recommendationRepo.GetByID(recommendationID, orgID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: recommendation %d", ErrNotFound, recommendationID)
	}
	if err := s.recommendationRepo.UpdateStatus(recommendationID, status); err != nil {
		return nil, err
	}
	rec.Status = status
	return rec, nil
}
