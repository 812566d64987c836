package service

import (
	"audithub/internal/models"
	"audithub/internal/repository"
	"audithub/internal/scoring"
)

const (
	dashboardTrendLength = 12
	dashboardRecentCount = 5
)

// DashboardService aggregates audit statistics
type DashboardService struct {
	auditRepo          *repository.AuditRepository
	recommendationRepo *repository.RecommendationRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(auditRepo *repository.AuditRepository, recommendationRepo *repository.RecommendationRepository) *DashboardService {
	return &DashboardService{auditRepo: auditRepo, recommendationRepo: recommendationRepo}
}

// GetStats builds the dashboard snapshot for the caller. Owners see the
// whole organization; everyone else only aggregates over audits they
// created or are assigned to, the same visibility List applies.
func (s *DashboardService) GetStats(orgID, userID uint, isOwner bool) (*models.DashboardStats, error) {
	var visibleTo *uint
	if !isOwner {
		visibleTo = &userID
	}

	byStatus, err := s.auditRepo.CountByStatus(orgID, visibleTo)
	if err != nil {
		return nil, err
	}
	var total int
	for _, sc := range byStatus {
		total += sc.Count
	}

	byLevel, err := s.auditRepo.CountByLevel(orgID, visibleTo)
	if err != nil {
		return nil, err
	}

	avg, best, worst, err := s.auditRepo.GetScoreStats(orgID, visibleTo)
	if err != nil {
		return nil, err
	}

	openRecs, err := s.recommendationRepo.CountOpenByOrganization(orgID, visibleTo)
	if err != nil {
		return nil, err
	}

	trend, err := s.auditRepo.GetScoreTrend(orgID, visibleTo, dashboardTrendLength)
	if err != nil {
		return nil, err
	}
	for i := range trend {
		trend[i].Score = scoring.Round1(trend[i].Score)
	}

	recent, err := s.auditRepo.GetByOrganization(orgID, repository.AuditFilters{VisibleTo: visibleTo}, dashboardRecentCount, 0)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalAudits:         total,
		ByStatus:            byStatus,
		ByLevel:             byLevel,
		OpenRecommendations: openRecs,
		ScoreTrend:          trend,
		RecentAudits:        recent,
	}
	if avg != nil {
		rounded := scoring.Round1(*avg)
		stats.AverageScore = &rounded
	}
	if best != nil {
		rounded := scoring.Round1(*best)
		stats.BestScore = &rounded
	}
	if worst != nil {
		rounded := scoring.Round1(*worst)
		stats.WorstScore = &rounded
	}
	return stats, nil
}
