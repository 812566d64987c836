package service

import (
	"fmt"
	"sort"

	"audithub/internal/models"
	"audithub/internal/repository"
	"audithub/internal/scoring"
)

const (
	minComparisonAudits = 2
	maxComparisonAudits = 5
)

// ComparisonService compares completed audits of the same template
type ComparisonService struct {
	auditRepo        *repository.AuditRepository
	templateRepo     *repository.TemplateRepository
	sectionScoreRepo *repository.SectionScoreRepository
}

// NewComparisonService creates a new comparison service
func NewComparisonService(
	auditRepo *repository.AuditRepository,
	templateRepo *repository.TemplateRepository,
	sectionScoreRepo *repository.SectionScoreRepository,
) *ComparisonService {
	return &ComparisonService{
		auditRepo:        auditRepo,
		templateRepo:     templateRepo,
		sectionScoreRepo: sectionScoreRepo,
	}
}

// Compare ranks 2-5 completed or reviewed audits that share a template
// and builds a per-section score matrix from their frozen breakdowns.
func (s *ComparisonService) Compare(orgID uint, auditIDs []uint) (*models.ComparisonResult, error) {
	if len(auditIDs) < minComparisonAudits || len(auditIDs) > maxComparisonAudits {
		return nil, fmt.Errorf("%w: comparison needs %d to %d audits", ErrInvalidInput, minComparisonAudits, maxComparisonAudits)
	}

	audits, err := s.auditRepo.GetByIDs(auditIDs, orgID)
	if err != nil {
		return nil, err
	}
	if len(audits) != len(auditIDs) {
		return nil, fmt.Errorf("%w: one or more audits not found", ErrNotFound)
	}

	// Preserve the caller's ordering; GetByIDs does not guarantee it
	byID := make(map[uint]models.AuditWithDetails, len(audits))
	for _, audit := range audits {
		byID[audit.ID] = audit
	}
	ordered := make([]models.AuditWithDetails, 0, len(auditIDs))
	for _, id := range auditIDs {
		ordered = append(ordered, byID[id])
	}

	templateID := ordered[0].TemplateID
	for _, audit := range ordered {
		if audit.Status != StatusCompleted && audit.Status != StatusReviewed {
			return nil, fmt.Errorf("%w: audit %d is %s, only completed audits can be compared", ErrConflict, audit.ID, audit.Status)
		}
		if audit.TemplateID != templateID {
			return nil, fmt.Errorf("%w: audits use different templates", ErrConflict)
		}
		if audit.Score == nil {
			return nil, fmt.Errorf("%w: audit %d has no frozen score", ErrConflict, audit.ID)
		}
	}

	result := rankAudits(ordered)
	result.TemplateID = templateID
	result.TemplateName = ordered[0].TemplateName

	sections, err := s.sectionMatrix(ordered)
	if err != nil {
		return nil, err
	}
	result.Sections = sections

	return result, nil
}

// rankAudits builds the ranked entries plus best, worst and mean.
// Ties keep the input order.
func rankAudits(audits []models.AuditWithDetails) *models.ComparisonResult {
	entries := make([]models.ComparisonEntry, 0, len(audits))
	var sum float64
	for _, audit := range audits {
		score := scoring.Round1(*audit.Score)
		sum += *audit.Score
		entries = append(entries, models.ComparisonEntry{
			AuditID:     audit.ID,
			AuditName:   audit.Name,
			Score:       score,
			CompletedAt: audit.CompletedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return &models.ComparisonResult{
		Entries:      entries,
		Best:         entries[0],
		Worst:        entries[len(entries)-1],
		AverageScore: scoring.Round1(sum / float64(len(audits))),
	}
}

// sectionMatrix joins the frozen section scores of all audits into rows
// keyed by section, with one score column per audit in caller order
func (s *ComparisonService) sectionMatrix(audits []models.AuditWithDetails) ([]models.SectionComparisonRow, error) {
	var rows []models.SectionComparisonRow
	index := make(map[uint]int)

	for col, audit := range audits {
		scores, err := s.sectionScoreRepo.GetByAudit(audit.ID)
		if err != nil {
			return nil, err
		}
		for _, sec := range scores {
			i, ok := index[sec.SectionID]
			if !ok {
				i = len(rows)
				index[sec.SectionID] = i
				rows = append(rows, models.SectionComparisonRow{
					SectionID:   sec.SectionID,
					SectionName: sec.SectionName,
					Scores:      make([]float64, len(audits)),
				})
			}
			rows[i].Scores[col] = scoring.Round1(sec.Percentage)
		}
	}
	return rows, nil
}
