package service

import (
	"testing"
	"time"

	"audithub/internal/models"
)

func comparableAudit(id uint, name string, score float64) models.AuditWithDetails {
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.AuditWithDetails{
		Audit: models.Audit{
			ID:          id,
			Name:        name,
			Status:      StatusCompleted,
			Score:       &score,
			CompletedAt: &completedAt,
		},
	}
}

func TestRankAudits(t *testing.T) {
	audits := []models.AuditWithDetails{
		comparableAudit(1, "Q1 Review", 70),
		comparableAudit(2, "Q2 Review", 90),
		comparableAudit(3, "Q3 Review", 50),
	}

	result := rankAudits(audits)

	if result.Best.AuditID != 2 || result.Best.Score != 90 {
		t.Errorf("expected best audit 2 with 90, got %+v", result.Best)
	}
	if result.Worst.AuditID != 3 || result.Worst.Score != 50 {
		t.Errorf("expected worst audit 3 with 50, got %+v", result.Worst)
	}
	if result.AverageScore != 70.0 {
		t.Errorf("expected average 70.0, got %v", result.AverageScore)
	}

	wantOrder := []uint{2, 1, 3}
	for i, entry := range result.Entries {
		if entry.AuditID != wantOrder[i] {
			t.Errorf("rank %d: expected audit %d, got %d", i+1, wantOrder[i], entry.AuditID)
		}
		if entry.Rank != i+1 {
			t.Errorf("expected rank %d, got %d", i+1, entry.Rank)
		}
	}
}

func TestRankAuditsTieKeepsInputOrder(t *testing.T) {
	audits := []models.AuditWithDetails{
		comparableAudit(5, "First", 80),
		comparableAudit(6, "Second", 80),
	}

	result := rankAudits(audits)

	if result.Entries[0].AuditID != 5 || result.Entries[1].AuditID != 6 {
		t.Errorf("tie should keep input order, got %d then %d", result.Entries[0].AuditID, result.Entries[1].AuditID)
	}
	if result.Best.AuditID != 5 || result.Worst.AuditID != 6 {
		t.Errorf("unexpected best/worst on tie: best %d worst %d", result.Best.AuditID, result.Worst.AuditID)
	}
}

func TestRankAuditsRoundsForPresentation(t *testing.T) {
	audits := []models.AuditWithDetails{
		comparableAudit(1, "A", 66.666666),
		comparableAudit(2, "B", 33.333333),
	}

	result := rankAudits(audits)

	if result.Entries[0].Score != 66.7 {
		t.Errorf("expected 66.7, got %v", result.Entries[0].Score)
	}
	if result.Entries[1].Score != 33.3 {
		t.Errorf("expected 33.3, got %v", result.Entries[1].Score)
	}
	// Mean uses full precision inputs before rounding
	if result.AverageScore != 50.0 {
		t.Errorf("expected average 50.0, got %v", result.AverageScore)
	}
}
