package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"audithub/internal/models"
)

func TestJSONResponseNormalizesNilSlices(t *testing.T) {
	w := httptest.NewRecorder()

	stats := models.DashboardStats{TotalAudits: 3}
	if err := JSONResponse(w, stats); err != nil {
		t.Fatalf("JSONResponse failed: %v", err)
	}

	body := w.Body.String()
	if strings.Contains(body, `"by_status":null`) {
		t.Error("nil slice encoded as null, expected []")
	}
	if !strings.Contains(body, `"by_status":[]`) {
		t.Errorf("expected empty array for by_status, got %s", body)
	}
	if !strings.Contains(body, `"score_trend":[]`) {
		t.Errorf("expected empty array for score_trend, got %s", body)
	}
}

func TestJSONResponseKeepsTimeFields(t *testing.T) {
	w := httptest.NewRecorder()

	completedAt := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	point := models.ScoreTrendPoint{AuditID: 1, AuditName: "Q2", Score: 88.5, CompletedAt: completedAt}
	if err := JSONResponse(w, point); err != nil {
		t.Fatalf("JSONResponse failed: %v", err)
	}

	var decoded models.ScoreTrendPoint
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !decoded.CompletedAt.Equal(completedAt) {
		t.Errorf("time field mangled: got %v, want %v", decoded.CompletedAt, completedAt)
	}
}

func TestJSONResponseNestedSlices(t *testing.T) {
	w := httptest.NewRecorder()

	result := models.ComparisonResult{
		TemplateID: 1,
		Entries:    []models.ComparisonEntry{{AuditID: 1, Score: 90}},
	}
	if err := JSONResponse(w, result); err != nil {
		t.Fatalf("JSONResponse failed: %v", err)
	}

	body := w.Body.String()
	if strings.Contains(body, `"sections":null`) {
		t.Error("nested nil slice encoded as null, expected []")
	}
}
