package service

import (
	"testing"

	"audithub/internal/models"
	"audithub/internal/scoring"
)

func recTemplate() *models.TemplateWithSections {
	return &models.TemplateWithSections{
		Sections: []models.SectionWithQuestions{
			{
				TemplateSection: models.TemplateSection{ID: 1, Name: "Access Control", Weight: 10},
				Questions: []models.TemplateQuestion{
					{ID: 10, AnswerType: scoring.AnswerTypeYesNo, Weight: 10, IsRequired: true, Text: "Is MFA enforced?"},
					{ID: 11, AnswerType: scoring.AnswerTypeScale, Weight: 10, Text: "Rate the password policy"},
				},
			},
		},
	}
}

func TestSectionPriority(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{10, "critical"},
		{49.9, "critical"},
		{50, "high"},
		{69.9, "high"},
		{70, "medium"},
		{84.9, "medium"},
		{85, ""},
		{100, ""},
	}
	for _, tt := range tests {
		if got := sectionPriority(tt.percentage); got != tt.want {
			t.Errorf("sectionPriority(%v) = %q, want %q", tt.percentage, got, tt.want)
		}
	}
}

func TestGenerateRecommendationsLowSection(t *testing.T) {
	template := recTemplate()
	answers := map[uint]models.AuditAnswer{
		10: {QuestionID: 10, Value: "no"},
		11: {QuestionID: 11, Value: "1"},
	}
	result := scoring.Result{
		Sections: []scoring.SectionScore{
			{SectionID: 1, SectionName: "Access Control", Percentage: 10, TotalWeight: 20},
		},
	}

	recs := generateRecommendations(42, template, result, answers)

	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(recs))
	}
	if recs[0].Priority != "critical" || recs[0].QuestionID != nil {
		t.Errorf("expected critical section recommendation, got %+v", recs[0])
	}
	// Required yes/no answered "no" escalates to high
	if recs[1].Priority != "high" || recs[1].QuestionID == nil || *recs[1].QuestionID != 10 {
		t.Errorf("expected high question recommendation for question 10, got %+v", recs[1])
	}
	// Low scale value gets medium
	if recs[2].Priority != "medium" || recs[2].QuestionID == nil || *recs[2].QuestionID != 11 {
		t.Errorf("expected medium question recommendation for question 11, got %+v", recs[2])
	}
	for _, rec := range recs {
		if rec.AuditID != 42 || rec.Status != "open" {
			t.Errorf("expected open recommendation on audit 42, got %+v", rec)
		}
	}
}

func TestGenerateRecommendationsHealthySection(t *testing.T) {
	template := recTemplate()
	answers := map[uint]models.AuditAnswer{
		10: {QuestionID: 10, Value: "yes"},
		11: {QuestionID: 11, Value: "5"},
	}
	result := scoring.Result{
		Sections: []scoring.SectionScore{
			{SectionID: 1, SectionName: "Access Control", Percentage: 100, TotalWeight: 20},
		},
	}

	if recs := generateRecommendations(42, template, result, answers); len(recs) != 0 {
		t.Fatalf("expected no recommendations, got %d", len(recs))
	}
}

func TestGenerateRecommendationsSkipsZeroWeightSections(t *testing.T) {
	template := recTemplate()
	result := scoring.Result{
		Sections: []scoring.SectionScore{
			{SectionID: 1, SectionName: "Informational", Percentage: 0, TotalWeight: 0},
		},
	}

	if recs := generateRecommendations(1, template, result, map[uint]models.AuditAnswer{}); len(recs) != 0 {
		t.Fatalf("expected no recommendations for zero-weight section, got %d", len(recs))
	}
}

func TestIsNegativeAnswer(t *testing.T) {
	yesNo := models.TemplateQuestion{AnswerType: scoring.AnswerTypeYesNo}
	scale := models.TemplateQuestion{AnswerType: scoring.AnswerTypeScale}
	text := models.TemplateQuestion{AnswerType: scoring.AnswerTypeText}

	tests := []struct {
		name     string
		question models.TemplateQuestion
		value    string
		want     bool
	}{
		{"yes_no no", yesNo, "no", true},
		{"yes_no yes", yesNo, "yes", false},
		{"scale low", scale, "2", true},
		{"scale high", scale, "4", false},
		{"scale garbage", scale, "low", false},
		{"text never", text, "no", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNegativeAnswer(tt.question, tt.value); got != tt.want {
				t.Errorf("isNegativeAnswer(%s, %q) = %v, want %v", tt.question.AnswerType, tt.value, got, tt.want)
			}
		})
	}
}
