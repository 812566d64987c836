package service

import (
	"fmt"
	"strconv"
	"strings"

	"audithub/internal/models"
	"audithub/internal/scoring"
)

// generateRecommendations derives remediation items from a frozen score
// result. Sections below the thresholds get a section-level item, and
// negative answers get a question-level item.
func generateRecommendations(auditID uint, template *models.TemplateWithSections, result scoring.Result, answers map[uint]models.AuditAnswer) []models.Recommendation {
	var recommendations []models.Recommendation

	for _, sec := range result.Sections {
		if sec.TotalWeight == 0 {
			continue
		}
		priority := sectionPriority(sec.Percentage)
		if priority == "" {
			continue
		}
		sectionID := sec.SectionID
		recommendations = append(recommendations, models.Recommendation{
			AuditID:   auditID,
			SectionID: &sectionID,
			Priority:  priority,
			Text:      fmt.Sprintf("Section %q scored %.1f%%. Review and remediate its controls.", sec.SectionName, sec.Percentage),
			Status:    "open",
		})
	}

	for _, section := range template.Sections {
		sectionID := section.ID
		for _, question := range section.Questions {
			answer, ok := answers[question.ID]
			if !ok || !isNegativeAnswer(question, answer.Value) {
				continue
			}
			priority := "medium"
			if question.IsRequired {
				priority = "high"
			}
			questionID := question.ID
			recommendations = append(recommendations, models.Recommendation{
				AuditID:    auditID,
				SectionID:  &sectionID,
				QuestionID: &questionID,
				Priority:   priority,
				Text:       fmt.Sprintf("Address the gap behind %q (answered %q).", question.Text, answer.Value),
				Status:     "open",
			})
		}
	}

	return recommendations
}

func sectionPriority(percentage float64) string {
	switch {
	case percentage < criticalBelow:
		return "critical"
	case percentage < highBelow:
		return "high"
	case percentage < mediumBelow:
		return "medium"
	default:
		return ""
	}
}

// isNegativeAnswer reports whether an answer indicates a concrete gap:
// a "no" on yes/no questions or a scale value of 2 or below.
func isNegativeAnswer(question models.TemplateQuestion, value string) bool {
	switch question.AnswerType {
	case scoring.AnswerTypeYesNo, scoring.AnswerTypeYesNoPartial:
		return strings.EqualFold(value, "no")
	case scoring.AnswerTypeScale:
		v, err := strconv.ParseFloat(value, 64)
		return err == nil && v <= 2
	default:
		return false
	}
}
