package scoring

import (
	"math"
	"strconv"
	"strings"
)

// Answer types supported by the engine
const (
	AnswerTypeYesNo          = "yes_no"
	AnswerTypeYesNoPartial   = "yes_no_partial"
	AnswerTypeScale          = "scale_1_5"
	AnswerTypeMultipleChoice = "multiple_choice"
	AnswerTypeText           = "text"
)

// DefaultScaleMax is the upper bound of the scale answer type
const DefaultScaleMax = 5

// Question is one weighted question as seen by the engine
type Question struct {
	ID         uint
	AnswerType string
	Weight     float64
	Choices    []string
}

// Section is an ordered group of questions with a section weight
type Section struct {
	ID        uint
	Name      string
	Weight    float64
	Questions []Question
}

// Answer is the raw answer value for one question
type Answer struct {
	Value string
}

// SectionScore is the computed result for one section, full precision
type SectionScore struct {
	SectionID         uint
	SectionName       string
	Percentage        float64
	TotalWeight       float64
	QuestionsAnswered int
	QuestionsTotal    int
}

// Result is the computed result for a whole audit, full precision.
// Rounding to one decimal happens at the presentation boundary only.
type Result struct {
	Overall  float64
	Sections []SectionScore
}

// ChoicePolicy decides how multiple_choice answers score.
// The default engine treats them as informational (non-scoring).
type ChoicePolicy interface {
	// Contribution returns the earned fraction of the question weight in
	// [0,1] and whether the question counts toward the denominator.
	Contribution(q Question, value string) (float64, bool)
}

// FirstChoicePolicy grants full credit for the first listed choice and
// half credit for the second; later choices earn nothing.
type FirstChoicePolicy struct{}

// Contribution implements ChoicePolicy
func (FirstChoicePolicy) Contribution(q Question, value string) (float64, bool) {
	if len(q.Choices) == 0 {
		return 0, false
	}
	switch {
	case strings.EqualFold(value, q.Choices[0]):
		return 1, true
	case len(q.Choices) > 1 && strings.EqualFold(value, q.Choices[1]):
		return 0.5, true
	default:
		return 0, true
	}
}

// Engine computes weighted compliance scores. It is deterministic and does
// no I/O; the same inputs always produce the same result.
type Engine struct {
	scaleMax     int
	choicePolicy ChoicePolicy
}

// Option configures an Engine
type Option func(*Engine)

// WithScaleMax overrides the upper bound of scale answers
func WithScaleMax(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.scaleMax = max
		}
	}
}

// WithChoicePolicy enables scoring for multiple_choice questions
func WithChoicePolicy(p ChoicePolicy) Option {
	return func(e *Engine) {
		e.choicePolicy = p
	}
}

// NewEngine creates a score engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{scaleMax: DefaultScaleMax}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the overall and per-section percentages for the given
// sections and answers. Answers may be incomplete; missing answers
// contribute zero, so the same call serves both final scoring and live
// previews over partial answer sets.
func (e *Engine) Score(sections []Section, answers map[uint]Answer) Result {
	result := Result{Sections: make([]SectionScore, 0, len(sections))}

	var totalEarned, totalWeight float64

	for _, section := range sections {
		var earned, weight float64
		var answered int

		for _, q := range section.Questions {
			contribution, scorable := e.questionContribution(q, answers)
			if _, ok := answers[q.ID]; ok {
				answered++
			}
			if !scorable || q.Weight <= 0 {
				continue
			}
			earned += contribution * q.Weight
			weight += q.Weight
		}

		score := SectionScore{
			SectionID:         section.ID,
			SectionName:       section.Name,
			TotalWeight:       weight,
			QuestionsAnswered: answered,
			QuestionsTotal:    len(section.Questions),
		}
		if weight > 0 {
			score.Percentage = 100 * earned / weight
		}
		result.Sections = append(result.Sections, score)

		totalEarned += earned
		totalWeight += weight
	}

	if totalWeight > 0 {
		result.Overall = 100 * totalEarned / totalWeight
	}

	return result
}

// questionContribution returns the earned fraction in [0,1] and whether the
// question counts toward the weight denominator
func (e *Engine) questionContribution(q Question, answers map[uint]Answer) (float64, bool) {
	answer, hasAnswer := answers[q.ID]

	switch q.AnswerType {
	case AnswerTypeYesNo:
		if hasAnswer && strings.EqualFold(answer.Value, "yes") {
			return 1, true
		}
		return 0, true

	case AnswerTypeYesNoPartial:
		if !hasAnswer {
			return 0, true
		}
		switch strings.ToLower(answer.Value) {
		case "yes":
			return 1, true
		case "partial":
			return 0.5, true
		default:
			return 0, true
		}

	case AnswerTypeScale:
		if !hasAnswer {
			return 0, true
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(answer.Value), 64)
		if err != nil {
			return 0, true
		}
		max := float64(e.scaleMax)
		clamped := math.Max(0, math.Min(v, max))
		return clamped / max, true

	case AnswerTypeMultipleChoice:
		if e.choicePolicy == nil {
			return 0, false
		}
		if !hasAnswer {
			return 0, true
		}
		return e.choicePolicy.Contribution(q, answer.Value)

	default:
		// text and unknown types never score
		return 0, false
	}
}

// Round1 rounds a percentage to one decimal for presentation
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
