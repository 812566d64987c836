package scoring

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreYesAndScale(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID:   1,
			Name: "Access Control",
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeYesNo, Weight: 10},
				{ID: 2, AnswerType: AnswerTypeScale, Weight: 10},
			},
		},
	}
	answers := map[uint]Answer{
		1: {Value: "yes"},
		2: {Value: "3"},
	}

	result := engine.Score(sections, answers)

	// yes earns 10 of 10, scale 3/5 earns 6 of 10
	if !almostEqual(result.Overall, 80) {
		t.Errorf("Expected overall 80, got %f", result.Overall)
	}
	if len(result.Sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(result.Sections))
	}
	if !almostEqual(result.Sections[0].Percentage, 80) {
		t.Errorf("Expected section percentage 80, got %f", result.Sections[0].Percentage)
	}
	if result.Sections[0].QuestionsAnswered != 2 {
		t.Errorf("Expected 2 answered, got %d", result.Sections[0].QuestionsAnswered)
	}
}

func TestScoreAllNegative(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID: 1,
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeYesNo, Weight: 10},
				{ID: 2, AnswerType: AnswerTypeScale, Weight: 10},
			},
		},
	}
	answers := map[uint]Answer{
		1: {Value: "no"},
		2: {Value: "0"},
	}

	result := engine.Score(sections, answers)
	if !almostEqual(result.Overall, 0) {
		t.Errorf("Expected overall 0, got %f", result.Overall)
	}
}

func TestScoreYesNoPartial(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		value    string
		expected float64
	}{
		{"yes earns full weight", "yes", 100},
		{"partial earns half weight", "partial", 50},
		{"no earns nothing", "no", 0},
		{"unknown value earns nothing", "maybe", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := []Section{
				{ID: 1, Questions: []Question{{ID: 1, AnswerType: AnswerTypeYesNoPartial, Weight: 4}}},
			}
			result := engine.Score(sections, map[uint]Answer{1: {Value: tt.value}})
			if !almostEqual(result.Overall, tt.expected) {
				t.Errorf("Expected %f, got %f", tt.expected, result.Overall)
			}
		})
	}
}

func TestScoreMonotonicity(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID:   1,
			Name: "Access Control",
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeYesNoPartial, Weight: 10},
				{ID: 2, AnswerType: AnswerTypeScale, Weight: 7},
				{ID: 3, AnswerType: AnswerTypeYesNo, Weight: 3},
			},
		},
		{
			ID:   2,
			Name: "Data Protection",
			Questions: []Question{
				{ID: 4, AnswerType: AnswerTypeYesNo, Weight: 5},
			},
		},
	}
	base := map[uint]Answer{
		1: {Value: "no"},
		2: {Value: "2"},
		3: {Value: "no"},
		4: {Value: "yes"},
	}

	// Improving one answer, all else fixed, never lowers the overall
	improvements := []struct {
		name       string
		questionID uint
		values     []string
	}{
		{"yes_no_partial no->partial->yes", 1, []string{"no", "partial", "yes"}},
		{"scale step up", 2, []string{"1", "2", "3", "4", "5"}},
		{"yes_no no->yes", 3, []string{"no", "yes"}},
	}

	for _, imp := range improvements {
		t.Run(imp.name, func(t *testing.T) {
			answers := make(map[uint]Answer, len(base))
			for id, a := range base {
				answers[id] = a
			}

			previous := -1.0
			for _, value := range imp.values {
				answers[imp.questionID] = Answer{Value: value}
				result := engine.Score(sections, answers)
				if result.Overall < previous {
					t.Errorf("Value %q dropped overall from %f to %f", value, previous, result.Overall)
				}
				previous = result.Overall
			}
		})
	}
}

func TestScoreScaleClamping(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		value    string
		expected float64
	}{
		{"value above max is clamped", "9", 100},
		{"negative value is clamped to zero", "-3", 0},
		{"non-numeric value earns nothing", "high", 0},
		{"fractional value is kept", "2.5", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := []Section{
				{ID: 1, Questions: []Question{{ID: 1, AnswerType: AnswerTypeScale, Weight: 10}}},
			}
			result := engine.Score(sections, map[uint]Answer{1: {Value: tt.value}})
			if !almostEqual(result.Overall, tt.expected) {
				t.Errorf("Expected %f, got %f", tt.expected, result.Overall)
			}
		})
	}
}

func TestScoreTextExcludedFromDenominator(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID: 1,
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeYesNo, Weight: 10},
				{ID: 2, AnswerType: AnswerTypeText, Weight: 10},
			},
		},
	}
	answers := map[uint]Answer{
		1: {Value: "yes"},
		2: {Value: "free form notes"},
	}

	result := engine.Score(sections, answers)

	// The text question must not dilute the score
	if !almostEqual(result.Overall, 100) {
		t.Errorf("Expected overall 100, got %f", result.Overall)
	}
	if !almostEqual(result.Sections[0].TotalWeight, 10) {
		t.Errorf("Expected total weight 10, got %f", result.Sections[0].TotalWeight)
	}
	// But it still counts as answered for completeness
	if result.Sections[0].QuestionsAnswered != 2 {
		t.Errorf("Expected 2 answered, got %d", result.Sections[0].QuestionsAnswered)
	}
}

func TestScoreMultipleChoiceDefaultInformational(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID: 1,
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeYesNo, Weight: 5},
				{ID: 2, AnswerType: AnswerTypeMultipleChoice, Weight: 5, Choices: []string{"ISO", "SOC2"}},
			},
		},
	}
	answers := map[uint]Answer{
		1: {Value: "no"},
		2: {Value: "ISO"},
	}

	result := engine.Score(sections, answers)
	if !almostEqual(result.Overall, 0) {
		t.Errorf("Expected overall 0 without a choice policy, got %f", result.Overall)
	}
	if !almostEqual(result.Sections[0].TotalWeight, 5) {
		t.Errorf("Expected total weight 5, got %f", result.Sections[0].TotalWeight)
	}
}

func TestScoreFirstChoicePolicy(t *testing.T) {
	engine := NewEngine(WithChoicePolicy(FirstChoicePolicy{}))

	question := Question{ID: 1, AnswerType: AnswerTypeMultipleChoice, Weight: 10, Choices: []string{"Implemented", "Planned", "None"}}

	tests := []struct {
		name     string
		value    string
		expected float64
	}{
		{"first choice earns full credit", "Implemented", 100},
		{"second choice earns half credit", "Planned", 50},
		{"later choice earns nothing", "None", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := []Section{{ID: 1, Questions: []Question{question}}}
			result := engine.Score(sections, map[uint]Answer{1: {Value: tt.value}})
			if !almostEqual(result.Overall, tt.expected) {
				t.Errorf("Expected %f, got %f", tt.expected, result.Overall)
			}
		})
	}
}

func TestScoreZeroWeightSection(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID: 1,
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeText, Weight: 10},
				{ID: 2, AnswerType: AnswerTypeYesNo, Weight: 0},
			},
		},
	}

	result := engine.Score(sections, map[uint]Answer{1: {Value: "notes"}, 2: {Value: "yes"}})

	if math.IsNaN(result.Overall) || !almostEqual(result.Overall, 0) {
		t.Errorf("Expected overall 0 for zero-weight section, got %f", result.Overall)
	}
	if math.IsNaN(result.Sections[0].Percentage) {
		t.Error("Section percentage must never be NaN")
	}
}

func TestScoreMissingAnswers(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID: 1,
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeYesNo, Weight: 10},
				{ID: 2, AnswerType: AnswerTypeYesNo, Weight: 10},
			},
		},
	}

	// Only one answer given: preview over a partial set
	result := engine.Score(sections, map[uint]Answer{1: {Value: "yes"}})

	if !almostEqual(result.Overall, 50) {
		t.Errorf("Expected overall 50 with one missing answer, got %f", result.Overall)
	}
	if result.Sections[0].QuestionsAnswered != 1 {
		t.Errorf("Expected 1 answered, got %d", result.Sections[0].QuestionsAnswered)
	}
}

func TestScoreOverallIsWeightWeighted(t *testing.T) {
	engine := NewEngine()

	// Section 1 has far more weight than section 2; the overall must
	// follow the weights, not the average of section percentages.
	sections := []Section{
		{ID: 1, Questions: []Question{{ID: 1, AnswerType: AnswerTypeYesNo, Weight: 90}}},
		{ID: 2, Questions: []Question{{ID: 2, AnswerType: AnswerTypeYesNo, Weight: 10}}},
	}
	answers := map[uint]Answer{
		1: {Value: "yes"},
		2: {Value: "no"},
	}

	result := engine.Score(sections, answers)
	if !almostEqual(result.Overall, 90) {
		t.Errorf("Expected overall 90, got %f", result.Overall)
	}
}

func TestScoreEmptyTemplate(t *testing.T) {
	engine := NewEngine()
	result := engine.Score(nil, nil)
	if !almostEqual(result.Overall, 0) {
		t.Errorf("Expected overall 0 for empty input, got %f", result.Overall)
	}
	if result.Sections == nil {
		t.Error("Sections should be an empty slice, not nil")
	}
}

func TestScoreDeterministic(t *testing.T) {
	engine := NewEngine()

	sections := []Section{
		{
			ID: 1,
			Questions: []Question{
				{ID: 1, AnswerType: AnswerTypeYesNoPartial, Weight: 3},
				{ID: 2, AnswerType: AnswerTypeScale, Weight: 7},
				{ID: 3, AnswerType: AnswerTypeYesNo, Weight: 2},
			},
		},
	}
	answers := map[uint]Answer{
		1: {Value: "partial"},
		2: {Value: "4"},
		3: {Value: "yes"},
	}

	first := engine.Score(sections, answers)
	for i := 0; i < 50; i++ {
		again := engine.Score(sections, answers)
		if !almostEqual(first.Overall, again.Overall) {
			t.Fatalf("Score is not deterministic: %f vs %f", first.Overall, again.Overall)
		}
	}
}

func TestWithScaleMax(t *testing.T) {
	engine := NewEngine(WithScaleMax(10))

	sections := []Section{
		{ID: 1, Questions: []Question{{ID: 1, AnswerType: AnswerTypeScale, Weight: 10}}},
	}
	result := engine.Score(sections, map[uint]Answer{1: {Value: "5"}})
	if !almostEqual(result.Overall, 50) {
		t.Errorf("Expected overall 50 with scale max 10, got %f", result.Overall)
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{66.666666, 66.7},
		{83.333333, 83.3},
		{0, 0},
		{100, 100},
		{49.95, 50},
	}

	for _, tt := range tests {
		if got := Round1(tt.in); !almostEqual(got, tt.expected) {
			t.Errorf("Round1(%f) = %f, expected %f", tt.in, got, tt.expected)
		}
	}
}
