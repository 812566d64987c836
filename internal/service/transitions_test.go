package service

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"draft can start", StatusDraft, StatusInProgress, true},
		{"in progress can complete", StatusInProgress, StatusCompleted, true},
		{"completed can be reviewed", StatusCompleted, StatusReviewed, true},
		{"completed can be reopened", StatusCompleted, StatusInProgress, true},
		{"reviewed can go back to completed", StatusReviewed, StatusCompleted, true},
		{"draft cannot skip to completed", StatusDraft, StatusCompleted, false},
		{"draft cannot skip to reviewed", StatusDraft, StatusReviewed, false},
		{"in progress cannot be reviewed", StatusInProgress, StatusReviewed, false},
		{"reviewed cannot be reopened directly", StatusReviewed, StatusInProgress, false},
		{"completed cannot go back to draft", StatusCompleted, StatusDraft, false},
		{"no self transition", StatusInProgress, StatusInProgress, false},
		{"unknown source is rejected", "archived", StatusCompleted, false},
		{"unknown target is rejected", StatusDraft, "archived", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.allowed {
				t.Errorf("CanTransition(%q, %q) = %v, expected %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, status := range []string{StatusDraft, StatusInProgress, StatusCompleted, StatusReviewed} {
		if !IsValidStatus(status) {
			t.Errorf("Expected %q to be a valid status", status)
		}
	}
	if IsValidStatus("archived") {
		t.Error("Expected unknown status to be invalid")
	}
}
