package service

// Audit status values
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusReviewed   = "reviewed"
)

// allowedTransitions defines the audit state machine. Reopening a completed
// audit moves it back to in_progress and clears the frozen score.
var allowedTransitions = map[string][]string{
	StatusDraft:      {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusReviewed, StatusInProgress},
	StatusReviewed:   {StatusCompleted},
}

// CanTransition reports whether an audit may move from one status to another
func CanTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether the given string is a known audit status
func IsValidStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}
