package valueobjects

import "fmt"

type Status string

const (
	StatusDraft      Status = "Draft"
	StatusSubmitted  Status = "Submitted"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// AllStatuses lists the states in workflow order.
var AllStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

var statusTransitions = map[Status][]Status{
	StatusDraft: {
		StatusSubmitted,
		StatusCancelled,
	},
	StatusSubmitted: {
		StatusInProgress,
		StatusCancelled,
	},
	StatusInProgress: {
		StatusCompleted,
		StatusCancelled,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s.IsValid() && len(statusTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable in one step. Staying in
// the same state is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}
