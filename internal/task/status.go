// Package task drives the chore lifecycle: a small status machine, the
// recurrence schedule, and the completion side effects (points, streaks,
// badges).
package task

import "fmt"

// Task statuses. A task only ever moves forward through the machine; there
// are no backward edges.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
	StatusArchived   = "archived"
)

// transitions lists the allowed target statuses per current status. Archived
// is terminal but tolerates a repeat archive so retried requests stay safe.
var transitions = map[string][]string{
	StatusTodo:       {StatusInProgress, StatusArchived},
	StatusInProgress: {StatusReview},
	StatusReview:     {StatusDone},
	StatusDone:       {StatusArchived},
	StatusArchived:   {StatusArchived},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s names a known status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// InvalidTransitionError names the rejected edge.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task transition %s -> %s", e.From, e.To)
}
