package campaign

// Status represents the lifecycle state of a campaign.
type Status string

const (
	// StatusIdle indicates the campaign is constructed but not yet started.
	StatusIdle Status = "idle"

	// StatusRunning indicates the campaign loop is executing attacks.
	StatusRunning Status = "running"

	// StatusPaused indicates the campaign is suspended between attacks.
	StatusPaused Status = "paused"

	// StatusCancelled indicates the campaign was cancelled before exhausting
	// its template list.
	StatusCancelled Status = "cancelled"

	// StatusCompleted indicates every template was attempted.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the campaign could not start.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is an end state for one run.
// Terminal campaigns can only be restarted (back to running) or reset to idle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo validates whether a state transition is allowed.
// Reset is special-cased: every state may transition to idle.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusIdle {
		return true
	}

	switch s {
	case StatusIdle:
		return target == StatusRunning || target == StatusFailed
	case StatusRunning:
		return target == StatusPaused ||
			target == StatusCancelled ||
			target == StatusCompleted
	case StatusPaused:
		return target == StatusRunning || target == StatusCancelled
	case StatusCompleted, StatusCancelled, StatusFailed:
		// Terminal states restart via a fresh Start.
		return target == StatusRunning
	default:
		return false
	}
}
