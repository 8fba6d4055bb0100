package campaign

import "math"

// Progress tracks the observable state of a single campaign run.
// Counters are monotonically non-decreasing while running; CompletedAttacks
// always equals SuccessfulAttacks + FailedAttacks.
type Progress struct {
	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// TotalAttacks is fixed from the template list length at start.
	TotalAttacks int `json:"total_attacks"`

	// CompletedAttacks counts attempted templates, success or failure.
	CompletedAttacks int `json:"completed_attacks"`

	// SuccessfulAttacks counts attacks the executor classified as successful.
	SuccessfulAttacks int `json:"successful_attacks"`

	// FailedAttacks counts resolution and execution failures.
	FailedAttacks int `json:"failed_attacks"`

	// CurrentAttackID identifies the in-flight template, or "" when none.
	CurrentAttackID string `json:"current_attack_id"`

	// CurrentAttackIndex is the index of the in-flight or next unprocessed
	// template, or -1 when the campaign is idle or terminal.
	CurrentAttackIndex int `json:"current_attack_index"`

	// ElapsedSeconds is wall-clock time spent running. It is frozen while
	// paused and in terminal states, and continues accumulating on resume.
	ElapsedSeconds int64 `json:"elapsed_seconds"`

	// Errors is an append-only list of campaign-level error messages.
	Errors []string `json:"errors"`
}

// NewProgress returns an idle Progress for a campaign of total templates.
func NewProgress(total int) Progress {
	return Progress{
		Status:             StatusIdle,
		TotalAttacks:       total,
		CurrentAttackIndex: -1,
		Errors:             []string{},
	}
}

// Percent returns the completion percentage (0-100), rounded.
// Returns 0 when no attacks are planned.
func (p Progress) Percent() int {
	if p.TotalAttacks == 0 {
		return 0
	}
	return int(math.Round(float64(p.CompletedAttacks) / float64(p.TotalAttacks) * 100))
}

// Clone returns a deep copy safe to hand to observers.
func (p Progress) Clone() Progress {
	cp := p
	cp.Errors = make([]string, len(p.Errors))
	copy(cp.Errors, p.Errors)
	return cp
}
