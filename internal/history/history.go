// Package history records finished campaigns so past runs can be reviewed
// after their live snapshot slot has been reset or overwritten.
package history

import (
	"context"
	"time"

	"github.com/sherifkozman/red-council/internal/campaign"
	"github.com/sherifkozman/red-council/internal/types"
)

// Record is one finished campaign in the battle history.
type Record struct {
	ID        types.ID        `json:"id"`
	SessionID string          `json:"session_id"`
	Target    string          `json:"target"`
	Model     string          `json:"model"`
	Status    campaign.Status `json:"status"`

	TotalAttacks      int `json:"total_attacks"`
	SuccessfulAttacks int `json:"successful_attacks"`
	FailedAttacks     int `json:"failed_attacks"`

	DurationSeconds int64 `json:"duration_seconds"`

	Results []campaign.AttackResult `json:"results,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Filter narrows List queries. Zero values match everything.
type Filter struct {
	Status campaign.Status
	Target string
	Limit  int
}

// DAO provides persistence for campaign history records.
type DAO interface {
	// Record stores a finished campaign. An empty ID is generated.
	Record(ctx context.Context, rec *Record) error

	// GetByID retrieves a record by id. Returns nil with no error when the
	// record does not exist.
	GetByID(ctx context.Context, id types.ID) (*Record, error)

	// List returns records matching the filter, most recent first.
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Delete removes a record by id.
	Delete(ctx context.Context, id types.ID) error

	// Prune deletes all but the newest keep records and reports how many
	// were removed.
	Prune(ctx context.Context, keep int) (int, error)
}

// FromCampaign builds a history record from a runner's final state. The
// campaign should be in a terminal status; a still-active one is recorded
// as-is.
func FromCampaign(sessionID, target, model string, progress campaign.Progress, results []campaign.AttackResult, startedAt time.Time) *Record {
	finished := time.Now().UTC()
	return &Record{
		SessionID:         sessionID,
		Target:            target,
		Model:             model,
		Status:            progress.Status,
		TotalAttacks:      progress.TotalAttacks,
		SuccessfulAttacks: progress.SuccessfulAttacks,
		FailedAttacks:     progress.FailedAttacks,
		DurationSeconds:   progress.ElapsedSeconds,
		Results:           results,
		StartedAt:         startedAt.UTC(),
		FinishedAt:        finished,
	}
}
