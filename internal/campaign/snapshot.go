package campaign

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion defines the version of the snapshot serialization format.
// Older snapshots are migrated on load; newer ones are rejected.
const SnapshotVersion = 1

// Snapshot is the durable representation of a campaign: enough to resume a
// paused run or reconstruct a finished one after a restart. It is not enough
// to resume an in-flight attack call; a restored run re-attempts the item
// that was in flight.
type Snapshot struct {
	Version     int            `json:"version"`
	TemplateIDs []string       `json:"template_ids"`
	Progress    Progress       `json:"progress"`
	Results     []AttackResult `json:"results"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	PausedAt    *time.Time     `json:"paused_at,omitempty"`

	// Checksum is a SHA256 digest over the snapshot body, used to detect
	// torn or hand-edited slots on restore.
	Checksum string `json:"checksum,omitempty"`
}

// SnapshotKey returns the storage slot key for a campaign session.
// Sessions are namespaced so concurrent campaigns do not collide.
func SnapshotKey(sessionID string) string {
	return "campaign:" + sessionID
}

// EncodeSnapshot serializes a snapshot to JSON, stamping the current format
// version and integrity checksum.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	snap.Version = SnapshotVersion
	snap.Checksum = ""

	sum, err := snapshotChecksum(snap)
	if err != nil {
		return nil, err
	}
	snap.Checksum = sum

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot deserializes and validates a snapshot. It rejects snapshots
// written by a newer format version and snapshots whose checksum no longer
// matches their body.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot data cannot be empty")
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d",
			snap.Version, SnapshotVersion)
	}
	if snap.Version < 1 {
		return nil, fmt.Errorf("snapshot version %d is not supported", snap.Version)
	}

	if snap.Checksum != "" {
		expected := snap.Checksum
		snap.Checksum = ""
		computed, err := snapshotChecksum(snap)
		if err != nil {
			return nil, err
		}
		if computed != expected {
			return nil, fmt.Errorf("snapshot checksum mismatch: expected %s, got %s", expected, computed)
		}
		snap.Checksum = expected
	}

	if snap.TemplateIDs == nil {
		snap.TemplateIDs = []string{}
	}
	if snap.Results == nil {
		snap.Results = []AttackResult{}
	}
	if snap.Progress.Errors == nil {
		snap.Progress.Errors = []string{}
	}

	return &snap, nil
}

// snapshotChecksum computes a SHA256 digest over the JSON body of the
// snapshot with the Checksum field cleared.
func snapshotChecksum(snap Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot for checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
