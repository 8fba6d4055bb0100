// Package storage provides the durable key-value port used for campaign
// snapshots and other small state blobs. Implementations are expected to be
// individually fallible; callers that treat persistence as best-effort catch
// and degrade rather than propagate.
package storage

import "context"

// Store is a durable key-value slot store. Keys are opaque strings namespaced
// by the caller (e.g. "campaign:<session-id>"). Values are raw bytes, usually
// JSON-encoded snapshots.
type Store interface {
	// GetItem returns the value for key, or nil with no error when the key
	// does not exist.
	GetItem(ctx context.Context, key string) ([]byte, error)

	// SetItem writes value under key, replacing any previous value.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
