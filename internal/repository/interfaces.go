package repository

import (
	"context"

	"lifepulse/internal/types"
)

// SyncHistoryRepository defines the durable append-only log of sync attempts.
// The store retains at most the 300 most recent entries; older rows are
// evicted as part of every insert.
type SyncHistoryRepository interface {
	// Add appends one sync record and enforces the retention cap
	Add(ctx context.Context, record types.SyncRecord) error

	// List returns up to limit records, newest first. limit <= 0 returns all
	// retained records.
	List(ctx context.Context, limit int) ([]types.SyncRecord, error)

	// Latest returns the most recent sync record, or a not-found error when
	// the history is empty
	Latest(ctx context.Context) (*types.SyncRecord, error)

	// Stats returns the success/failure counts over the retained history
	Stats(ctx context.Context) (types.SyncStats, error)

	// Count returns the number of retained records
	Count(ctx context.Context) (int, error)
}

// SettingsRepository defines durable key/value agent settings (credentials,
// API base URL overrides, device identity, sync markers)
type SettingsRepository interface {
	// Get returns the value for key, or a not-found error
	Get(ctx context.Context, key string) (string, error)

	// Set stores or replaces the value for key
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// DeviceID returns the stable device-install identifier, generating and
	// persisting one on first use
	DeviceID(ctx context.Context) (string, error)

	SyncMarkerStore
}

// SyncMarkerStore is the narrow surface the upload coordinator needs to
// persist the last successful sync point
type SyncMarkerStore interface {
	// SetLastSync stores the date and timestamp of the last successful upload
	SetLastSync(ctx context.Context, date, timestamp string) error

	// LastSync returns the stored marker; empty strings when never synced
	LastSync(ctx context.Context) (date, timestamp string, err error)
}
