package platform

import (
	"context"
	"time"

	"lifepulse/internal/types"
)

// EventSource yields the raw usage-transition events for a time window.
// Returned events must be ordered by non-decreasing timestamp; consumers
// trust the ordering and do not sort.
type EventSource interface {
	QueryEvents(ctx context.Context, start, end time.Time) ([]types.RawEvent, error)
}

// DeviceSensors provides the day-scoped opaque readings attached to the
// hour-0 record. Accuracy is the platform's problem, not ours.
type DeviceSensors interface {
	// BatteryLevel returns the current battery percentage, or nil when the
	// reading is unavailable
	BatteryLevel() *int
	// NotificationCount returns the number of notifications received today,
	// or 0 when the platform exposes no counter
	NotificationCount() int
}
