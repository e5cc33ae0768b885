package types

import "time"

// SyncRecord is one durable entry in the sync history log. It is created
// after every upload invocation and never mutated; the store retains at most
// the 300 most recent entries.
type SyncRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	RecordCount  int       `json:"recordCount"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// SyncStats summarizes the sync history for status reporting
type SyncStats struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}
