package services

import (
	"context"
	"net/http"
	"time"

	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/repository"
	"lifepulse/internal/types"
)

// RemoteSink accepts one hourly usage record per call and reports an
// HTTP-style status code. 200/201 means the record was stored; 401 means the
// credentials were rejected; anything else is a per-record failure.
type RemoteSink interface {
	UploadRecord(ctx context.Context, record types.HourlyUsageRecord) (int, error)
}

// UploadCoordinator sends assembled records to the remote sink one at a time,
// tracks partial success, and appends one sync record per invocation to the
// durable history. It never retries; the scheduler owns retry of failed
// batches.
type UploadCoordinator struct {
	sink    RemoteSink
	history repository.SyncHistoryRepository
	marker  repository.SyncMarkerStore
	logger  logging.Logger
}

// NewUploadCoordinator creates a coordinator. The marker store may be nil
// when no last-sync marker should be kept.
func NewUploadCoordinator(sink RemoteSink, history repository.SyncHistoryRepository, marker repository.SyncMarkerStore, logger logging.Logger) *UploadCoordinator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &UploadCoordinator{
		sink:    sink,
		history: history,
		marker:  marker,
		logger:  logger,
	}
}

// Upload sends the records sequentially and resolves the batch into an
// UploadOutcome. The batch succeeds once at least half its records were
// accepted (ceil(n/2)); an auth rejection fails the whole batch immediately;
// a transport error aborts the batch and is captured in the sync record.
// An empty batch is trivially successful.
//
// Exactly one SyncRecord is persisted per call, best-effort: a history write
// failure is logged and swallowed, never surfaced to the caller.
func (uc *UploadCoordinator) Upload(ctx context.Context, records []types.HourlyUsageRecord) types.UploadOutcome {
	if len(records) == 0 {
		uc.logger.Debug("Upload called with no records, treating as success")
		outcome := types.UploadOutcome{Success: true}
		uc.recordOutcome(ctx, outcome, "")
		return outcome
	}

	outcome := types.UploadOutcome{Attempted: len(records)}
	errMessage := ""

	for _, record := range records {
		status, err := uc.sink.UploadRecord(ctx, record)
		if err != nil {
			// A transport failure aborts the batch the same way an exception
			// would in the upload path
			uc.logger.Error("Upload aborted by transport error",
				"date", record.Date, "hour", record.Hour, "error", err)
			errMessage = err.Error()
			outcome.Success = false
			uc.recordOutcome(ctx, outcome, errMessage)
			return outcome
		}

		if status == http.StatusUnauthorized {
			// Credentials rejected: stop immediately, the remaining records
			// would fail the same way
			uc.logger.Error("Upload aborted by auth rejection",
				"date", record.Date, "hour", record.Hour)
			outcome.Success = false
			uc.recordOutcome(ctx, outcome, "")
			return outcome
		}

		if status == http.StatusOK || status == http.StatusCreated {
			outcome.SuccessCount++
		} else {
			uc.logger.Warn("Record upload failed, continuing batch",
				"date", record.Date, "hour", record.Hour, "status", status)
		}
	}

	outcome.Success = outcome.SuccessCount >= (len(records)+1)/2

	if outcome.Success {
		uc.updateSyncMarker(ctx, records)
		uc.logger.Info("Upload batch succeeded",
			"records", len(records), "accepted", outcome.SuccessCount)
	} else {
		uc.logger.Error("Upload batch failed majority threshold",
			"records", len(records), "accepted", outcome.SuccessCount)
	}

	uc.recordOutcome(ctx, outcome, errMessage)
	return outcome
}

// recordOutcome appends the batch outcome to the sync history, best-effort
func (uc *UploadCoordinator) recordOutcome(ctx context.Context, outcome types.UploadOutcome, errMessage string) {
	if uc.history == nil {
		return
	}

	record := types.SyncRecord{
		Timestamp:    time.Now(),
		Success:      outcome.Success,
		RecordCount:  outcome.Attempted,
		ErrorMessage: errMessage,
	}
	if err := uc.history.Add(ctx, record); err != nil {
		// The history log is diagnostics, not part of the upload's
		// correctness guarantee
		uc.logger.Warn("Failed to persist sync record", "error", err)
	}
}

// updateSyncMarker stores the date and assembly timestamp of the first
// uploaded record as the last successful sync point
func (uc *UploadCoordinator) updateSyncMarker(ctx context.Context, records []types.HourlyUsageRecord) {
	if uc.marker == nil {
		return
	}
	if err := uc.marker.SetLastSync(ctx, records[0].Date, records[0].Timestamp); err != nil {
		uc.logger.Warn("Failed to update last-sync marker", "error", err)
	}
}
