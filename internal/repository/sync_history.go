package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lifepulse/internal/database"
	repoerrors "lifepulse/internal/infrastructure/errors"
	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/types"
)

// maxSyncHistoryRows caps the retained sync history; rows beyond the cap are
// evicted oldest-first inside the same transaction as the insert, so the cap
// holds after any sequence of inserts
const maxSyncHistoryRows = 300

// SQLiteSyncHistory implements SyncHistoryRepository on SQLite
type SQLiteSyncHistory struct {
	db          *sql.DB
	retryConfig *repoerrors.RetryConfig
	logger      logging.Logger
}

// Ensure SQLiteSyncHistory implements the interface
var _ SyncHistoryRepository = (*SQLiteSyncHistory)(nil)

// NewSQLiteSyncHistory creates a sync history repository backed by the
// database service's connection
func NewSQLiteSyncHistory(dbService database.Service, logger logging.Logger) *SQLiteSyncHistory {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteSyncHistory{
		db:          dbService.DB(),
		retryConfig: repoerrors.DefaultRetryConfig(),
		logger:      logger,
	}
}

// SetRetryConfig updates the retry configuration for the repository
func (r *SQLiteSyncHistory) SetRetryConfig(config *repoerrors.RetryConfig) {
	if config != nil {
		r.retryConfig = config
	}
}

// Add appends a sync record and prunes entries beyond the retention cap.
// Insert and prune run in one transaction so a crash between them cannot
// leave the table over the cap.
func (r *SQLiteSyncHistory) Add(ctx context.Context, record types.SyncRecord) error {
	start := time.Now()

	err := repoerrors.WithRetryContext(ctx, r.retryConfig, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return repoerrors.WrapDatabaseErrorWithContext("SyncHistory.Add", err, map[string]string{
				"phase": "begin",
			})
		}
		defer tx.Rollback()

		var errMessage sql.NullString
		if record.ErrorMessage != "" {
			errMessage = sql.NullString{String: record.ErrorMessage, Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO sync_history (timestamp, success, record_count, error_message)
			 VALUES (?, ?, ?, ?)`,
			record.Timestamp.UTC().Format(time.RFC3339),
			record.Success,
			record.RecordCount,
			errMessage,
		)
		if err != nil {
			return repoerrors.WrapDatabaseErrorWithContext("SyncHistory.Add", err, map[string]string{
				"phase": "insert",
			})
		}

		// LIMIT -1 OFFSET n selects everything past the newest n rows
		_, err = tx.ExecContext(ctx,
			`DELETE FROM sync_history WHERE id IN (
				SELECT id FROM sync_history ORDER BY id DESC LIMIT -1 OFFSET ?
			)`,
			maxSyncHistoryRows,
		)
		if err != nil {
			return repoerrors.WrapDatabaseErrorWithContext("SyncHistory.Add", err, map[string]string{
				"phase": "prune",
			})
		}

		if err := tx.Commit(); err != nil {
			return repoerrors.HandleTransactionError("SyncHistory.Add", "commit", err.Error())
		}
		return nil
	}, "SyncHistory.Add")

	if err != nil {
		logging.LogRepositoryError(r.logger, err, "SyncHistory.Add", map[string]interface{}{
			"record_count": record.RecordCount,
			"success":      record.Success,
		})
		return err
	}

	logging.LogRepositoryOperation(r.logger, "SyncHistory.Add", time.Since(start), nil)
	return nil
}

// List returns up to limit sync records, newest first
func (r *SQLiteSyncHistory) List(ctx context.Context, limit int) ([]types.SyncRecord, error) {
	if limit <= 0 {
		limit = maxSyncHistoryRows
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, timestamp, success, record_count, error_message
		 FROM sync_history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, repoerrors.WrapDatabaseError("SyncHistory.List", err)
	}
	defer rows.Close()

	var records []types.SyncRecord
	for rows.Next() {
		record, err := scanSyncRecord(rows)
		if err != nil {
			return nil, repoerrors.WrapDatabaseError("SyncHistory.List", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.WrapDatabaseError("SyncHistory.List", err)
	}

	return records, nil
}

// Latest returns the most recent sync record
func (r *SQLiteSyncHistory) Latest(ctx context.Context) (*types.SyncRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, timestamp, success, record_count, error_message
		 FROM sync_history ORDER BY id DESC LIMIT 1`)

	record, err := scanSyncRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repoerrors.HandleNotFound("SyncHistory.Latest", "sync_record", "latest")
		}
		return nil, repoerrors.WrapDatabaseError("SyncHistory.Latest", err)
	}
	return &record, nil
}

// Stats returns success and failure counts over the retained history
func (r *SQLiteSyncHistory) Stats(ctx context.Context) (types.SyncStats, error) {
	var stats types.SyncStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(CASE WHEN success THEN 1 END),
			COUNT(CASE WHEN NOT success THEN 1 END)
		 FROM sync_history`).Scan(&stats.SuccessCount, &stats.FailureCount)
	if err != nil {
		return types.SyncStats{}, repoerrors.WrapDatabaseError("SyncHistory.Stats", err)
	}
	return stats, nil
}

// Count returns the number of retained sync records
func (r *SQLiteSyncHistory) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_history`).Scan(&count)
	if err != nil {
		return 0, repoerrors.WrapDatabaseError("SyncHistory.Count", err)
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSyncRecord reads one sync_history row into a SyncRecord
func scanSyncRecord(row rowScanner) (types.SyncRecord, error) {
	var record types.SyncRecord
	var timestampStr string
	var errMessage sql.NullString

	if err := row.Scan(&record.ID, &timestampStr, &record.Success, &record.RecordCount, &errMessage); err != nil {
		return types.SyncRecord{}, err
	}

	timestamp, err := time.Parse(time.RFC3339, timestampStr)
	if err != nil {
		return types.SyncRecord{}, fmt.Errorf("parsing timestamp %q: %w", timestampStr, err)
	}
	record.Timestamp = timestamp

	if errMessage.Valid {
		record.ErrorMessage = errMessage.String
	}
	return record, nil
}
