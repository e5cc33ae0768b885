package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"lifepulse/internal/database"
	repoerrors "lifepulse/internal/infrastructure/errors"
	"lifepulse/internal/infrastructure/logging"
)

// Well-known settings keys
const (
	SettingDeviceID     = "device_id"
	SettingUserID       = "user_id"
	SettingAuthToken    = "auth_token"
	SettingUserEmail    = "user_email"
	SettingAPIBaseURL   = "api_base_url"
	SettingLastSyncDate = "last_sync_date"
	SettingLastSyncTime = "last_sync_time"
)

// SQLiteSettings implements SettingsRepository on the settings key/value table
type SQLiteSettings struct {
	db          *sql.DB
	retryConfig *repoerrors.RetryConfig
	logger      logging.Logger
}

var _ SettingsRepository = (*SQLiteSettings)(nil)

// NewSQLiteSettings creates a settings repository backed by the database
// service's connection
func NewSQLiteSettings(dbService database.Service, logger logging.Logger) *SQLiteSettings {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteSettings{
		db:          dbService.DB(),
		retryConfig: repoerrors.DefaultRetryConfig(),
		logger:      logger,
	}
}

// Get returns the value stored for key
func (r *SQLiteSettings) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", repoerrors.HandleNotFound("Settings.Get", "setting", key)
		}
		return "", repoerrors.WrapDatabaseError("Settings.Get", err)
	}
	return value, nil
}

// Set stores or replaces the value for key
func (r *SQLiteSettings) Set(ctx context.Context, key, value string) error {
	return repoerrors.WithRetryContext(ctx, r.retryConfig, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return repoerrors.WrapDatabaseErrorWithContext("Settings.Set", err, map[string]string{
				"key": key,
			})
		}
		return nil
	}, "Settings.Set")
}

// Delete removes key; absent keys are not an error
func (r *SQLiteSettings) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return repoerrors.WrapDatabaseErrorWithContext("Settings.Delete", err, map[string]string{
			"key": key,
		})
	}
	return nil
}

// DeviceID returns the stable device-install identifier, generating one on
// first use
func (r *SQLiteSettings) DeviceID(ctx context.Context) (string, error) {
	id, err := r.Get(ctx, SettingDeviceID)
	if err == nil {
		return id, nil
	}
	if !repoerrors.IsNotFound(err) {
		return "", err
	}

	id = uuid.NewString()
	if err := r.Set(ctx, SettingDeviceID, id); err != nil {
		return "", err
	}
	r.logger.Info("Generated device identifier", "device_id", id)
	return id, nil
}

// SetLastSync stores the date and timestamp of the last successful upload
func (r *SQLiteSettings) SetLastSync(ctx context.Context, date, timestamp string) error {
	if err := r.Set(ctx, SettingLastSyncDate, date); err != nil {
		return err
	}
	return r.Set(ctx, SettingLastSyncTime, timestamp)
}

// LastSync returns the stored marker; empty strings when never synced
func (r *SQLiteSettings) LastSync(ctx context.Context) (string, string, error) {
	date, err := r.Get(ctx, SettingLastSyncDate)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return "", "", nil
		}
		return "", "", err
	}

	timestamp, err := r.Get(ctx, SettingLastSyncTime)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return date, "", nil
		}
		return "", "", err
	}
	return date, timestamp, nil
}
