package repository

import (
	"context"
	"testing"

	repoerrors "lifepulse/internal/infrastructure/errors"
)

func newTestSettings(t *testing.T) *SQLiteSettings {
	t.Helper()
	return NewSQLiteSettings(newTestDatabase(t), nil)
}

func TestSettingsSetAndGet(t *testing.T) {
	repo := newTestSettings(t)
	ctx := context.Background()

	if err := repo.Set(ctx, SettingAPIBaseURL, "http://localhost:3000/api"); err != nil {
		t.Fatalf("Set() unexpected error = %v", err)
	}

	got, err := repo.Get(ctx, SettingAPIBaseURL)
	if err != nil {
		t.Fatalf("Get() unexpected error = %v", err)
	}
	if got != "http://localhost:3000/api" {
		t.Errorf("Get() = %q", got)
	}
}

func TestSettingsSetOverwrites(t *testing.T) {
	repo := newTestSettings(t)
	ctx := context.Background()

	repo.Set(ctx, SettingAuthToken, "old-token")
	if err := repo.Set(ctx, SettingAuthToken, "new-token"); err != nil {
		t.Fatalf("Set() unexpected error = %v", err)
	}

	got, _ := repo.Get(ctx, SettingAuthToken)
	if got != "new-token" {
		t.Errorf("Get() = %q, want new-token", got)
	}
}

func TestSettingsGetMissing(t *testing.T) {
	repo := newTestSettings(t)

	_, err := repo.Get(context.Background(), "no_such_key")
	if !repoerrors.IsNotFound(err) {
		t.Errorf("Get() error = %v, want not-found", err)
	}
}

func TestSettingsDelete(t *testing.T) {
	repo := newTestSettings(t)
	ctx := context.Background()

	repo.Set(ctx, SettingUserEmail, "user@example.com")
	if err := repo.Delete(ctx, SettingUserEmail); err != nil {
		t.Fatalf("Delete() unexpected error = %v", err)
	}
	if _, err := repo.Get(ctx, SettingUserEmail); !repoerrors.IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want not-found", err)
	}

	// Deleting an absent key is fine
	if err := repo.Delete(ctx, SettingUserEmail); err != nil {
		t.Errorf("Delete() of absent key error = %v", err)
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	repo := newTestSettings(t)
	ctx := context.Background()

	first, err := repo.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID() unexpected error = %v", err)
	}
	if first == "" {
		t.Fatal("DeviceID() returned empty string")
	}

	second, err := repo.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID() unexpected error = %v", err)
	}
	if second != first {
		t.Errorf("DeviceID() = %q on second call, want %q", second, first)
	}
}

func TestLastSyncMarker(t *testing.T) {
	repo := newTestSettings(t)
	ctx := context.Background()

	// Never synced: empty strings, no error
	date, timestamp, err := repo.LastSync(ctx)
	if err != nil {
		t.Fatalf("LastSync() unexpected error = %v", err)
	}
	if date != "" || timestamp != "" {
		t.Errorf("LastSync() = %q, %q; want empty", date, timestamp)
	}

	if err := repo.SetLastSync(ctx, "2025-04-01", "2025-04-01T23:59:00Z"); err != nil {
		t.Fatalf("SetLastSync() unexpected error = %v", err)
	}

	date, timestamp, err = repo.LastSync(ctx)
	if err != nil {
		t.Fatalf("LastSync() unexpected error = %v", err)
	}
	if date != "2025-04-01" || timestamp != "2025-04-01T23:59:00Z" {
		t.Errorf("LastSync() = %q, %q", date, timestamp)
	}
}
