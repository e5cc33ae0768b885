package database

import (
	"context"
	"path/filepath"
	"testing"

	"lifepulse/internal/infrastructure/logging"
)

// newConnectedService connects a service to a file-backed test database.
// File-backed rather than :memory: so reconnects see the same data.
func newConnectedService(t *testing.T) *SQLiteService {
	t.Helper()

	config := TestConfig()
	config.Path = filepath.Join(t.TempDir(), "service_test.db")
	config.JournalMode = "WAL"
	config.SynchronousMode = "NORMAL"

	service := NewSQLiteService(logging.NewDefaultLogger())
	if err := service.Connect(context.Background(), config); err != nil {
		t.Fatalf("Connect() unexpected error = %v", err)
	}
	t.Cleanup(func() { service.Close() })

	return service
}

func TestSQLiteServiceConnectAndHealth(t *testing.T) {
	service := newConnectedService(t)

	if err := service.Health(context.Background()); err != nil {
		t.Errorf("Health() unexpected error = %v", err)
	}
	if service.DB() == nil {
		t.Error("DB() returned nil after Connect()")
	}
}

func TestSQLiteServiceHealthWithoutConnect(t *testing.T) {
	service := NewSQLiteService(nil)

	if err := service.Health(context.Background()); err == nil {
		t.Error("Health() on unconnected service should fail")
	}
}

func TestSQLiteServiceMigrate(t *testing.T) {
	service := newConnectedService(t)
	ctx := context.Background()

	if err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() unexpected error = %v", err)
	}

	version, err := service.GetMigrationVersion(ctx)
	if err != nil {
		t.Fatalf("GetMigrationVersion() unexpected error = %v", err)
	}
	if version < 2 {
		t.Errorf("GetMigrationVersion() = %d, want >= 2 (sync_history + settings)", version)
	}

	// Both tables must exist after migration
	for _, table := range []string{"sync_history", "settings"} {
		var name string
		err := service.DB().QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after Migrate(): %v", table, err)
		}
	}
}

func TestSQLiteServiceMigrateIsIdempotent(t *testing.T) {
	service := newConnectedService(t)
	ctx := context.Background()

	if err := service.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate() unexpected error = %v", err)
	}
	if err := service.Migrate(ctx); err != nil {
		t.Errorf("second Migrate() unexpected error = %v", err)
	}
}

func TestSQLiteServiceClose(t *testing.T) {
	service := newConnectedService(t)

	if err := service.Close(); err != nil {
		t.Fatalf("Close() unexpected error = %v", err)
	}
	if service.DB() != nil {
		t.Error("DB() should be nil after Close()")
	}

	// Closing twice is a no-op
	if err := service.Close(); err != nil {
		t.Errorf("second Close() unexpected error = %v", err)
	}
}

func TestSQLiteServiceOptimize(t *testing.T) {
	service := newConnectedService(t)
	ctx := context.Background()

	if err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() unexpected error = %v", err)
	}
	if err := service.Optimize(ctx); err != nil {
		t.Errorf("Optimize() unexpected error = %v", err)
	}
}

func TestMigrationRunnerValidate(t *testing.T) {
	service := newConnectedService(t)

	runner := NewMigrationRunner(service.DB(), logging.NewDefaultLogger())
	if err := runner.ValidateMigrations(); err != nil {
		t.Errorf("ValidateMigrations() unexpected error = %v", err)
	}
}
