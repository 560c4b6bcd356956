package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

// testMigrations is a two-step schema used by the migration tests.
var testMigrations = fstest.MapFS{
	"sql/20260301_090000_create_widgets.up.sql": {
		Data: []byte(`CREATE TABLE test_widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`),
	},
	"sql/20260301_090000_create_widgets.down.sql": {
		Data: []byte(`DROP TABLE test_widgets;`),
	},
	"sql/20260302_090000_add_colour.up.sql": {
		Data: []byte(`ALTER TABLE test_widgets ADD COLUMN colour TEXT;`),
	},
	"sql/README.md": {Data: []byte("ignored")},
}

// useMigrations swaps the package-level migration source for the test.
func useMigrations(t *testing.T, fsys fstest.MapFS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = fsys
	MigrationsDir = dir
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count == 1
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations, "sql")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_widgets") {
		t.Fatal("table test_widgets not created")
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO test_widgets (name, colour) VALUES (?, ?)", "a", "red"); err != nil {
		t.Fatalf("second migration not applied: %v", err)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateDown verifies migration rollback.
func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrations, "sql")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The latest migration has no down file.
	if err := db.MigrateDown(ctx); err == nil {
		t.Fatal("MigrateDown() expected error for migration without down SQL")
	}

	// Drop back to the first migration only.
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", "20260302_090000"); err != nil {
		t.Fatalf("delete record: %v", err)
	}

	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_widgets") {
		t.Error("table test_widgets should have been dropped")
	}

	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied migrations after rollback, got %d", len(applied))
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx); err != nil {
		t.Errorf("MigrateDown() on empty history error = %v", err)
	}
}

// TestMigrateNoMigrations verifies behaviour with no migrations.
func TestMigrateNoMigrations(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = nil

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

// TestMigrateMissingDir verifies a missing directory is treated as empty.
func TestMigrateMissingDir(t *testing.T) {
	useMigrations(t, testMigrations, "nope")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
}

// TestMigrateFailureRollsBack verifies a broken migration leaves no trace.
func TestMigrateFailureRollsBack(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260301_090000_good.up.sql": {Data: []byte(`CREATE TABLE good (id INTEGER);`)},
		"20260302_090000_bad.up.sql":  {Data: []byte(`CREATE TABLE bad (id INTEGER); THIS IS NOT SQL;`)},
	}, ".")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error")
	}
	if !tableExists(t, db, "good") {
		t.Error("first migration should stay committed")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1/1", len(applied), len(pending))
	}
}

// TestGetMigrationStatus verifies status reporting before migration.
func TestGetMigrationStatus(t *testing.T) {
	useMigrations(t, testMigrations, "sql")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	applied, pending, err := db.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied, got %d", len(applied))
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].Name != "create_widgets" || pending[0].DownSQL == "" {
		t.Errorf("pending[0] = %+v", pending[0])
	}
	if pending[1].Version != "20260302_090000" {
		t.Errorf("pending not sorted: %v", pending[1].Version)
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"valid up migration", "20260301_090000_lutron_devices.up.sql", "20260301_090000", true, true},
		{"valid down migration", "20260301_090000_lutron_devices.down.sql", "20260301_090000", false, true},
		{"not sql file", "readme.txt", "", false, false},
		{"missing direction", "20260301_090000_lutron_devices.sql", "", false, false},
		{"invalid format", "invalid.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok {
				if version != tt.wantVersion {
					t.Errorf("version = %v, want %v", version, tt.wantVersion)
				}
				if isUp != tt.wantIsUp {
					t.Errorf("isUp = %v, want %v", isUp, tt.wantIsUp)
				}
			}
		})
	}
}

// TestExtractMigrationName verifies name extraction.
func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_090000_lutron_devices.up.sql", "lutron_devices"},
		{"20260301_090000_lutron_devices.down.sql", "lutron_devices"},
		{"noversion.up.sql", "noversion"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
