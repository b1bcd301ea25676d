package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/migrate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsContainSchemas(t *testing.T) {
	checks := map[string][]string{
		"*_create_users.sql": {
			"CREATE TABLE IF NOT EXISTS users",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_slack_id",
			"sessions_invalidated_at TIMESTAMP NULL",
			"DROP TABLE IF EXISTS users",
		},
		"*_create_projects.sql": {
			"CREATE TABLE IF NOT EXISTS projects",
			"CHECK (status IN ('active', 'submitted', 'approved', 'rejected'))",
			"hackatime_hours DOUBLE PRECISION",
			"DROP TABLE IF EXISTS projects",
		},
		"*_create_sessions.sql": {
			"CREATE TABLE IF NOT EXISTS sessions",
			"REFERENCES projects(id) ON DELETE CASCADE",
			"CREATE INDEX IF NOT EXISTS idx_sessions_user_status",
			"DROP TABLE IF EXISTS sessions",
		},
	}

	for pattern, subs := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) == 0 {
			t.Fatalf("no migration file found for %s", pattern)
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range subs {
			if !strings.Contains(content, sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestValidateDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected bad filename to fail validation")
	}

	reversed := t.TempDir()
	body := "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x (id INT);\n"
	if err := os.WriteFile(filepath.Join(reversed, "20250101000000_reversed.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(reversed); err == nil {
		t.Fatal("expected Down before Up to fail validation")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Reviewer Notes")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_reviewer_notes.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestUpAppliesToSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_up?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(1)

	if err := migrate.Up(context.Background(), sqlDB, config.StoreDriverSQLite); err != nil {
		t.Fatalf("Up: %v", err)
	}
	for _, table := range []string{"users", "projects", "sessions"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestDialect(t *testing.T) {
	if d, err := migrate.Dialect(config.StoreDriverPostgres); err != nil || d != "postgres" {
		t.Fatalf("unexpected postgres dialect %q err=%v", d, err)
	}
	if _, err := migrate.Dialect(config.StoreDriverAirtable); err == nil {
		t.Fatal("airtable has no migrations")
	}
}
