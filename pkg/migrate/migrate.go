package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var Embedded embed.FS

const embeddedDir = "migrations"

var errNoDB = errors.New("migrate: sql handle is required")

// goose keeps dialect and base FS in package globals.
var gooseMu sync.Mutex

// Dialect maps a store driver onto the goose dialect name.
func Dialect(driver string) (string, error) {
	switch driver {
	case config.StoreDriverPostgres:
		return "postgres", nil
	case config.StoreDriverSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("no migration dialect for store driver %q", driver)
}

// prepare locks goose and points it at driver and fsys. The returned func
// releases the lock.
func prepare(db *sql.DB, driver string, fsys fs.FS) (func(), error) {
	if db == nil {
		return nil, errNoDB
	}
	dialect, err := Dialect(driver)
	if err != nil {
		return nil, err
	}

	gooseMu.Lock()
	if err := goose.SetDialect(dialect); err != nil {
		gooseMu.Unlock()
		return nil, fmt.Errorf("goose dialect %s: %w", dialect, err)
	}
	goose.SetBaseFS(fsys)
	return func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}, nil
}

// Run passes a goose command (up, down, status, ...) through against the
// migrations in dir on disk.
func Run(ctx context.Context, db *sql.DB, driver, dir, command string, args ...string) error {
	if dir == "" {
		return errDirRequired
	}
	release, err := prepare(db, driver, nil)
	if err != nil {
		return err
	}
	defer release()

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// Up applies every migration bundled into the binary.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	release, err := prepare(db, driver, Embedded)
	if err != nil {
		return err
	}
	defer release()

	if err := goose.UpContext(ctx, db, embeddedDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at version.
func MigrateToVersion(ctx context.Context, db *sql.DB, driver, dir string, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || len(version) != len(versionLayout) {
		return fmt.Errorf("version %q is not YYYYMMDDHHMMSS", version)
	}
	release, err := prepare(db, driver, nil)
	if err != nil {
		return err
	}
	defer release()

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	step, verb := goose.UpToContext, "up-to"
	switch {
	case current == target:
		return nil
	case current > target:
		step, verb = goose.DownToContext, "down-to"
	}
	if err := step(ctx, db, dir, target); err != nil {
		return fmt.Errorf("goose %s %d: %w", verb, target, err)
	}
	return nil
}
