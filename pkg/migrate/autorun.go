package migrate

import (
	"context"
	"fmt"

	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/logger"
)

// MaybeRun applies the bundled migrations at boot when the SQL store is in use
// and JETFUND_DB_AUTO_MIGRATE is on. SQLite always migrates since it is the
// local development store.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.Store.UsesSQL() {
		return nil
	}
	if !cfg.DB.AutoMigrate && cfg.Store.Driver != config.StoreDriverSQLite {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.Store.Driver})
	logg.Info(ctx, "running Goose migrations (auto-run)")

	if err := Up(ctx, sqlDB, cfg.Store.Driver); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
