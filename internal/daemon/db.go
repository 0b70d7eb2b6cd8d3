package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/dsn"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	gormadapter "github.com/GoStorefront-Admin/GoStorefront-Admin/internal/logger/adapter/gorm"
)

// OpenDB opens the configured database engine.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		dialector = gormmysql.Open(dsn.Create(cfg))
	case config.EnginePostgres:
		dialector = gormpostgres.Open(dsn.Create(cfg))
	default:
		dialector = sqlite.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormadapter.New(time.Duration(cfg.DB.SlowThreshold) * time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	log.Info().Str("engine", cfg.DB.GormEngine).Msg("database connected")

	return db, nil
}

// Migrate creates or updates the schema and seeds the catalog, roles and first administrator.
func Migrate(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return Seed(ctx, cfg, db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err //nolint:wrapcheck
	}

	return sqlDB.Close() //nolint:wrapcheck
}
