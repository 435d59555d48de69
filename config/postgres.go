package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	pgrepo "github.com/yoockh/buildmate/internal/repositories/postgres"
)

var PostgresDB *gorm.DB

// InitPostgres opens the skill/idea database and, unless disabled, migrates its schema.
func InitPostgres(ctx context.Context, cfg StoreConfig) error {
	if cfg.PostgresURI == "" {
		return errors.New("POSTGRES_URI environment variable is not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	maxOpen := cfg.PostgresMaxOpen
	if maxOpen <= 0 {
		maxOpen = 25
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen / 2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := pgrepo.AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}

	PostgresDB = db
	return nil
}
