package config

import (
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"courier_ledger/internal/models"
)

// OpenDB connects to Postgres, retrying while the server comes up.
func OpenDB(cfg DBConfig, l logger.Interface, attempts int) (*gorm.DB, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; ; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger:         l,
			TranslateError: true,
		})
		if err == nil {
			break
		}
		if attempt == attempts {
			return nil, fmt.Errorf("connect database after %d attempts: %w", attempt, err)
		}
		time.Sleep(time.Second * time.Duration(1<<min(attempt, 5)))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("install otelgorm plugin: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the drivers and transactions tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Driver{}, &models.Transaction{})
}
