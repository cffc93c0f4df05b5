package repository

import (
	"fmt"
	"time"

	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const retryDelay = 2 * time.Second

// Open ouvre la base de données choisie par driver ("sqlite" ou "postgres").
// Les connexions PostgreSQL sont retentées jusqu'à attempts fois.
func Open(driver, dsn string, attempts int) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", customerrors.ErrUnsupportedDriver, driver)
	}

	if attempts < 1 {
		attempts = 1
	}
	return connectWithRetry(dialector, attempts, retryDelay)
}

// connectWithRetry opens the connection and pings it, retrying on failure.
func connectWithRetry(dialector gorm.Dialector, attempts int, delay time.Duration) (*gorm.DB, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			if err = ping(db); err == nil {
				return db, nil
			}
		}

		lastErr = err
		logging.Warn().Err(err).Int("attempt", i).Int("attempts", attempts).Msg("Database connection failed")
		if i < attempts {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", customerrors.ErrDatabaseConnection, attempts, lastErr)
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close libère la connexion sous-jacente.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
