package cmd

import (
	"time"

	"github.com/axellelanca/visittracker/internal/config"
	"github.com/axellelanca/visittracker/internal/geoip"
	"github.com/axellelanca/visittracker/internal/repository"
	"gorm.io/gorm"
)

// OpenDatabase opens the configured database and wraps it in the visit repository.
func OpenDatabase(cfg *config.Config) (*gorm.DB, *repository.GormVisitRepository, error) {
	db, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.ConnectAttempts)
	if err != nil {
		return nil, nil, err
	}
	return db, repository.NewVisitRepository(db), nil
}

// NewGeoClient builds the lookup client from the geoip section.
func NewGeoClient(cfg *config.Config) *geoip.Client {
	return geoip.NewClient(geoip.Config{
		BaseURL:           cfg.GeoIP.BaseURL,
		Timeout:           cfg.GeoTimeout(),
		RequestsPerMinute: cfg.GeoIP.RequestsPerMinute,
		BreakerFailures:   cfg.GeoIP.BreakerFailures,
		BreakerOpen:       time.Duration(cfg.GeoIP.BreakerOpenSeconds) * time.Second,
	})
}
