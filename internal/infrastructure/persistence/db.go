// Package persistence holds both backing stores behind the repository
// interfaces (§9 "Dual-mode persistence"): in-memory repositories, used
// when no database is configured, and GORM repositories, used in their
// place when one is. Nothing is written to both stores. Tests use only
// the in-memory store.
package persistence

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/persistence/models"
)

// DatabaseConfig selects a driver and DSN (§6: "DATABASE_URL? (absent =>
// in-memory)"). Type is inferred from the URL scheme by Connect.
type DatabaseConfig struct {
	URL string
}

// Connect opens a GORM connection for either sqlite or postgres,
// inferring the driver from the DSN's scheme, and runs the five-table
// auto-migration (§6 "Persisted state").
func Connect(cfg DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: connect failed: %w", err)
	}

	if err := db.AutoMigrate(
		&models.DeviceModel{},
		&models.CommandModel{},
		&models.TelemetryModel{},
		&models.HeartbeatModel{},
		&models.ShadowModel{},
	); err != nil {
		return nil, fmt.Errorf("persistence: migration failed: %w", err)
	}

	return db, nil
}

func dialectorFor(url string) (gorm.Dialector, error) {
	switch {
	case len(url) >= 11 && url[:11] == "postgres://":
		return postgres.Open(url), nil
	case url != "":
		return sqlite.Open(url), nil
	default:
		return nil, fmt.Errorf("persistence: empty database URL")
	}
}
