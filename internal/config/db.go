package config

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IsPostgres reports whether dsn names a postgres database rather than a
// sqlite file.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// OpenDb opens the configured database. SQLite is limited to one open
// connection, which serializes writers.
func OpenDb(cfg *Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Database.LogSQL {
		level = logger.Info
	}
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(level)}

	if IsPostgres(cfg.Database.DSN) {
		return gorm.Open(postgres.Open(cfg.Database.DSN), gormConfig)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// GetDb opens the configured database and exits on failure.
func GetDb(cfg *Config) *gorm.DB {
	db, err := OpenDb(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	return db
}
