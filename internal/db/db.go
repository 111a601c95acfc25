// Package db opens the database, migrates the schema and seeds demo data.
package db

import (
	"fmt"
	"regexp"
	"time"

	"github.com/diewo77/go-inventario/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var passwordRe = regexp.MustCompile(`(password=|://[^:/@]+:)([^\s@]+)`)

// MaskDSN hides the password of a key=value or URL DSN for logging.
func MaskDSN(dsn string) string {
	return passwordRe.ReplaceAllString(dsn, `${1}***`)
}

// Open returns the gorm dialector for the configured driver.
func Open(cfg config.DatabaseConfig) (gorm.Dialector, string) {
	if cfg.Driver == "sqlite" {
		return sqlite.Open(cfg.Path), cfg.Path
	}
	dsn := cfg.DSN()
	return postgres.Open(dsn), MaskDSN(dsn)
}

// Connect opens the database, retrying while it starts up.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level), TranslateError: true}

	dialector, target := Open(cfg)
	retries := max(cfg.ConnRetries, 1)
	var (
		gdb *gorm.DB
		err error
	)
	for i := 1; i <= retries; i++ {
		gdb, err = gorm.Open(dialector, gcfg)
		if err == nil {
			err = gdb.Exec("SELECT 1").Error
		}
		if err == nil {
			break
		}
		log.Warn("database not ready",
			zap.Int("attempt", i),
			zap.Int("of", retries),
			zap.Error(err),
		)
		if i < retries {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	log.Info("database connected", zap.String("driver", cfg.Driver), zap.String("target", target))
	return gdb, nil
}
