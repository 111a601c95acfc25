package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-inventario/internal/config"
	"github.com/diewo77/go-inventario/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// MigrationsSource is where the SQL migrations live, relative to the working directory.
var MigrationsSource = "file://migrations"

// Migrate brings the schema up to date. SQL migrations are used when
// enabled for postgres; gorm AutoMigrate otherwise.
func Migrate(gdb *gorm.DB, cfg config.DatabaseConfig) error {
	if cfg.SQLMigrations && cfg.Driver == "postgres" {
		return runSQLMigrations(cfg.MigrationURL())
	}
	for _, m := range models.All() {
		if err := gdb.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func runSQLMigrations(url string) error {
	m, err := migrate.New(MigrationsSource, url)
	if err != nil {
		return fmt.Errorf("sql migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sql migrations: %w", err)
	}
	return nil
}
