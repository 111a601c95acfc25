// Package config provides application configuration loaded from an optional
// YAML file and environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	App      AppConfig      `yaml:"app"`
	Session  SessionConfig  `yaml:"session"`
	Sales    SalesConfig    `yaml:"sales"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout"`  // seconds
}

// DatabaseConfig holds connection settings. URL, when set, takes precedence
// over the individual fields.
type DatabaseConfig struct {
	Driver        string `yaml:"driver"` // postgres | sqlite
	URL           string `yaml:"url"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	DBName        string `yaml:"dbname"`
	SSLMode       string `yaml:"sslmode"`
	Path          string `yaml:"path"` // sqlite file
	ConnRetries   int    `yaml:"conn_retries"`
	Debug         bool   `yaml:"debug"`
	SQLMigrations bool   `yaml:"sql_migrations"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool `yaml:"dev"`
	Migrations bool `yaml:"migrations"`
	Seed       bool `yaml:"seed"`
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	Secret       string        `yaml:"secret"`
	TTL          time.Duration `yaml:"ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// SalesConfig holds inventory rules for sales.
type SalesConfig struct {
	// RestockOnDelete is "keep" (default) or "restore".
	RestockOnDelete string `yaml:"restock_on_delete"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// MigrationURL returns the PostgreSQL connection string in URL format, as
// golang-migrate expects.
func (d DatabaseConfig) MigrationURL() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15,
			WriteTimeout: 15,
			IdleTimeout:  60,
		},
		Database: DatabaseConfig{
			Driver:      "postgres",
			Host:        "localhost",
			Port:        5432,
			User:        "inventario",
			Password:    "inventario",
			DBName:      "inventario",
			SSLMode:     "disable",
			Path:        "inventario.db",
			ConnRetries: 5,
		},
		App: AppConfig{
			Dev:        true,
			Migrations: true,
		},
		Session: SessionConfig{
			TTL: 14 * 24 * time.Hour,
		},
		Sales: SalesConfig{
			RestockOnDelete: "keep",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads CONFIG_FILE (if set) over the defaults, then applies
// environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(filepath.Clean(path), cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvInt("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvInt("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvInt("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.ConnRetries = getEnvInt("DB_CONN_RETRIES", c.Database.ConnRetries)
	c.Database.Debug = getEnvBool("DB_DEBUG", c.Database.Debug)
	c.Database.SQLMigrations = getEnvBool("DB_SQL_MIGRATIONS", c.Database.SQLMigrations)

	c.App.Dev = getEnvBool("DEV", c.App.Dev)
	c.App.Migrations = getEnvBool("MIGRATIONS", c.App.Migrations)
	c.App.Seed = getEnvBool("DB_SEED", c.App.Seed)

	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Session.TTL = getEnvDuration("SESSION_TTL", c.Session.TTL)
	c.Session.SecureCookie = getEnvBool("SESSION_SECURE_COOKIE", c.Session.SecureCookie)

	c.Sales.RestockOnDelete = strings.ToLower(getEnv("SALE_DELETE_RESTOCK", c.Sales.RestockOnDelete))

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Sales.RestockOnDelete {
	case "keep", "restore":
	default:
		return fmt.Errorf("config: SALE_DELETE_RESTOCK must be keep or restore, got %q", c.Sales.RestockOnDelete)
	}
	if !c.App.Dev && c.Session.Secret == "" {
		return fmt.Errorf("config: SESSION_SECRET is required outside dev mode")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool accepts "1", "true", "yes" as true; any other non-empty value is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
