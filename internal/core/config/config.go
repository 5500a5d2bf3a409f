package config

import (
	"time"

	redisclient "github.com/vietddude/authguard/internal/infra/redis"
	"github.com/vietddude/authguard/internal/infra/storage/postgres"
	"github.com/vietddude/authguard/internal/signin/cleanup"
	"github.com/vietddude/authguard/internal/signin/flow"
)

// Storage drivers for the persisted key-value store.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Storage  StorageConfig      `yaml:"storage"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Cleanup  CleanupConfig      `yaml:"cleanup"`
	SignIn   flow.Config        `yaml:"signin"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StorageConfig selects the persisted key-value backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory (default), redis, postgres
}

// CleanupConfig holds the persisted-key patterns and the preventive janitor interval.
type CleanupConfig struct {
	cleanup.Patterns `yaml:",inline"`
	Interval         time.Duration `yaml:"interval"` // 0 disables periodic preventive cleanup
}
