// Package config provides configuration management for the catalog tool
// and the probe server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort      = 5000
	DefaultCatalogPort     = 8080
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultSpawnTimeout    = 2 * time.Second
	DefaultSpawnShell      = "/bin/sh"
	DefaultDataFile        = "data/products.json"
	DefaultFeedInterval    = 2 * time.Second
	DefaultEnvFile         = ".env"
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvCatalogPort     = "APP_CATALOG_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvLogFormat       = "APP_LOG_FORMAT"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvSpawnTimeout    = "APP_SPAWN_TIMEOUT"
	EnvSpawnShell      = "APP_SPAWN_SHELL"
	EnvDataFile        = "APP_DATA_FILE"
	EnvFeedInterval    = "APP_FEED_INTERVAL"
	EnvEnvFile         = "APP_ENV_FILE"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int // Probe server port.
	CatalogPort     int // Catalog API port.
	LogLevel        string
	LogFormat       string // json or console.
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Probe settings.
	SpawnTimeout time.Duration
	SpawnShell   string

	// Catalog settings.
	DataFile     string
	FeedInterval time.Duration
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidCatalogPort     = errors.New("catalog port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat       = errors.New("log format must be one of: json, console")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidSpawnTimeout    = errors.New("spawn timeout must be positive")
	ErrInvalidSpawnShell      = errors.New("spawn shell must be set")
	ErrInvalidDataFile        = errors.New("data file path must be set")
	ErrInvalidFeedInterval    = errors.New("feed interval must be positive")
)

// Load reads configuration from environment variables with defaults.
// Variables from the env file (APP_ENV_FILE, default ".env") are applied
// first without overriding variables already set in the environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &Config{
		ServerPort:      DefaultServerPort,
		CatalogPort:     DefaultCatalogPort,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		SpawnTimeout:    DefaultSpawnTimeout,
		SpawnShell:      DefaultSpawnShell,
		DataFile:        DefaultDataFile,
		FeedInterval:    DefaultFeedInterval,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadEnvFile applies the env file if it exists.
func loadEnvFile() error {
	path := os.Getenv(EnvEnvFile)
	if path == "" {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadProbeEnv(); err != nil {
		return err
	}

	if err := c.loadCatalogEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if err := intEnv(EnvServerPort, &c.ServerPort); err != nil {
		return err
	}

	if err := intEnv(EnvCatalogPort, &c.CatalogPort); err != nil {
		return err
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvLogFormat); val != "" {
		c.LogFormat = val
	}

	if err := durationEnv(EnvShutdownTimeout, &c.ShutdownTimeout); err != nil {
		return err
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadProbeEnv loads probe server environment variables.
func (c *Config) loadProbeEnv() error {
	if err := durationEnv(EnvSpawnTimeout, &c.SpawnTimeout); err != nil {
		return err
	}

	if val := os.Getenv(EnvSpawnShell); val != "" {
		c.SpawnShell = val
	}

	return nil
}

// loadCatalogEnv loads catalog environment variables.
func (c *Config) loadCatalogEnv() error {
	if val := os.Getenv(EnvDataFile); val != "" {
		c.DataFile = val
	}

	return durationEnv(EnvFeedInterval, &c.FeedInterval)
}

func intEnv(key string, dst *int) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = n

	return nil
}

func durationEnv(key string, dst *time.Duration) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = d

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if c.SpawnTimeout <= 0 {
		return ErrInvalidSpawnTimeout
	}

	if c.SpawnShell == "" {
		return ErrInvalidSpawnShell
	}

	if c.DataFile == "" {
		return ErrInvalidDataFile
	}

	if c.FeedInterval <= 0 {
		return ErrInvalidFeedInterval
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.CatalogPort < 1 || c.CatalogPort > 65535 {
		return ErrInvalidCatalogPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[c.LogFormat] {
		return ErrInvalidLogFormat
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// Address returns the probe server address in host:port format,
// listening on all interfaces.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// CatalogAddress returns the catalog API address in host:port format.
func (c *Config) CatalogAddress() string {
	return fmt.Sprintf(":%d", c.CatalogPort)
}
