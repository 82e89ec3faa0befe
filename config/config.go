// Package config provides CLI configuration management for the epadash
// command-line tool. It supports loading configuration from YAML files and
// environment variables, with command-line flags layered on top by cmd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
)

// Default configuration values.
const (
	DefaultOutputFormat = OutputFormatText
	DefaultConfigDir    = ".epadash"
	DefaultConfigFile   = "config.yaml"
	DefaultReviewDir    = "review"
	DefaultSyncLimit    = 200
	DefaultSyncWorkers  = 4
)

// DatabaseConfig holds dashboard database connection settings. The password
// is never stored here; it is resolved by the credentials package.
type DatabaseConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

// RedisConfig holds optional Redis cache settings. When Addr is empty the
// cache layer is not used.
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	CacheTTL time.Duration `yaml:"-"`
}

// Enabled reports whether the cache should be wired in.
func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Addr != ""
}

// SyncConfig holds defaults for sync runs, overridable per run by flags.
type SyncConfig struct {
	Limit   int `yaml:"limit,omitempty"`
	Workers int `yaml:"workers,omitempty"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// ReviewDir is the directory review artifacts are written to.
	// Relative paths are resolved under the config directory.
	ReviewDir string `yaml:"review_dir,omitempty"`

	// Database holds dashboard database connection settings.
	Database DatabaseConfig `yaml:"database"`

	// Redis holds optional cache settings.
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// Sync holds sync run defaults.
	Sync SyncConfig `yaml:"sync"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		OutputFormat: DefaultOutputFormat,
		ReviewDir:    DefaultReviewDir,
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "epadash",
			User:     "epadash",
			SSLMode:  "disable",
		},
		Sync: SyncConfig{
			Limit:   DefaultSyncLimit,
			Workers: DefaultSyncWorkers,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $EPADASH_CONFIG_DIR if set, otherwise ~/.epadash
func ConfigDir() (string, error) {
	if dir := os.Getenv("EPADASH_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.epadash/config.yaml or $EPADASH_CONFIG_DIR/config.yaml)
// 3. Environment variables (EPADASH_*)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Temp struct so the cache TTL can be written as a duration string.
	type redisFile struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		CacheTTL string `yaml:"cache_ttl"`
	}
	type configFile struct {
		OutputFormat OutputFormat   `yaml:"output_format"`
		Debug        bool           `yaml:"debug"`
		ReviewDir    string         `yaml:"review_dir"`
		Database     DatabaseConfig `yaml:"database"`
		Redis        *redisFile     `yaml:"redis"`
		Sync         SyncConfig     `yaml:"sync"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	cfg.Debug = fileCfg.Debug
	if fileCfg.ReviewDir != "" {
		cfg.ReviewDir = fileCfg.ReviewDir
	}
	if fileCfg.Database.Host != "" {
		cfg.Database.Host = fileCfg.Database.Host
	}
	if fileCfg.Database.Port != 0 {
		cfg.Database.Port = fileCfg.Database.Port
	}
	if fileCfg.Database.Database != "" {
		cfg.Database.Database = fileCfg.Database.Database
	}
	if fileCfg.Database.User != "" {
		cfg.Database.User = fileCfg.Database.User
	}
	if fileCfg.Database.SSLMode != "" {
		cfg.Database.SSLMode = fileCfg.Database.SSLMode
	}
	if fileCfg.Redis != nil {
		cfg.Redis = &RedisConfig{Addr: fileCfg.Redis.Addr, DB: fileCfg.Redis.DB}
		if fileCfg.Redis.CacheTTL != "" {
			ttl, err := time.ParseDuration(fileCfg.Redis.CacheTTL)
			if err != nil {
				return fmt.Errorf("parsing redis cache_ttl: %w", err)
			}
			cfg.Redis.CacheTTL = ttl
		}
	}
	if fileCfg.Sync.Limit != 0 {
		cfg.Sync.Limit = fileCfg.Sync.Limit
	}
	if fileCfg.Sync.Workers != 0 {
		cfg.Sync.Workers = fileCfg.Sync.Workers
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("EPADASH_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if v := os.Getenv("EPADASH_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
	if v := os.Getenv("EPADASH_REVIEW_DIR"); v != "" {
		cfg.ReviewDir = v
	}

	if v := os.Getenv("EPADASH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("EPADASH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("EPADASH_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("EPADASH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("EPADASH_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	if v := os.Getenv("EPADASH_REDIS_ADDR"); v != "" {
		if cfg.Redis == nil {
			cfg.Redis = &RedisConfig{}
		}
		cfg.Redis.Addr = v
	}

	if v := os.Getenv("EPADASH_SYNC_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Sync.Limit = limit
		}
	}
	if v := os.Getenv("EPADASH_SYNC_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			cfg.Sync.Workers = workers
		}
	}
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text or json)", c.OutputFormat)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port: %d", c.Database.Port)
	}
	if c.Sync.Limit <= 0 {
		return fmt.Errorf("sync.limit must be positive")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive")
	}
	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// ResolveReviewDir returns the absolute review artifact directory, resolving
// relative paths under the config directory.
func (c *CLIConfig) ResolveReviewDir() (string, error) {
	dir, err := ExpandPath(c.ReviewDir)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = DefaultReviewDir
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, dir), nil
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	type redisFile struct {
		Addr     string `yaml:"addr,omitempty"`
		DB       int    `yaml:"db,omitempty"`
		CacheTTL string `yaml:"cache_ttl,omitempty"`
	}
	type configFile struct {
		OutputFormat OutputFormat   `yaml:"output_format"`
		Debug        bool           `yaml:"debug,omitempty"`
		ReviewDir    string         `yaml:"review_dir,omitempty"`
		Database     DatabaseConfig `yaml:"database"`
		Redis        *redisFile     `yaml:"redis,omitempty"`
		Sync         SyncConfig     `yaml:"sync"`
	}

	fileCfg := configFile{
		OutputFormat: cfg.OutputFormat,
		Debug:        cfg.Debug,
		ReviewDir:    cfg.ReviewDir,
		Database:     cfg.Database,
		Sync:         cfg.Sync,
	}
	if cfg.Redis != nil {
		fileCfg.Redis = &redisFile{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}
		if cfg.Redis.CacheTTL > 0 {
			fileCfg.Redis.CacheTTL = cfg.Redis.CacheTTL.String()
		}
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
