// Package config provides CLI configuration management for the epadash command-line tool.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want %v", cfg.OutputFormat, DefaultOutputFormat)
	}
	if cfg.ReviewDir != DefaultReviewDir {
		t.Errorf("ReviewDir = %v, want %v", cfg.ReviewDir, DefaultReviewDir)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("Database = %+v, want localhost:5432", cfg.Database)
	}
	if cfg.Sync.Limit != DefaultSyncLimit {
		t.Errorf("Sync.Limit = %v, want %v", cfg.Sync.Limit, DefaultSyncLimit)
	}
	if cfg.Sync.Workers != DefaultSyncWorkers {
		t.Errorf("Sync.Workers = %v, want %v", cfg.Sync.Workers, DefaultSyncWorkers)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis should be disabled by default")
	}
	if cfg.Debug {
		t.Error("Debug should be false by default")
	}
}

// TestOutputFormat_IsValid verifies output format validation.
func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{"invalid", false},
		{"", false},
		{"JSON", false}, // Case sensitive
		{"yaml", false},
	}

	for _, tc := range tests {
		if got := tc.format.IsValid(); got != tc.valid {
			t.Errorf("OutputFormat(%q).IsValid() = %v, want %v", tc.format, got, tc.valid)
		}
	}
}

// TestLoadConfig_FromFile verifies YAML file loading with env dir override.
func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EPADASH_CONFIG_DIR", dir)

	yamlContent := `
output_format: json
debug: true
review_dir: /var/lib/epadash/review
database:
  host: db.internal
  port: 5433
  database: residency
  user: sync_bot
  sslmode: require
redis:
  addr: cache.internal:6379
  cache_ttl: 5m
sync:
  limit: 50
  workers: 2
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(yamlContent), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v, want json", cfg.OutputFormat)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.ReviewDir != "/var/lib/epadash/review" {
		t.Errorf("ReviewDir = %v", cfg.ReviewDir)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.Database != "residency" || cfg.Database.User != "sync_bot" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("SSLMode = %v, want require", cfg.Database.SSLMode)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.Addr != "cache.internal:6379" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Redis.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.Redis.CacheTTL)
	}
	if cfg.Sync.Limit != 50 || cfg.Sync.Workers != 2 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
}

// TestLoadConfig_EnvOverridesFile verifies precedence order.
func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EPADASH_CONFIG_DIR", dir)

	yamlContent := "database:\n  host: from-file\nsync:\n  limit: 10\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(yamlContent), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("EPADASH_DB_HOST", "from-env")
	t.Setenv("EPADASH_SYNC_LIMIT", "99")
	t.Setenv("EPADASH_REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Database.Host != "from-env" {
		t.Errorf("Database.Host = %v, want from-env", cfg.Database.Host)
	}
	if cfg.Sync.Limit != 99 {
		t.Errorf("Sync.Limit = %v, want 99", cfg.Sync.Limit)
	}
	if !cfg.Redis.Enabled() {
		t.Error("Redis should be enabled via env")
	}
}

// TestLoadConfig_MissingFileUsesDefaults verifies defaults without a file.
func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("EPADASH_CONFIG_DIR", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %v, want localhost", cfg.Database.Host)
	}
}

// TestLoadConfig_InvalidYAML verifies parse errors are surfaced.
func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EPADASH_CONFIG_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("database: [broken"), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig should fail on invalid YAML")
	}
}

// TestValidate covers the rejection cases.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{"valid defaults", func(c *CLIConfig) {}, false},
		{"bad output format", func(c *CLIConfig) { c.OutputFormat = "xml" }, true},
		{"empty db host", func(c *CLIConfig) { c.Database.Host = "" }, true},
		{"bad db port", func(c *CLIConfig) { c.Database.Port = 0 }, true},
		{"zero limit", func(c *CLIConfig) { c.Sync.Limit = 0 }, true},
		{"zero workers", func(c *CLIConfig) { c.Sync.Workers = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// TestSaveConfig_RoundTrip verifies save then load preserves settings.
func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("EPADASH_CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.OutputFormat = OutputFormatJSON
	cfg.Database.Host = "db.example.org"
	cfg.Redis = &RedisConfig{Addr: "localhost:6379", CacheTTL: 10 * time.Minute}
	cfg.Sync.Limit = 25

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v", loaded.OutputFormat)
	}
	if loaded.Database.Host != "db.example.org" {
		t.Errorf("Database.Host = %v", loaded.Database.Host)
	}
	if !loaded.Redis.Enabled() || loaded.Redis.CacheTTL != 10*time.Minute {
		t.Errorf("Redis = %+v", loaded.Redis)
	}
	if loaded.Sync.Limit != 25 {
		t.Errorf("Sync.Limit = %v", loaded.Sync.Limit)
	}
}

// TestResolveReviewDir verifies relative paths resolve under the config dir.
func TestResolveReviewDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EPADASH_CONFIG_DIR", dir)

	cfg := DefaultConfig()
	got, err := cfg.ResolveReviewDir()
	if err != nil {
		t.Fatalf("ResolveReviewDir failed: %v", err)
	}
	if got != filepath.Join(dir, DefaultReviewDir) {
		t.Errorf("ResolveReviewDir = %v", got)
	}

	cfg.ReviewDir = "/abs/path"
	got, err = cfg.ResolveReviewDir()
	if err != nil {
		t.Fatalf("ResolveReviewDir failed: %v", err)
	}
	if got != "/abs/path" {
		t.Errorf("ResolveReviewDir = %v, want /abs/path", got)
	}
}

// TestExpandPath verifies home directory expansion.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ExpandPath("~/x/y")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandPath = %v", got)
	}

	got, err = ExpandPath("/plain")
	if err != nil || got != "/plain" {
		t.Errorf("ExpandPath(/plain) = %v, %v", got, err)
	}
}
