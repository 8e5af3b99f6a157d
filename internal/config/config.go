// Package config loads vulnstats settings from defaults, an optional YAML
// file, VULNSTATS_* environment variables and command line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// Config is the top-level configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	VUSC    VUSCConfig    `mapstructure:"vusc"`
	DB      DBConfig      `mapstructure:"db"`
	Apps    AppsConfig    `mapstructure:"apps"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
	Analyze AnalyzeConfig `mapstructure:"analyze"`
}

// VUSCConfig locates the scanning service.
type VUSCConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// DBConfig locates the statistics store.
type DBConfig struct {
	URL      string       `mapstructure:"url"`
	User     string       `mapstructure:"user"`
	Password string       `mapstructure:"password"`
	SQLite   SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig tunes the SQLite backend.
type SQLiteConfig struct {
	Synchronous   string `mapstructure:"synchronous"`
	CacheSizeKB   int    `mapstructure:"cache_size_kb"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// AppsConfig describes the APK list for import and submit.
type AppsConfig struct {
	Files   string `mapstructure:"files"`
	Year    int    `mapstructure:"year"`
	Workers int    `mapstructure:"workers"`
}

// OutputConfig holds optional side outputs.
type OutputConfig struct {
	MetricsFile string `mapstructure:"metrics_file"`
	ParquetDir  string `mapstructure:"parquet_dir"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Debug bool `mapstructure:"debug"`
	Human bool `mapstructure:"human"`
}

// AnalyzeConfig controls the analyze command.
type AnalyzeConfig struct {
	ProgressEvery int64 `mapstructure:"progress_every"`
}

// Sentinel errors for configuration validation.
var (
	// ErrMissingServiceURL indicates no scanning service URL was given.
	ErrMissingServiceURL = errors.New("no scanning service URL specified (--vusc-url)")
	// ErrMissingDatabaseURL indicates no store URL was given.
	ErrMissingDatabaseURL = errors.New("no database URL specified (--db-url)")
	// ErrMissingCredentials indicates a PostgreSQL store without user or
	// password. It is the error store.Open returns for the same case.
	ErrMissingCredentials = store.ErrMissingCredentials
	// ErrMissingAppFiles indicates no APK list was given.
	ErrMissingAppFiles = errors.New("no app list specified (--app-files)")
	// ErrInvalidYear indicates a missing or non-positive release year.
	ErrInvalidYear = errors.New("release year must be positive (--year)")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("apps.workers must be non-negative")
	// ErrInvalidTimeout indicates a non-positive service timeout.
	ErrInvalidTimeout = errors.New("vusc timeouts must be positive")
)

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	if c.Apps.Workers < 0 {
		return ErrInvalidWorkers
	}
	if c.VUSC.ConnectTimeout <= 0 || c.VUSC.ReadTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// ValidateStore checks the store settings. PostgreSQL needs credentials;
// SQLite does not.
func (c *Config) ValidateStore() error {
	if c.DB.URL == "" {
		return ErrMissingDatabaseURL
	}
	if isPostgres(c.DB.URL) && (c.DB.User == "" || c.DB.Password == "") {
		return fmt.Errorf("%w (--db-user, --db-password)", ErrMissingCredentials)
	}
	return nil
}

// ValidateService checks the scanning service settings.
func (c *Config) ValidateService() error {
	if c.VUSC.URL == "" {
		return ErrMissingServiceURL
	}
	return nil
}

// ValidateAppFiles checks the APK list settings. The release year is only
// needed when importing.
func (c *Config) ValidateAppFiles(needYear bool) error {
	if c.Apps.Files == "" {
		return ErrMissingAppFiles
	}
	if needYear && c.Apps.Year <= 0 {
		return ErrInvalidYear
	}
	return nil
}

// StoreConfig converts the store settings for store.Open.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		URL:      c.DB.URL,
		User:     c.DB.User,
		Password: c.DB.Password,
		SQLite: store.SQLiteConfig{
			Synchronous:   c.DB.SQLite.Synchronous,
			CacheSizeKB:   c.DB.SQLite.CacheSizeKB,
			BusyTimeoutMs: c.DB.SQLite.BusyTimeoutMs,
		},
	}
}

// ClientConfig converts the service settings for vusc.NewClient.
func (c *Config) ClientConfig() vusc.ClientConfig {
	return vusc.ClientConfig{
		ConnectTimeout: c.VUSC.ConnectTimeout,
		ReadTimeout:    c.VUSC.ReadTimeout,
		UserAgent:      c.VUSC.UserAgent,
	}
}

func isPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}
