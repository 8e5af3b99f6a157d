package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eunmann/vuln-stats/internal/logctx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig holds configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	Path string
	// Synchronous sets the SQLite synchronous pragma.
	// "NORMAL" is the default (good balance of safety and speed).
	// "OFF" for maximum speed (unsafe on crash).
	// "FULL" for maximum safety.
	Synchronous string
	// CacheSizeKB is the page cache size in KB.
	CacheSizeKB int
	// BusyTimeoutMs is how long a writer waits on a locked database.
	BusyTimeoutMs int
}

// DefaultSQLiteConfig returns the default SQLite tuning for path.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:          path,
		Synchronous:   "NORMAL",
		CacheSizeKB:   65536, // 64MB
		BusyTimeoutMs: 5000,
	}
}

// Validate checks configuration values and fills defaults for zero values.
func (c *SQLiteConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("SQLite path is required")
	}
	def := DefaultSQLiteConfig(c.Path)
	switch c.Synchronous {
	case "":
		c.Synchronous = def.Synchronous
	case "OFF", "NORMAL", "FULL":
		// Valid values
	default:
		return fmt.Errorf("invalid Synchronous value %q: must be OFF, NORMAL, or FULL", c.Synchronous)
	}
	if c.CacheSizeKB < 0 {
		return fmt.Errorf("CacheSizeKB must be non-negative, got %d", c.CacheSizeKB)
	}
	if c.CacheSizeKB == 0 {
		c.CacheSizeKB = def.CacheSizeKB
	}
	if c.BusyTimeoutMs < 0 {
		return fmt.Errorf("BusyTimeoutMs must be non-negative, got %d", c.BusyTimeoutMs)
	}
	if c.BusyTimeoutMs == 0 {
		c.BusyTimeoutMs = def.BusyTimeoutMs
	}
	return nil
}

func openSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open(sqliteDialect.driver, cfg.Path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in effect.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", cfg.Synchronous),
		"PRAGMA temp_store=MEMORY",
		fmt.Sprintf("PRAGMA cache_size=-%d", cfg.CacheSizeKB),
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeoutMs),
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	s, err := newSQLStore(ctx, db, sqliteDialect)
	if err != nil {
		return nil, err
	}

	log := logctx.FromContext(ctx)
	log.Info().
		Str("db_path", cfg.Path).
		Str("synchronous", cfg.Synchronous).
		Msg("opened SQLite store")
	return s, nil
}
