package storage

import (
	"fmt"
	"time"
)

// Config holds the SQLite tuning applied when the store opens.
type Config struct {
	MaxOpenConns int
	MaxIdleConns int
	BusyTimeout  time.Duration
	CacheSizeKB  int
}

// DefaultConfig returns the store's default tuning: WAL so readers are never
// blocked by an in-progress index pass, and a busy timeout generous enough
// for concurrent per-session transactions.
func DefaultConfig() *Config {
	return &Config{
		MaxOpenConns: 5,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
		CacheSizeKB:  64000,
	}
}

func (c *Config) pragmas() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = memory",
		fmt.Sprintf("PRAGMA busy_timeout = %d", c.BusyTimeout.Milliseconds()),
		fmt.Sprintf("PRAGMA cache_size = -%d", c.CacheSizeKB),
	}
}
