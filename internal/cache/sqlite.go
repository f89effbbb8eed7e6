package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

func init() {
	Register("sqlite", newSQLiteCache)
}

// sqliteCache persists entries in a single table so they survive restarts.
// Expired rows are removed lazily on read and in bulk on every write.
type sqliteCache struct {
	db      *sql.DB
	ttl     time.Duration
	maxSize int
	onEvict EvictCallback
	logger  Logger
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache (
	cache_key  TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_cached_at ON cache(cached_at);
`

func newSQLiteCache(cfg Options) (Cache, error) {
	if cfg.SQLitePath == "" {
		return nil, errors.New("sqlite cache requires a database path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// A single connection serializes writers, which sqlite requires anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createCacheTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &sqliteCache{
		db:      db,
		ttl:     cfg.TTL,
		maxSize: cfg.Size,
		onEvict: cfg.OnEvict,
		logger:  cfg.Logger,
	}, nil
}

func (c *sqliteCache) logError(msg string, err error) {
	if c.logger != nil {
		c.logger.Error(msg, err)
	}
}

func (c *sqliteCache) expiry(now time.Time) int64 {
	if c.ttl <= 0 {
		return math.MaxInt64
	}
	return now.Add(c.ttl).UnixNano()
}

func (c *sqliteCache) Get(ctx context.Context, key string) ([]byte, bool) {
	var (
		value     []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache WHERE cache_key = ?", key,
	).Scan(&value, &expiresAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logError("sqlite cache Get failed", err)
		}
		return nil, false
	}

	if time.Now().UnixNano() >= expiresAt {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE cache_key = ?", key); err != nil {
			c.logError("sqlite cache expiry cleanup failed", err)
		}
		return nil, false
	}
	return value, true
}

func (c *sqliteCache) Set(ctx context.Context, key string, value []byte) {
	now := time.Now()
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache (cache_key, value, cached_at, expires_at) VALUES (?, ?, ?, ?)`,
		key, value, now.UnixNano(), c.expiry(now),
	)
	if err != nil {
		c.logError("sqlite cache Set failed", err)
		return
	}

	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE expires_at <= ?", now.UnixNano()); err != nil {
		c.logError("sqlite cache purge failed", err)
	}
	c.evictOverflow(ctx)
}

// evictOverflow removes the oldest entries beyond maxSize
func (c *sqliteCache) evictOverflow(ctx context.Context) {
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache").Scan(&count); err != nil {
		c.logError("sqlite cache count failed", err)
		return
	}
	overflow := count - c.maxSize
	if overflow <= 0 {
		return
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT cache_key, value FROM cache ORDER BY cached_at ASC LIMIT ?", overflow)
	if err != nil {
		c.logError("sqlite cache eviction query failed", err)
		return
	}

	type evicted struct {
		key   string
		value []byte
	}
	var victims []evicted
	for rows.Next() {
		var e evicted
		if err := rows.Scan(&e.key, &e.value); err != nil {
			c.logError("sqlite cache eviction scan failed", err)
			break
		}
		victims = append(victims, e)
	}
	_ = rows.Close()

	for _, v := range victims {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE cache_key = ?", v.key); err != nil {
			c.logError("sqlite cache eviction failed", err)
			continue
		}
		if c.onEvict != nil {
			c.onEvict(v.key, v.value)
		}
	}
}

func (c *sqliteCache) Contains(ctx context.Context, key string) bool {
	var exists int
	err := c.db.QueryRowContext(ctx,
		"SELECT 1 FROM cache WHERE cache_key = ? AND expires_at > ?", key, time.Now().UnixNano(),
	).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.logError("sqlite cache Contains failed", err)
	}
	return err == nil
}

func (c *sqliteCache) Len() int {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM cache WHERE expires_at > ?", time.Now().UnixNano()).Scan(&n)
	if err != nil {
		c.logError("sqlite cache Len failed", err)
		return 0
	}
	return n
}

func (c *sqliteCache) Close() error {
	return c.db.Close()
}
