package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyzr/workflowkernel/common/logger"
)

// PostgresCache implements Cache on a simple key/value table, for
// callers that need a cached value to survive a process restart
// (definition documents, in particular) rather than live only for
// the lifetime of one in-memory map.
type PostgresCache struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresCache wraps an already-connected pool.
func NewPostgresCache(pool *pgxpool.Pool, log *logger.Logger) *PostgresCache {
	return &PostgresCache{pool: pool, log: log}
}

func (c *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.pool.QueryRow(ctx, `
		SELECT value FROM kv_cache WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cache key %s: %w", key, err)
	}
	return value, true, nil
}

func (c *PostgresCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO kv_cache (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("set cache key %s: %w", key, err)
	}
	return nil
}

func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM kv_cache WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete cache key %s: %w", key, err)
	}
	return nil
}

func (c *PostgresCache) Close() error {
	c.log.Info("postgres cache closed")
	return nil
}
