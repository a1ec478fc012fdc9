// Package redis provides the optional Redis adapter: a thin client
// wrapper and the distributed mutex that serializes model training
// against the shared artifact in multi-process deployments.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// Client wraps a standalone go-redis client with key namespacing.
type Client struct {
	rdb       *redis.Client
	keyPrefix string
	log       logging.Logger
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "redis connection failed")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "cfs"
	}

	log.Info("connected to redis", logging.String("addr", cfg.Addr))
	return &Client{rdb: rdb, keyPrefix: prefix, log: log}, nil
}

// Raw exposes the underlying go-redis client.
func (c *Client) Raw() *redis.Client { return c.rdb }

// Key namespaces a key under the configured prefix.
func (c *Client) Key(parts ...string) string {
	k := c.keyPrefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "redis health check failed")
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	err := c.rdb.Close()
	if err == nil {
		c.log.Info("redis connection closed")
	}
	return err
}
