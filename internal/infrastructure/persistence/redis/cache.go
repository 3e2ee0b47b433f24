// Package redis implements the report cache on Redis. Reports are stored as
// JSON under a shared prefix so that any write can drop them all with one
// SCAN/DEL sweep. Calls go through a circuit breaker: Redis is optional and a
// dead server must not slow requests down.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sekolah-hub/attendance-hub/pkg/circuitbreaker"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Addr is host:port.
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	// MaxRetries of -1 disables retries.
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// NewClient creates a client without contacting the server.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheSerialization is returned when a value cannot be encoded or decoded.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty is returned when an empty key is provided.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// scanBatch bounds SCAN pages and DEL batches.
const scanBatch = 100

// ══════════════════════════════════════════════════════════════════════════════
// REPORT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ReportCache implements query.ReportCache.
type ReportCache struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewReportCache wraps client with the report-cache breaker.
func NewReportCache(client *redis.Client, log *logger.Logger) *ReportCache {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("report-cache"))
	return &ReportCache{
		client: client,
		breaker: circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("cache breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		}),
		logger: log,
	}
}

// Ping checks if Redis is reachable.
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *ReportCache) Close() error {
	return c.client.Close()
}

// Get decodes the value under key into dest. A missing key is (false, nil).
func (c *ReportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if key == "" {
		return false, ErrCacheKeyEmpty
	}
	var data []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return true, nil
}

// Set stores value as JSON with ttl.
func (c *ReportCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, ttl).Err()
	})
}

// DeletePrefix deletes every key starting with prefix.
func (c *ReportCache) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return ErrCacheKeyEmpty
	}
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		iter := c.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
		keys := make([]string, 0, scanBatch)
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
			if len(keys) >= scanBatch {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return err
				}
				keys = keys[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) > 0 {
			return c.client.Del(ctx, keys...).Err()
		}
		return nil
	})
}
