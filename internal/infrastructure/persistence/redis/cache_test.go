package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/pkg/circuitbreaker"
)

// unreachable points at a closed local port so every call fails fast.
func unreachable() *ReportCache {
	return NewReportCache(NewClient(Config{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
	}), nil)
}

func TestReportCache_EmptyKey(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "", new(int))
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.DeletePrefix(ctx, ""), ErrCacheKeyEmpty)
}

func TestReportCache_UnserializableValue(t *testing.T) {
	c := unreachable()
	defer c.Close()

	err := c.Set(context.Background(), "report:x", make(chan int), time.Minute)
	assert.ErrorIs(t, err, ErrCacheSerialization)
}

func TestReportCache_BreakerOpensWhenRedisIsDown(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, "report:dashboard:2024-03-11", new(map[string]any))
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	_, err := c.Get(ctx, "report:dashboard:2024-03-11", new(map[string]any))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.ErrorIs(t, c.DeletePrefix(ctx, "report:"), circuitbreaker.ErrOpen)
}
