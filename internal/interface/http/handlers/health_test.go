package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthChecker_AllPassing(t *testing.T) {
	c := NewHealthChecker("1.2.3")
	c.AddCheck("database", PingCheck(pinger{}))
	c.AddCheck("redis", PingCheck(pinger{}))

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "All checks passed", status.Message)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Len(t, status.Checks, 2)
	assert.Equal(t, "OK", status.Checks["database"].Message)
}

func TestHealthChecker_ReportsFailuresSorted(t *testing.T) {
	c := NewHealthChecker("dev")
	c.AddCheck("redis", PingCheck(pinger{err: errors.New("connection refused")}))
	c.AddCheck("database", PingCheck(pinger{err: errors.New("timeout")}))
	c.AddCheck("media", func(context.Context) error { return nil })

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "Some checks failed: database, redis", status.Message)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	assert.True(t, status.Checks["media"].Healthy)
}

func TestHealthChecker_Timeout(t *testing.T) {
	c := NewHealthChecker("dev")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}

func TestHealthChecker_NoChecks(t *testing.T) {
	status := NewHealthChecker("dev").Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "No health checks registered", status.Message)
}
