package messaging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/circuitbreaker"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

var at = time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)

func submitted(id string) shared.Event {
	return shared.AttendanceSubmittedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventAttendanceSubmitted, id, at),
		Status:    "present",
		Date:      at,
	}
}

func TestInMemoryEventBus_SyncDeliveryOrder(t *testing.T) {
	bus := NewInMemoryEventBus(Config{})
	defer bus.Close()

	var got []string
	require.NoError(t, bus.Subscribe(shared.EventAttendanceSubmitted, func(e shared.Event) error {
		got = append(got, "typed:"+e.AggregateID())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+e.AggregateID())
		return nil
	}))

	require.NoError(t, bus.Publish(submitted("1")))
	require.NoError(t, bus.Publish(shared.LogChangedEvent{BaseEvent: shared.NewBaseEvent(shared.EventLogCreated, "2", at)}))

	assert.Equal(t, []string{"typed:1", "all:1", "all:2"}, got)
	assert.Equal(t, StatsSnapshot{Published: 2, Handled: 3}, bus.Stats())
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(Config{})
	defer bus.Close()

	var reached bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("kaboom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { reached = true; return nil }))

	assert.NoError(t, bus.Publish(submitted("1")))
	assert.True(t, reached)
	assert.Equal(t, int64(2), bus.Stats().Failed)
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(Config{AsyncMode: true, WorkerPoolSize: 2})

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		n.Add(1)
		return nil
	}))
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(submitted("x")))
	}

	require.NoError(t, bus.Close())
	assert.Equal(t, int32(10), n.Load())

	assert.ErrorIs(t, bus.Publish(submitted("y")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventLogCreated, func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(Config{})
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventLogCreated, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Subscribers
// ─────────────────────────────────────────────────────────────────────────────

type fakeCache struct {
	mu       sync.Mutex
	prefixes []string
	fail     []error
}

func (c *fakeCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixes = append(c.prefixes, prefix)
	if len(c.fail) > 0 {
		err := c.fail[0]
		c.fail = c.fail[1:]
		return err
	}
	return nil
}

func TestRegister_InvalidatesAndAudits(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo})
	cache := &fakeCache{}
	bus := NewInMemoryEventBus(Config{})

	require.NoError(t, Register(bus, cache, "report:", log))
	require.NoError(t, bus.Publish(submitted("42")))
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"report:"}, cache.prefixes)

	var audit *logger.Entry
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var e logger.Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		if e.Message == "domain event" {
			audit = &e
		}
	}
	require.NotNil(t, audit)
	assert.Equal(t, "audit", audit.Fields["component"])
	assert.Equal(t, "attendance.submitted", audit.Fields["event_type"])
	assert.Equal(t, "42", audit.Fields["aggregate_id"])
	assert.Equal(t, "present", audit.Fields["status"])
}

func TestRegister_WithoutCacheOnlyAudits(t *testing.T) {
	bus := NewInMemoryEventBus(Config{})
	defer bus.Close()

	require.NoError(t, Register(bus, nil, "report:", nil))
	require.NoError(t, bus.Publish(submitted("1")))
	assert.Equal(t, int64(1), bus.Stats().Handled)
}

func TestCacheInvalidator_Retries(t *testing.T) {
	cache := &fakeCache{fail: []error{errors.New("timeout")}}
	inv := NewCacheInvalidator(cache, "report:", nil)

	require.NoError(t, inv.Handle(submitted("1")))
	assert.Len(t, cache.prefixes, 2)
}

func TestCacheInvalidator_DoesNotRetryOpenBreaker(t *testing.T) {
	cache := &fakeCache{fail: []error{circuitbreaker.ErrOpen}}
	inv := NewCacheInvalidator(cache, "report:", nil)

	err := inv.Handle(submitted("1"))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Len(t, cache.prefixes, 1)
}
