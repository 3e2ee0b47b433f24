package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/circuitbreaker"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIBERS
// ══════════════════════════════════════════════════════════════════════════════

// mutating lists the events after which cached reports are stale.
var mutating = []shared.EventType{
	shared.EventAttendanceSubmitted,
	shared.EventAttendanceRolledBack,
	shared.EventAttendanceDayClosed,
	shared.EventPointsAdjusted,
	shared.EventRecordExecuted,
	shared.EventLogCreated,
	shared.EventLogDeleted,
	shared.EventDirectoryChanged,
}

// PrefixDeleter drops cached keys by prefix.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// CacheInvalidator drops every cached report when data changes.
type CacheInvalidator struct {
	cache   PrefixDeleter
	prefix  string
	timeout time.Duration
	retrier *retry.Retrier
	logger  *logger.Logger
}

// NewCacheInvalidator creates an invalidator for keys under prefix.
func NewCacheInvalidator(cache PrefixDeleter, prefix string, log *logger.Logger) *CacheInvalidator {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("cache-invalidator"))
	return &CacheInvalidator{
		cache:   cache,
		prefix:  prefix,
		timeout: 3 * time.Second,
		retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(50*time.Millisecond),
			retry.WithMaxDelay(500*time.Millisecond),
			// An open breaker will not close within our retry window.
			retry.WithRetryIf(func(err error) bool { return !errors.Is(err, circuitbreaker.ErrOpen) }),
		),
		logger: log,
	}
}

// Handle implements shared.EventHandler.
func (c *CacheInvalidator) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.cache.DeletePrefix(ctx, c.prefix)
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate reports after %s: %w", event.EventType(), err)
	}
	c.logger.Debug("reports invalidated", logger.String("event_type", string(event.EventType())))
	return nil
}

// AuditLog writes one structured line per domain event.
type AuditLog struct {
	logger *logger.Logger
}

// NewAuditLog creates an audit subscriber.
func NewAuditLog(log *logger.Logger) *AuditLog {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditLog{logger: log.With(logger.Component("audit"))}
}

// Handle implements shared.EventHandler.
func (a *AuditLog) Handle(event shared.Event) error {
	fields := []logger.Field{
		logger.String("event_type", string(event.EventType())),
		logger.String("aggregate_id", event.AggregateID()),
		logger.Time("occurred_at", event.OccurredAt()),
	}
	for k, v := range event.Payload() {
		fields = append(fields, logger.Any(k, v))
	}
	a.logger.Info("domain event", fields...)
	return nil
}

// Register wires the invalidator (when cache is not nil) and the audit log.
func Register(bus shared.EventSubscriber, cache PrefixDeleter, prefix string, log *logger.Logger) error {
	if cache != nil {
		inv := NewCacheInvalidator(cache, prefix, log)
		for _, t := range mutating {
			if err := bus.Subscribe(t, inv.Handle); err != nil {
				return fmt.Errorf("failed to subscribe cache invalidator to %s: %w", t, err)
			}
		}
	}
	if err := bus.SubscribeAll(NewAuditLog(log).Handle); err != nil {
		return fmt.Errorf("failed to subscribe audit log: %w", err)
	}
	return nil
}
