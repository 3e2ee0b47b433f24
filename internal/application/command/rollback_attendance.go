package command

import (
	"context"
	"fmt"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLLBACK ATTENDANCE BY DATE
// Maintenance command: removes every attendance of a day and everything it
// produced, reversing the ledger deltas so the ledger still matches the logs.
// ══════════════════════════════════════════════════════════════════════════════

// RollbackAttendanceResult summarizes a rollback.
type RollbackAttendanceResult struct {
	Date     time.Time `json:"date"`
	Reverted int       `json:"reverted"`
	// PointsReversed is the sum of ledger deltas applied by the rollback.
	PointsReversed int `json:"points_reversed"`
	// MediaPaths are the files that were unlinked from storage.
	MediaPaths []string `json:"-"`
}

// RollbackAttendanceHandler handles rollbacks.
type RollbackAttendanceHandler struct {
	uow     store.UnitOfWork
	media   attendance.MediaStore
	outcome *OutcomeApplier
	clock   timeutil.Clock
	events  shared.EventPublisher
	logger  *logger.Logger
}

// NewRollbackAttendanceHandler creates a new RollbackAttendanceHandler.
func NewRollbackAttendanceHandler(uow store.UnitOfWork, media attendance.MediaStore, outcome *OutcomeApplier, clock timeutil.Clock, events shared.EventPublisher, log *logger.Logger) *RollbackAttendanceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RollbackAttendanceHandler{uow: uow, media: media, outcome: outcome, clock: clock, events: events, logger: log.With(logger.Component("rollback_attendance"))}
}

// Handle rolls back every attendance on date. Returns ErrNoAttendanceForDate
// when the day is empty.
func (h *RollbackAttendanceHandler) Handle(ctx context.Context, date time.Time) (*RollbackAttendanceResult, error) {
	now := h.clock.Now()
	result := RollbackAttendanceResult{Date: date}

	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		rows, err := repos.Attendance.ListByDate(ctx, date)
		if err != nil {
			return fmt.Errorf("rollback_attendance: list: %w", err)
		}
		if len(rows) == 0 {
			return shared.ErrNoAttendanceForDate
		}

		for _, a := range rows {
			delta, err := h.outcome.Revert(ctx, repos, a, now)
			if err != nil {
				return err
			}
			result.PointsReversed += delta

			media, err := repos.Attendance.ListMedia(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("rollback_attendance: list media: %w", err)
			}
			for _, m := range media {
				result.MediaPaths = append(result.MediaPaths, m.Path)
			}
			if _, err := repos.Attendance.DeleteMedia(ctx, a.ID); err != nil {
				return fmt.Errorf("rollback_attendance: delete media: %w", err)
			}
			if _, err := repos.Attendance.DeleteJournal(ctx, a.ID); err != nil {
				return fmt.Errorf("rollback_attendance: delete journal: %w", err)
			}
			if err := repos.Attendance.Delete(ctx, a.ID); err != nil {
				return fmt.Errorf("rollback_attendance: delete attendance: %w", err)
			}
			result.Reverted++
		}
		return nil
	})
	if err != nil {
		return nil, failure(h.logger, "attendance", "Rollback", err)
	}

	// Files go only after the rows are gone for good.
	if h.media != nil {
		for _, p := range result.MediaPaths {
			if err := h.media.Remove(ctx, p); err != nil {
				h.logger.Warn("failed to remove media file", logger.String("path", p), logger.Err(err))
			}
		}
	}

	var events shared.EventRecorder
	events.Record(shared.AttendanceRolledBackEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventAttendanceRolledBack, timeutil.FormatDateStr(date), now),
		Date:      date,
		Reverted:  result.Reverted,
	})
	publishAll(&events, h.events, h.logger)

	h.logger.Info("attendance rolled back",
		logger.String("date", timeutil.FormatDateStr(date)),
		logger.Int("reverted", result.Reverted),
		logger.Points(result.PointsReversed),
	)
	return &result, nil
}
