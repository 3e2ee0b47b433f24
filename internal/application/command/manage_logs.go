package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MANUAL DISCIPLINE LOGS
// A teacher applies a rule directly: the rule's points hit the ledger and a
// DONE log is written. Deleting the log reverses the rule's current points.
// ══════════════════════════════════════════════════════════════════════════════

// CreateLogCommand applies a rule to a student.
type CreateLogCommand struct {
	Identity  shared.Identity
	StudentID int64
	RuleID    int64
	Date      time.Time
	Remarks   *string
}

// UpdateLogCommand changes the remarks of a log. Nothing else is editable.
type UpdateLogCommand struct {
	LogID   int64
	Remarks *string
}

// LogResult contains the log and the ledger delta applied with it.
type LogResult struct {
	Log         discipline.Log
	LedgerDelta int
}

// LogHandler handles manual log commands.
type LogHandler struct {
	uow    store.UnitOfWork
	clock  timeutil.Clock
	events shared.EventPublisher
	logger *logger.Logger
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(uow store.UnitOfWork, clock timeutil.Clock, events shared.EventPublisher, log *logger.Logger) *LogHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LogHandler{uow: uow, clock: clock, events: events, logger: log.With(logger.Component("discipline_log"))}
}

// Create applies the rule and writes the log.
func (h *LogHandler) Create(ctx context.Context, cmd CreateLogCommand) (*LogResult, error) {
	if cmd.Date.IsZero() {
		return nil, shared.FieldErrors{"date": {"The date field is required."}}.Err("discipline", "CreateLog")
	}
	now := h.clock.Now()

	var (
		result LogResult
		events shared.EventRecorder
	)
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		teacher, found, err := repos.Teachers.FindByUserID(ctx, cmd.Identity.UserID)
		if err != nil {
			return fmt.Errorf("create_log: find teacher: %w", err)
		}
		if !found {
			return shared.NewDomainError("discipline", "CreateLog", shared.ErrNotFound, "Teacher record not found for this user")
		}
		if _, err := repos.Students.GetByID(ctx, cmd.StudentID); err != nil {
			return err
		}
		ru, err := repos.Rules.GetByID(ctx, cmd.RuleID)
		if err != nil {
			return err
		}

		entry, err := repos.Ledger.Adjust(ctx, cmd.StudentID, ru.Points, now)
		if err != nil {
			return fmt.Errorf("create_log: adjust ledger: %w", err)
		}

		l := discipline.Log{
			StudentID: cmd.StudentID,
			RuleID:    ru.ID,
			Date:      cmd.Date,
			GivenBy:   teacher.ID,
			Remarks:   trimmedPtr(cmd.Remarks),
			Status:    discipline.LogDone,
		}
		if err := repos.Logs.Create(ctx, &l); err != nil {
			return fmt.Errorf("create_log: insert: %w", err)
		}
		result = LogResult{Log: l, LedgerDelta: ru.Points}

		events.Record(pointsEvent(entry, ru.Points, "rule "+ru.Name, now))
		events.Record(logEvent(shared.EventLogCreated, l, ru.Points, now))
		return nil
	})
	if err != nil {
		return nil, failure(h.logger, "discipline", "CreateLog", err)
	}
	publishAll(&events, h.events, h.logger)
	return &result, nil
}

// UpdateRemarks edits a log's remarks.
func (h *LogHandler) UpdateRemarks(ctx context.Context, cmd UpdateLogCommand) (*discipline.Log, error) {
	var out discipline.Log
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if err := repos.Logs.UpdateRemarks(ctx, cmd.LogID, trimmedPtr(cmd.Remarks)); err != nil {
			return err
		}
		l, err := repos.Logs.GetByID(ctx, cmd.LogID)
		out = l
		return err
	})
	if err != nil {
		return nil, failure(h.logger, "discipline", "UpdateLog", err)
	}
	return &out, nil
}

// Delete reverses the rule's current points and removes the log. The
// reversal is skipped when the rule is gone or the student has no ledger row.
func (h *LogHandler) Delete(ctx context.Context, logID int64) (*LogResult, error) {
	now := h.clock.Now()

	var (
		result LogResult
		events shared.EventRecorder
	)
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		l, err := repos.Logs.GetByID(ctx, logID)
		if err != nil {
			return err
		}

		ru, ruleFound, err := repos.Rules.FindByID(ctx, l.RuleID)
		if err != nil {
			return fmt.Errorf("delete_log: find rule: %w", err)
		}
		_, ledgerFound, err := repos.Ledger.Find(ctx, l.StudentID)
		if err != nil {
			return fmt.Errorf("delete_log: find ledger: %w", err)
		}

		if ruleFound && ledgerFound && ru.Points != 0 {
			entry, err := repos.Ledger.Adjust(ctx, l.StudentID, -ru.Points, now)
			if err != nil {
				return fmt.Errorf("delete_log: reverse points: %w", err)
			}
			result.LedgerDelta = -ru.Points
			events.Record(pointsEvent(entry, -ru.Points, "log deleted", now))
			if l.Automatic() {
				if err := repos.Attendance.AddLedgerDelta(ctx, l.StudentID, l.Date, -ru.Points); err != nil {
					return fmt.Errorf("delete_log: track attendance delta: %w", err)
				}
			}
		} else if !ruleFound {
			h.logger.Warn("rule missing, log deleted without reversal", logger.Int64("log_id", l.ID))
		}

		if err := repos.Logs.Delete(ctx, l.ID); err != nil {
			return fmt.Errorf("delete_log: delete: %w", err)
		}
		result.Log = l
		events.Record(logEvent(shared.EventLogDeleted, l, result.LedgerDelta, now))
		return nil
	})
	if err != nil {
		return nil, failure(h.logger, "discipline", "DeleteLog", err)
	}
	publishAll(&events, h.events, h.logger)
	return &result, nil
}

func logEvent(t shared.EventType, l discipline.Log, delta int, at time.Time) shared.LogChangedEvent {
	return shared.LogChangedEvent{
		BaseEvent: shared.NewBaseEvent(t, strconv.FormatInt(l.ID, 10), at),
		LogID:     l.ID,
		StudentID: l.StudentID,
		RuleID:    l.RuleID,
		Delta:     delta,
	}
}
