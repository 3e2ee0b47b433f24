package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTE RECORD COMMAND
// A teacher resolves one of their pending records as done or cancelled.
// ══════════════════════════════════════════════════════════════════════════════

// ExecuteRecordCommand contains the decision.
type ExecuteRecordCommand struct {
	Identity shared.Identity
	RecordID int64
	Decision string
	Notes    *string
}

// Validate validates the request fields before any lookup.
func (c ExecuteRecordCommand) Validate() error {
	errs := shared.FieldErrors{}
	if _, ok := discipline.ParseDecision(c.Decision); !ok {
		errs.Add("status", "The selected status is invalid.")
	}
	if c.Notes != nil && len([]rune(*c.Notes)) > discipline.MaxNotesLength {
		errs.Add("notes", fmt.Sprintf("The notes may not be greater than %d characters.", discipline.MaxNotesLength))
	}
	return errs.Err("discipline", "Execute")
}

// ExecuteRecordResult contains the updated record.
type ExecuteRecordResult struct {
	Record discipline.Record
	// LogMarkedDone is true when a matching pending log was flipped.
	LogMarkedDone bool
	// LedgerDelta is nonzero only when the cancel policy restores points.
	LedgerDelta int
}

// ExecuteRecordHandler handles ExecuteRecordCommand.
type ExecuteRecordHandler struct {
	uow    store.UnitOfWork
	cancel discipline.CancelPolicy
	clock  timeutil.Clock
	events shared.EventPublisher
	logger *logger.Logger
}

// NewExecuteRecordHandler creates a new ExecuteRecordHandler. A nil cancel
// policy keeps the penalty.
func NewExecuteRecordHandler(uow store.UnitOfWork, cancel discipline.CancelPolicy, clock timeutil.Clock, events shared.EventPublisher, log *logger.Logger) *ExecuteRecordHandler {
	if cancel == nil {
		cancel = discipline.KeepPenalty
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ExecuteRecordHandler{uow: uow, cancel: cancel, clock: clock, events: events, logger: log.With(logger.Component("execute_record"))}
}

// Handle executes the command.
func (h *ExecuteRecordHandler) Handle(ctx context.Context, cmd ExecuteRecordCommand) (*ExecuteRecordResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	decision, _ := discipline.ParseDecision(cmd.Decision)
	now := h.clock.Now()

	var (
		result ExecuteRecordResult
		events shared.EventRecorder
	)
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		rec, err := repos.Records.GetForUpdate(ctx, cmd.RecordID)
		if err != nil {
			return err
		}

		teacher, found, err := repos.Teachers.FindByUserID(ctx, cmd.Identity.UserID)
		if err != nil {
			return fmt.Errorf("execute_record: find teacher: %w", err)
		}
		if !found {
			return shared.ErrRecordNotOwned
		}

		if err := rec.Execute(teacher.ID, decision, trimmedPtr(cmd.Notes)); err != nil {
			return err
		}
		if err := repos.Records.UpdateStatus(ctx, rec); err != nil {
			return fmt.Errorf("execute_record: update record: %w", err)
		}

		switch decision {
		case discipline.RecordDone:
			if rec.RuleID != nil {
				marked, err := repos.Logs.MarkLatestPendingDone(ctx, rec.StudentID, *rec.RuleID, rec.GivenDate)
				if err != nil {
					return fmt.Errorf("execute_record: mark log done: %w", err)
				}
				result.LogMarkedDone = marked
			}
		case discipline.RecordCancelled:
			var (
				ru    rule.Rule
				found bool
			)
			if rec.RuleID != nil {
				ru, found, err = repos.Rules.FindByID(ctx, *rec.RuleID)
				if err != nil {
					return fmt.Errorf("execute_record: find rule: %w", err)
				}
			}
			if delta := h.cancel(rec, ru, found); delta != 0 {
				entry, err := repos.Ledger.Adjust(ctx, rec.StudentID, delta, now)
				if err != nil {
					return fmt.Errorf("execute_record: restore points: %w", err)
				}
				result.LedgerDelta = delta
				events.Record(pointsEvent(entry, delta, "record cancelled", now))
				if rec.Automatic() {
					if err := repos.Attendance.AddLedgerDelta(ctx, rec.StudentID, rec.GivenDate, delta); err != nil {
						return fmt.Errorf("execute_record: track attendance delta: %w", err)
					}
				}
			}
		}

		result.Record = rec
		return nil
	})
	if err != nil {
		return nil, failure(h.logger, "discipline", "Execute", err)
	}

	logsDone := 0
	if result.LogMarkedDone {
		logsDone = 1
	}
	events.Record(shared.RecordExecutedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventRecordExecuted, strconv.FormatInt(result.Record.ID, 10), now),
		RecordID:  result.Record.ID,
		StudentID: result.Record.StudentID,
		TeacherID: result.Record.TeacherID,
		Decision:  string(decision),
		LogsDone:  logsDone,
	})
	publishAll(&events, h.events, h.logger)

	h.logger.Info("record executed",
		logger.RecordID(result.Record.ID),
		logger.TeacherID(result.Record.TeacherID),
		logger.String("decision", string(decision)),
		logger.Bool("log_marked_done", result.LogMarkedDone),
	)
	return &result, nil
}
