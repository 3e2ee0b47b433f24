package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY ATTENDANCE OUTCOME
// Turns a student's attendance status into a ledger delta plus the audit log
// (and, for late arrivals, a pending punishment record for the homeroom
// teacher). Runs inside the caller's transaction.
// ══════════════════════════════════════════════════════════════════════════════

// OutcomeInput identifies the attendance being reconciled.
type OutcomeInput struct {
	StudentID int64
	Status    attendance.Status
	Date      time.Time
	At        time.Time
}

// OutcomeResult reports what was written.
type OutcomeResult struct {
	LedgerDelta int
	Entry       *ledger.Entry
	Log         *discipline.Log
	Record      *discipline.Record
	// Skipped is the swallowed DependencyMissing error, if any.
	Skipped error
}

type outcomeSpec struct {
	key       rule.Key
	logStatus discipline.LogStatus
	punish    bool
}

var outcomes = map[attendance.Status]outcomeSpec{
	attendance.StatusPresent: {key: rule.AttendancePresent, logStatus: discipline.LogDone},
	attendance.StatusLate:    {key: rule.AttendanceLate, logStatus: discipline.LogPending, punish: true},
}

// OutcomeApplier applies attendance outcomes.
type OutcomeApplier struct {
	logger *logger.Logger
}

// NewOutcomeApplier creates an OutcomeApplier.
func NewOutcomeApplier(log *logger.Logger) *OutcomeApplier {
	if log == nil {
		log = logger.Nop()
	}
	return &OutcomeApplier{logger: log.With(logger.Component("outcome"))}
}

// Apply reconciles one attendance. Excused and absent are no-ops.
// A missing rule or homeroom teacher skips the log and record, but the
// ledger delta is still applied.
func (a *OutcomeApplier) Apply(ctx context.Context, repos store.Repositories, in OutcomeInput) (OutcomeResult, error) {
	spec, ok := outcomes[in.Status]
	if !ok {
		return OutcomeResult{}, nil
	}

	delta := spec.key.DefaultPoints()
	entry, err := repos.Ledger.Adjust(ctx, in.StudentID, delta, in.At)
	if err != nil {
		return OutcomeResult{}, fmt.Errorf("apply_outcome: adjust ledger: %w", err)
	}
	if err := repos.Attendance.AddLedgerDelta(ctx, in.StudentID, in.Date, delta); err != nil {
		return OutcomeResult{}, fmt.Errorf("apply_outcome: track delta: %w", err)
	}
	res := OutcomeResult{LedgerDelta: delta, Entry: &entry}

	ru, found, err := rule.Lookup(ctx, repos.Rules, spec.key)
	if err != nil {
		return res, fmt.Errorf("apply_outcome: lookup rule: %w", err)
	}
	if !found {
		res.Skipped = shared.WrapError("discipline", "ApplyOutcome", shared.ErrDependencyMissing,
			"attendance rule not configured", fmt.Errorf("rule %q", spec.key.Name()))
		a.logger.Warn("attendance rule missing, skipping log",
			logger.StudentID(in.StudentID), logger.String("rule", spec.key.Name()))
		return res, nil
	}

	teacherID, found, err := repos.Grades.HomeroomTeacherOf(ctx, in.StudentID)
	if err != nil {
		return res, fmt.Errorf("apply_outcome: lookup homeroom teacher: %w", err)
	}
	if !found {
		res.Skipped = shared.ErrHomeroomMissing
		a.logger.Warn("homeroom teacher missing, skipping log",
			logger.StudentID(in.StudentID), logger.AttendanceStatus(string(in.Status)))
		return res, nil
	}

	remark := discipline.AutoRemark(string(in.Status))
	log := discipline.Log{
		StudentID: in.StudentID,
		RuleID:    ru.ID,
		Date:      in.Date,
		GivenBy:   teacherID,
		Remarks:   &remark,
		Status:    spec.logStatus,
	}
	if err := repos.Logs.Create(ctx, &log); err != nil {
		return res, fmt.Errorf("apply_outcome: create log: %w", err)
	}
	res.Log = &log

	if spec.punish {
		ruleID := ru.ID
		notes := discipline.AutoRecordNotes
		rec := discipline.Record{
			StudentID:   in.StudentID,
			TeacherID:   teacherID,
			RuleID:      &ruleID,
			Type:        rule.KindPunishment,
			Description: discipline.LateRecordDescription,
			Status:      discipline.RecordPending,
			GivenDate:   in.Date,
			Notes:       &notes,
		}
		if err := repos.Records.Create(ctx, &rec); err != nil {
			return res, fmt.Errorf("apply_outcome: create record: %w", err)
		}
		res.Record = &rec
	}

	return res, nil
}

// Revert reverses what the ledger still holds of an attendance outcome and
// removes the rows Apply generated for that student and day. Deltas already
// undone by deleting the automatic log or by a restoring cancellation are
// not reversed again.
func (a *OutcomeApplier) Revert(ctx context.Context, repos store.Repositories, att attendance.Attendance, at time.Time) (int, error) {
	if att.StudentID == nil {
		return 0, nil
	}
	studentID := *att.StudentID

	delta := -att.LedgerDelta
	if delta != 0 {
		if _, found, err := repos.Ledger.Find(ctx, studentID); err != nil {
			return 0, fmt.Errorf("revert_outcome: find ledger: %w", err)
		} else if !found {
			delta = 0
		}
	}
	if delta != 0 {
		if _, err := repos.Ledger.Adjust(ctx, studentID, delta, at); err != nil {
			return 0, fmt.Errorf("revert_outcome: adjust ledger: %w", err)
		}
	}

	if _, err := repos.Logs.DeleteAutomatic(ctx, studentID, att.Date); err != nil {
		return delta, fmt.Errorf("revert_outcome: delete logs: %w", err)
	}
	if _, err := repos.Records.DeleteAutomaticPending(ctx, studentID, att.Date); err != nil {
		return delta, fmt.Errorf("revert_outcome: delete records: %w", err)
	}
	return delta, nil
}

func pointsEvent(entry ledger.Entry, delta int, reason string, at time.Time) shared.PointsAdjustedEvent {
	return shared.PointsAdjustedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventPointsAdjusted, strconv.FormatInt(entry.StudentID, 10), at),
		StudentID: entry.StudentID,
		Delta:     delta,
		NewTotal:  entry.TotalPoints,
		Reason:    reason,
	}
}
