package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// lateRecord submits a late attendance and returns the pending record.
func lateRecord(t *testing.T, f *fixture) discipline.Record {
	t.Helper()
	f.clock.Set(jakarta(7, 15))
	_, err := f.submit(f.studentIdentity())
	require.NoError(t, err)

	recs, err := f.store.Repos().Records.List(f.ctx, discipline.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func (f *fixture) executeHandler(cancel discipline.CancelPolicy) *ExecuteRecordHandler {
	return NewExecuteRecordHandler(f.store, cancel, f.clock, f.events, nil)
}

func TestExecuteRecord_DoneMarksPendingLog(t *testing.T) {
	f := newFixture(t)
	rec := lateRecord(t, f)
	notes := "talked to parents"

	res, err := f.executeHandler(nil).Handle(f.ctx, ExecuteRecordCommand{
		Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "done", Notes: &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, discipline.RecordDone, res.Record.Status)
	assert.Equal(t, "talked to parents", *res.Record.Notes)
	assert.True(t, res.LogMarkedDone)
	assert.Zero(t, res.LedgerDelta)
	assert.Equal(t, -5, f.points())

	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, discipline.LogDone, logs[0].Status)
}

func TestExecuteRecord_CancelKeepsPenaltyByDefault(t *testing.T) {
	f := newFixture(t)
	rec := lateRecord(t, f)

	res, err := f.executeHandler(nil).Handle(f.ctx, ExecuteRecordCommand{
		Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "cancelled",
	})
	require.NoError(t, err)

	assert.Equal(t, discipline.RecordCancelled, res.Record.Status)
	assert.False(t, res.LogMarkedDone)
	assert.Equal(t, -5, f.points())

	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, discipline.LogPending, logs[0].Status)
}

func TestExecuteRecord_CancelRestoresPointsWhenConfigured(t *testing.T) {
	f := newFixture(t)
	rec := lateRecord(t, f)

	res, err := f.executeHandler(discipline.RestorePoints).Handle(f.ctx, ExecuteRecordCommand{
		Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "cancelled",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.LedgerDelta)
	assert.Zero(t, f.points())
}

func TestExecuteRecord_Errors(t *testing.T) {
	f := newFixture(t)
	rec := lateRecord(t, f)

	other := school.Teacher{UserID: 300, Fullname: "Pak Joko", PhoneNumber: "0813", Subject: "PE", HireDate: timeutil.Date(2019, 1, 1)}
	require.NoError(t, f.store.Repos().Teachers.Create(f.ctx, &other))

	h := f.executeHandler(nil)

	_, err := h.Handle(f.ctx, ExecuteRecordCommand{Identity: f.teacherIdentity(), RecordID: 999, Decision: "done"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(f.ctx, ExecuteRecordCommand{Identity: shared.Identity{UserID: 300, Role: shared.RoleTeacher}, RecordID: rec.ID, Decision: "done"})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Handle(f.ctx, ExecuteRecordCommand{Identity: f.adminIdentity(), RecordID: rec.ID, Decision: "done"})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Handle(f.ctx, ExecuteRecordCommand{Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "pending"})
	assert.True(t, shared.IsValidation(err))

	long := strings.Repeat("n", discipline.MaxNotesLength+1)
	_, err = h.Handle(f.ctx, ExecuteRecordCommand{Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "done", Notes: &long})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(f.ctx, ExecuteRecordCommand{Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "done"})
	require.NoError(t, err)

	_, err = h.Handle(f.ctx, ExecuteRecordCommand{Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "cancelled"})
	assert.True(t, shared.IsInvalidState(err))
	msg, _ := shared.UserMessage(err)
	assert.Equal(t, "Record is not in pending status", msg)
}

func (f *fixture) logHandler() *LogHandler {
	return NewLogHandler(f.store, f.clock, f.events, nil)
}

func TestLogs_CreateAppliesRulePoints(t *testing.T) {
	f := newFixture(t)
	remarks := "  helped a classmate "

	res, err := f.logHandler().Create(f.ctx, CreateLogCommand{
		Identity:  f.teacherIdentity(),
		StudentID: f.student.ID,
		RuleID:    f.ruleID(rule.GoodBehavior),
		Date:      timeutil.Date(2024, 3, 11),
		Remarks:   &remarks,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, res.LedgerDelta)
	assert.Equal(t, discipline.LogDone, res.Log.Status)
	assert.Equal(t, f.teacher.ID, res.Log.GivenBy)
	assert.Equal(t, "helped a classmate", *res.Log.Remarks)
	assert.Equal(t, 10, f.points())
}

func TestLogs_CreateRequiresTeacherProfile(t *testing.T) {
	f := newFixture(t)

	_, err := f.logHandler().Create(f.ctx, CreateLogCommand{
		Identity:  f.adminIdentity(),
		StudentID: f.student.ID,
		RuleID:    f.ruleID(rule.GoodBehavior),
		Date:      timeutil.Date(2024, 3, 11),
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	msg, _ := shared.UserMessage(err)
	assert.Equal(t, "Teacher record not found for this user", msg)
	assert.Zero(t, f.points())
}

func TestLogs_CreateUnknownRule(t *testing.T) {
	f := newFixture(t)

	_, err := f.logHandler().Create(f.ctx, CreateLogCommand{
		Identity: f.teacherIdentity(), StudentID: f.student.ID, RuleID: 999, Date: timeutil.Date(2024, 3, 11),
	})
	assert.True(t, shared.IsNotFound(err))
}

func TestLogs_UpdateRemarksOnly(t *testing.T) {
	f := newFixture(t)
	res, err := f.logHandler().Create(f.ctx, CreateLogCommand{
		Identity: f.teacherIdentity(), StudentID: f.student.ID, RuleID: f.ruleID(rule.MinorViolation), Date: timeutil.Date(2024, 3, 11),
	})
	require.NoError(t, err)

	updated, err := f.logHandler().UpdateRemarks(f.ctx, UpdateLogCommand{LogID: res.Log.ID, Remarks: shared.Ptr("late homework")})
	require.NoError(t, err)
	assert.Equal(t, "late homework", *updated.Remarks)
	assert.Equal(t, res.Log.RuleID, updated.RuleID)
	assert.Equal(t, -10, f.points())
}

func TestLogs_DeleteReversesPoints(t *testing.T) {
	f := newFixture(t)
	res, err := f.logHandler().Create(f.ctx, CreateLogCommand{
		Identity: f.teacherIdentity(), StudentID: f.student.ID, RuleID: f.ruleID(rule.SeriousViolation), Date: timeutil.Date(2024, 3, 11),
	})
	require.NoError(t, err)
	require.Equal(t, -25, f.points())

	del, err := f.logHandler().Delete(f.ctx, res.Log.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, del.LedgerDelta)
	assert.Zero(t, f.points())

	_, err = f.store.Repos().Logs.GetByID(f.ctx, res.Log.ID)
	assert.True(t, shared.IsNotFound(err))
}

func TestLogs_DeleteWithoutRuleSkipsReversal(t *testing.T) {
	f := newFixture(t)
	ruleID := f.ruleID(rule.ExcellentPerformance)
	res, err := f.logHandler().Create(f.ctx, CreateLogCommand{
		Identity: f.teacherIdentity(), StudentID: f.student.ID, RuleID: ruleID, Date: timeutil.Date(2024, 3, 11),
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Repos().Rules.Delete(f.ctx, ruleID))

	del, err := f.logHandler().Delete(f.ctx, res.Log.ID)
	require.NoError(t, err)
	assert.Zero(t, del.LedgerDelta)
	assert.Equal(t, 15, f.points())
}
