package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

func TestSubmitAttendance_PresentRewards(t *testing.T) {
	f := newFixture(t)

	res, err := f.submit(f.studentIdentity(), "a.jpg", "b.jpg")
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusPresent, res.Attendance.Status)
	assert.Equal(t, timeutil.Date(2024, 3, 11), res.Attendance.Date)
	assert.Equal(t, 5, res.PointsEarned)
	assert.Equal(t, 5, res.LedgerDelta)
	assert.Len(t, res.Media, 2)
	assert.Equal(t, "Attendance submitted at 06:30 with status present", res.Journal.Note)
	assert.Equal(t, 5, f.points())

	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, discipline.LogDone, logs[0].Status)
	assert.Equal(t, f.teacher.ID, logs[0].GivenBy)
	assert.Equal(t, f.ruleID(rule.AttendancePresent), logs[0].RuleID)
	assert.Equal(t, "Automatic attendance present reward/punishment", *logs[0].Remarks)

	recs, err := f.store.Repos().Records.List(f.ctx, discipline.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.Equal(t, []shared.EventType{shared.EventAttendanceSubmitted, shared.EventPointsAdjusted}, f.events.types())
}

func TestSubmitAttendance_LatePunishesAndOpensRecord(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(jakarta(7, 10))

	res, err := f.submit(f.studentIdentity())
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusLate, res.Attendance.Status)
	assert.Equal(t, -5, res.PointsEarned)
	assert.Equal(t, -5, f.points())

	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, discipline.LogPending, logs[0].Status)

	recs, err := f.store.Repos().Records.List(f.ctx, discipline.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, discipline.RecordPending, recs[0].Status)
	assert.Equal(t, f.teacher.ID, recs[0].TeacherID)
	assert.Equal(t, rule.KindPunishment, recs[0].Type)
	assert.Equal(t, discipline.LateRecordDescription, recs[0].Description)
}

func TestSubmitAttendance_ExcusedWindowHasNoLedgerEffect(t *testing.T) {
	for _, at := range []struct{ h, m int }{{6, 45}, {6, 50}, {6, 55}} {
		f := newFixture(t)
		f.clock.Set(jakarta(at.h, at.m))

		res, err := f.submit(f.studentIdentity())
		require.NoError(t, err)

		assert.Equal(t, attendance.StatusExcused, res.Attendance.Status)
		assert.Zero(t, res.LedgerDelta)
		assert.Zero(t, f.points())
	}
}

func TestSubmitAttendance_AdministratorIsExcused(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(jakarta(9, 0))

	res, err := f.submit(f.adminIdentity())
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusExcused, res.Attendance.Status)
	assert.Nil(t, res.Attendance.StudentID)
	assert.True(t, strings.HasPrefix(res.Journal.Note, "Administrator attendance submitted at 09:00"))
	assert.Zero(t, res.LedgerDelta)

	entries, err := f.store.Repos().Ledger.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmitAttendance_SecondSubmissionSameDayConflicts(t *testing.T) {
	f := newFixture(t)

	_, err := f.submit(f.studentIdentity())
	require.NoError(t, err)

	f.clock.Set(jakarta(8, 0))
	_, err = f.submit(f.studentIdentity())
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, 5, f.points())
}

func TestSubmitAttendance_UnknownStudent(t *testing.T) {
	f := newFixture(t)

	_, err := f.submit(shared.Identity{UserID: 999, Role: shared.RoleStudent})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	msg, _ := shared.UserMessage(err)
	assert.Equal(t, "Student record not found", msg)
}

func TestSubmitAttendance_InvalidImageRollsBackEverything(t *testing.T) {
	f := newFixture(t)

	_, err := f.submit(f.studentIdentity(), "ok.jpg", "bad.txt")
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	rows, err := f.store.Repos().Attendance.ListByDate(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, f.media.files)
	assert.Len(t, f.media.removed, 1)
	assert.Zero(t, f.points())
	assert.Empty(t, f.events.types())
}

func TestSubmitAttendance_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.FailNextWrite(errBoom)

	_, err := f.submit(f.studentIdentity())
	require.Error(t, err)
	assert.True(t, shared.IsStorageFailure(err))
	assert.Zero(t, f.points())
}

func TestSubmitAttendance_Validation(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("x", MaxRemarksLength+1)

	_, err := f.submitHandler().Handle(f.ctx, SubmitAttendanceCommand{Identity: f.studentIdentity(), Remarks: &long})
	require.Error(t, err)

	fields, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "remarks")
	assert.Contains(t, fields, "images")
}

func TestSubmitAttendance_MissingHomeroomStillAdjustsLedger(t *testing.T) {
	f := newFixture(t)
	g := f.grade
	g.HomeroomTeacherID = nil
	require.NoError(t, f.store.Repos().Grades.Update(f.ctx, &g))
	f.clock.Set(jakarta(7, 30))

	res, err := f.submit(f.studentIdentity())
	require.NoError(t, err)

	assert.Equal(t, -5, res.LedgerDelta)
	assert.Equal(t, -5, f.points())
	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSubmitAttendance_MissingRuleStillAdjustsLedger(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Repos().Rules.Delete(f.ctx, f.ruleID(rule.AttendancePresent)))

	res, err := f.submit(f.studentIdentity())
	require.NoError(t, err)

	assert.Equal(t, 5, res.LedgerDelta)
	assert.Equal(t, 5, f.points())
	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
