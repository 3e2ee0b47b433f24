package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

func (f *fixture) rollbackHandler() *RollbackAttendanceHandler {
	return NewRollbackAttendanceHandler(f.store, f.media, NewOutcomeApplier(nil), f.clock, f.events, nil)
}

func TestRollbackAttendance_ReversesLateDay(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(jakarta(7, 5))
	_, err := f.submit(f.studentIdentity(), "a.jpg", "b.jpg")
	require.NoError(t, err)
	_, err = f.submit(f.adminIdentity())
	require.NoError(t, err)

	// A manual log on the same day must survive the rollback.
	_, err = f.logHandler().Create(f.ctx, CreateLogCommand{
		Identity: f.teacherIdentity(), StudentID: f.student.ID, RuleID: f.ruleID(rule.GoodBehavior), Date: timeutil.Date(2024, 3, 11),
	})
	require.NoError(t, err)
	require.Equal(t, 5, f.points())

	res, err := f.rollbackHandler().Handle(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Reverted)
	assert.Equal(t, 5, res.PointsReversed)
	assert.Equal(t, 10, f.points())
	assert.Len(t, f.media.removed, 3)

	repos := f.store.Repos()
	rows, err := repos.Attendance.ListByDate(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)
	assert.Empty(t, rows)

	logs, err := repos.Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, f.ruleID(rule.GoodBehavior), logs[0].RuleID)

	recs, err := repos.Records.List(f.ctx, discipline.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	// The student can submit again once the day is cleared.
	_, err = f.submit(f.studentIdentity())
	assert.NoError(t, err)
}

func TestRollbackAttendance_EmptyDay(t *testing.T) {
	f := newFixture(t)

	_, err := f.rollbackHandler().Handle(f.ctx, timeutil.Date(2024, 3, 12))
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	msg, _ := shared.UserMessage(err)
	assert.Equal(t, "No attendance records found for the specified date", msg)
}

func TestRollbackAttendance_KeepsExecutedRecords(t *testing.T) {
	f := newFixture(t)
	rec := lateRecord(t, f)
	_, err := f.executeHandler(nil).Handle(f.ctx, ExecuteRecordCommand{Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "done"})
	require.NoError(t, err)

	_, err = f.rollbackHandler().Handle(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)

	assert.Zero(t, f.points())
	got, err := f.store.Repos().Records.GetByID(f.ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, discipline.RecordDone, got.Status)
}

func TestRollbackAttendance_SkipsRestoredCancellation(t *testing.T) {
	f := newFixture(t)
	rec := lateRecord(t, f)
	require.Equal(t, -5, f.points())

	_, err := f.executeHandler(discipline.RestorePoints).Handle(f.ctx, ExecuteRecordCommand{
		Identity: f.teacherIdentity(), RecordID: rec.ID, Decision: "cancelled",
	})
	require.NoError(t, err)
	require.Zero(t, f.points())

	res, err := f.rollbackHandler().Handle(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reverted)
	assert.Zero(t, res.PointsReversed)
	assert.Zero(t, f.points())
}

func TestRollbackAttendance_SkipsDeletedAutomaticLog(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit(f.studentIdentity())
	require.NoError(t, err)
	require.Equal(t, 5, f.points())

	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.True(t, logs[0].Automatic())

	_, err = f.logHandler().Delete(f.ctx, logs[0].ID)
	require.NoError(t, err)
	require.Zero(t, f.points())

	res, err := f.rollbackHandler().Handle(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)
	assert.Zero(t, res.PointsReversed)
	assert.Zero(t, f.points())
}

func TestRollbackAttendance_ReversesDeltaWithoutLog(t *testing.T) {
	f := newFixture(t)
	f.grade.HomeroomTeacherID = nil
	require.NoError(t, f.store.Repos().Grades.Update(f.ctx, &f.grade))

	res, err := f.submit(f.studentIdentity())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Attendance.LedgerDelta)
	require.Equal(t, 5, f.points())

	rb, err := f.rollbackHandler().Handle(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)
	assert.Equal(t, -5, rb.PointsReversed)
	assert.Zero(t, f.points())
}

func TestCloseAttendanceDay_MarksMissingStudentsAbsent(t *testing.T) {
	f := newFixture(t)
	other := school.Student{UserID: 101, Fullname: "Sinta", GradeID: f.grade.ID, BirthDate: timeutil.Date(2008, 5, 5), Address: "Jl. Kenanga"}
	require.NoError(t, f.store.Repos().Students.Create(f.ctx, &other))

	_, err := f.submit(f.studentIdentity())
	require.NoError(t, err)

	f.clock.Set(jakarta(23, 55))
	h := NewCloseAttendanceDayHandler(f.store, f.clock, timeutil.JakartaTZ, f.events, nil)
	marked, err := h.Handle(f.ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	absent := attendance.StatusAbsent
	rows, err := f.store.Repos().Attendance.List(f.ctx, attendance.Filter{Date: timeutil.Date(2024, 3, 11), Status: &absent})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, other.ID, *rows[0].StudentID)
	assert.Equal(t, 5, f.points())

	again, err := h.Handle(f.ctx, timeutil.Date(2024, 3, 11))
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestDirectory_StudentValidationAndUniqueness(t *testing.T) {
	f := newFixture(t)
	h := NewDirectoryHandler(f.store, f.clock, f.events, nil)

	_, err := h.CreateStudent(f.ctx, school.Student{UserID: 500, GradeID: 999})
	require.Error(t, err)
	fields, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "fullname")
	assert.Contains(t, fields, "grade_id")
	assert.Contains(t, fields, "birth_date")

	_, err = h.CreateStudent(f.ctx, school.Student{
		UserID: studentUserID, Fullname: "Dup", GradeID: f.grade.ID, BirthDate: timeutil.Date(2008, 1, 1), Address: "x",
	})
	assert.True(t, shared.IsConflict(err))

	s, err := h.CreateStudent(f.ctx, school.Student{
		UserID: 500, Fullname: " Rina ", GradeID: f.grade.ID, BirthDate: timeutil.Date(2008, 1, 1), Address: "Jl. Mawar",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rina", s.Fullname)
	assert.Contains(t, f.events.types(), shared.EventDirectoryChanged)
}

func TestDirectory_TargetDates(t *testing.T) {
	f := newFixture(t)
	h := NewDirectoryHandler(f.store, f.clock, f.events, nil)

	_, err := h.CreateTarget(f.ctx, school.Target{
		StudentID: f.student.ID, Description: "Read 5 books",
		StartDate: timeutil.Date(2024, 3, 10), EndDate: timeutil.Date(2024, 3, 1),
	})
	fields, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "end_date")

	tg, err := h.CreateTarget(f.ctx, school.Target{
		StudentID: f.student.ID, Description: "Read 5 books",
		StartDate: timeutil.Date(2024, 3, 1), EndDate: timeutil.Date(2024, 3, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, school.TargetActive, tg.Status)

	tg.Status = "archived"
	_, err = h.UpdateTarget(f.ctx, *tg)
	assert.True(t, shared.IsValidation(err))
}

func TestDirectory_GradeHomeroomMustExist(t *testing.T) {
	f := newFixture(t)
	h := NewDirectoryHandler(f.store, f.clock, f.events, nil)

	_, err := h.CreateGrade(f.ctx, school.Grade{Name: "XI-2", HomeroomTeacherID: shared.Ptr(int64(999))})
	assert.True(t, shared.IsValidation(err))

	err = h.DeleteGrade(f.ctx, f.grade.ID)
	assert.True(t, shared.IsConflict(err))
}

func TestDirectory_DeleteStudentCascades(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit(f.studentIdentity())
	require.NoError(t, err)

	h := NewDirectoryHandler(f.store, f.clock, f.events, nil)
	require.NoError(t, h.DeleteStudent(f.ctx, f.student.ID))

	entries, err := f.store.Repos().Ledger.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	logs, err := f.store.Repos().Logs.List(f.ctx, discipline.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRules_CreateUpdateSeed(t *testing.T) {
	f := newFixture(t)
	h := NewRuleHandler(f.store, nil)

	_, err := h.Create(f.ctx, rule.Rule{Kind: rule.KindReward, Name: rule.GoodBehavior.Name(), Points: 3})
	assert.True(t, shared.IsConflict(err))

	_, err = h.Create(f.ctx, rule.Rule{Kind: "bonus", Name: "Clean Class", Points: 3})
	assert.True(t, shared.IsValidation(err))

	r, err := h.Create(f.ctx, rule.Rule{Kind: rule.KindReward, Name: "Clean Class", Points: 3})
	require.NoError(t, err)

	r.Name = rule.MinorViolation.Name()
	_, err = h.Update(f.ctx, *r)
	assert.True(t, shared.IsConflict(err))

	created, err := h.Seed(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	require.NoError(t, h.Delete(f.ctx, f.ruleID(rule.AttendanceLate)))
	created, err = h.Seed(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}
