package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

func TestParseCronExpression(t *testing.T) {
	valid := []string{"* * * * *", "55 23 * * *", "*/15 6-18 * * 1-5", "0 7,12 1 */2 0", "5/20 * * * *"}
	for _, expr := range valid {
		_, err := ParseCronExpression(expr)
		assert.NoError(t, err, expr)
	}

	invalid := []string{"", "* * * *", "60 * * * *", "* 24 * * *", "* * 0 * *", "* * * 13 *", "* * * * 7",
		"a * * * *", "*/0 * * * *", "5-1 * * * *", "1-x * * * *", "1,,2 * * * *"}
	for _, expr := range invalid {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, expr)
	}
}

func TestCronExpression_Next(t *testing.T) {
	loc := timeutil.JakartaTZ
	at := func(y int, m time.Month, d, h, min int) time.Time { return time.Date(y, m, d, h, min, 0, 0, loc) }

	tests := []struct {
		expr  string
		after time.Time
		want  time.Time
	}{
		{"55 23 * * *", at(2024, 3, 11, 9, 0), at(2024, 3, 11, 23, 55)},
		{"55 23 * * *", at(2024, 3, 11, 23, 55), at(2024, 3, 12, 23, 55)},
		{"55 23 * * *", at(2024, 12, 31, 23, 59), at(2025, 1, 1, 23, 55)},
		{"*/15 * * * *", at(2024, 3, 11, 9, 7), at(2024, 3, 11, 9, 15)},
		{"0 7 * * 1-5", at(2024, 3, 9, 8, 0), at(2024, 3, 11, 7, 0)}, // Saturday to Monday
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MustParseCronExpression(tt.expr).Next(tt.after), tt.expr)
	}

	// Next leap day is beyond the one-year horizon.
	assert.True(t, MustParseCronExpression("0 0 29 2 *").Next(at(2024, 3, 1, 0, 0)).IsZero())
	assert.True(t, MustParseCronExpression("0 0 31 2 *").Next(at(2024, 1, 1, 0, 0)).IsZero())
	assert.Equal(t, at(2024, 2, 29, 0, 0), MustParseCronExpression("0 0 29 2 *").Next(at(2024, 1, 1, 0, 0)))
}

func TestIntervalSchedule(t *testing.T) {
	s := IntervalSchedule{Interval: 90 * time.Second}
	base := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(90*time.Second), s.Next(base))
	assert.Equal(t, "@every 1m30s", s.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Scheduler
// ─────────────────────────────────────────────────────────────────────────────

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Description() string           { return "test job " + j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s := NewScheduler(Config{Timezone: timeutil.JakartaTZ})
	boom := errors.New("boom")

	calls := 0
	job := funcJob{name: "close", fn: func(context.Context) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}}
	require.NoError(t, s.RegisterCron(job, EndOfSchoolDay))
	assert.ErrorIs(t, s.Register(job, IntervalSchedule{Interval: time.Hour}), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, IntervalSchedule{}), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	assert.Error(t, s.RegisterCron(funcJob{name: "bad"}, "nope"))

	res, err := s.RunNow(context.Background(), "close")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "close")
	assert.ErrorIs(t, err, boom)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "55 23 * * *", jobs[0].Schedule)
	assert.Equal(t, int64(2), jobs[0].RunCount)
	assert.Equal(t, int64(1), jobs[0].FailCount)
	assert.Len(t, s.History(0), 2)
	assert.Len(t, s.History(1), 1)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := NewScheduler(Config{})
	require.NoError(t, s.Register(funcJob{name: "p", fn: func(context.Context) error { panic("x") }}, IntervalSchedule{Interval: time.Hour}))

	_, err := s.RunNow(context.Background(), "p")
	assert.ErrorContains(t, err, "job panicked")
}

func TestScheduler_RunsDueJobsWithoutOverlap(t *testing.T) {
	clock := timeutil.NewFixedClock(time.Date(2024, 3, 11, 23, 54, 0, 0, timeutil.JakartaTZ))
	s := NewScheduler(Config{Timezone: timeutil.JakartaTZ, Clock: clock, TickInterval: 2 * time.Millisecond})

	var runs atomic.Int32
	release := make(chan struct{})
	require.NoError(t, s.RegisterCron(funcJob{name: "close", fn: func(ctx context.Context) error {
		runs.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}, EndOfSchoolDay))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	clock.Set(time.Date(2024, 3, 11, 23, 55, 0, 0, timeutil.JakartaTZ))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 2*time.Millisecond)

	// A due tick while the job is still running is skipped.
	clock.Set(time.Date(2024, 3, 12, 23, 55, 0, 0, timeutil.JakartaTZ))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	jobs := s.ListJobs()
	assert.Equal(t, time.Date(2024, 3, 13, 23, 55, 0, 0, timeutil.JakartaTZ), jobs[0].NextRun)
}

func TestScheduler_DisabledJobDoesNotRun(t *testing.T) {
	clock := timeutil.NewFixedClock(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	s := NewScheduler(Config{Clock: clock, TickInterval: 2 * time.Millisecond})

	var runs atomic.Int32
	require.NoError(t, s.Register(funcJob{name: "j", fn: func(context.Context) error { runs.Add(1); return nil }}, IntervalSchedule{Interval: time.Minute}))
	require.NoError(t, s.SetEnabled("j", false))
	assert.ErrorIs(t, s.SetEnabled("missing", true), ErrJobNotFound)

	require.NoError(t, s.Start(context.Background()))
	clock.Advance(time.Hour)
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Equal(t, int32(0), runs.Load())
}

// ─────────────────────────────────────────────────────────────────────────────
// Jobs
// ─────────────────────────────────────────────────────────────────────────────

type closerFunc func(ctx context.Context, date time.Time) (int, error)

func (f closerFunc) Handle(ctx context.Context, date time.Time) (int, error) { return f(ctx, date) }

func TestCloseAttendanceDayJob(t *testing.T) {
	var gotDate time.Time
	var hadDeadline bool
	job := NewCloseAttendanceDayJob(closerFunc(func(ctx context.Context, date time.Time) (int, error) {
		gotDate = date
		_, hadDeadline = ctx.Deadline()
		return 3, nil
	}), time.Minute, nil)

	assert.Equal(t, "close-attendance-day", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.True(t, gotDate.IsZero())
	assert.True(t, hadDeadline)

	failing := NewCloseAttendanceDayJob(closerFunc(func(context.Context, time.Time) (int, error) {
		return 0, errors.New("db down")
	}), 0, nil)
	assert.EqualError(t, failing.Run(context.Background()), "db down")
}
