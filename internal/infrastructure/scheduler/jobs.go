package scheduler

import (
	"context"
	"time"

	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// DayCloser marks absentees for a date; a zero date means today.
type DayCloser interface {
	Handle(ctx context.Context, date time.Time) (int, error)
}

// CloseAttendanceDayJob runs the end-of-day absence sweep.
type CloseAttendanceDayJob struct {
	closer  DayCloser
	timeout time.Duration
	logger  *logger.Logger
}

// NewCloseAttendanceDayJob creates the job. A non-positive timeout means 5 minutes.
func NewCloseAttendanceDayJob(closer DayCloser, timeout time.Duration, log *logger.Logger) *CloseAttendanceDayJob {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CloseAttendanceDayJob{closer: closer, timeout: timeout, logger: log}
}

func (j *CloseAttendanceDayJob) Name() string { return "close-attendance-day" }

func (j *CloseAttendanceDayJob) Description() string {
	return "Marks students without attendance today as absent"
}

func (j *CloseAttendanceDayJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	marked, err := j.closer.Handle(ctx, time.Time{})
	if err != nil {
		return err
	}
	j.logger.Info("absentees marked", logger.String("job", j.Name()), logger.Int("marked_absent", marked))
	return nil
}
