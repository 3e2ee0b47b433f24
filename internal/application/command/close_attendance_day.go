package command

import (
	"context"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// CloseAttendanceDayHandler marks every student without an attendance for a
// day as absent. Absent has no ledger effect, so this only fills gaps in the
// attendance history used by reports.
type CloseAttendanceDayHandler struct {
	uow    store.UnitOfWork
	clock  timeutil.Clock
	loc    *time.Location
	events shared.EventPublisher
	logger *logger.Logger
}

// NewCloseAttendanceDayHandler creates a new CloseAttendanceDayHandler.
func NewCloseAttendanceDayHandler(uow store.UnitOfWork, clock timeutil.Clock, loc *time.Location, events shared.EventPublisher, log *logger.Logger) *CloseAttendanceDayHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CloseAttendanceDayHandler{uow: uow, clock: clock, loc: loc, events: events, logger: log.With(logger.Component("close_attendance_day"))}
}

// Handle closes date, or today when date is zero. It returns how many
// students were marked absent.
func (h *CloseAttendanceDayHandler) Handle(ctx context.Context, date time.Time) (int, error) {
	now := h.clock.Now()
	if date.IsZero() {
		date = timeutil.DateOf(now, h.loc)
	}

	var marked int
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		rows, err := repos.Attendance.MarkAbsent(ctx, date, now)
		marked = len(rows)
		return err
	})
	if err != nil {
		return 0, failure(h.logger, "attendance", "CloseDay", err)
	}

	if marked > 0 {
		var events shared.EventRecorder
		events.Record(shared.AttendanceDayClosedEvent{
			BaseEvent:    shared.NewBaseEvent(shared.EventAttendanceDayClosed, timeutil.FormatDateStr(date), now),
			Date:         date,
			MarkedAbsent: marked,
		})
		publishAll(&events, h.events, h.logger)
	}
	h.logger.Info("attendance day closed", logger.String("date", timeutil.FormatDateStr(date)), logger.Int("marked_absent", marked))
	return marked, nil
}
