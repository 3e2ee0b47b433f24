package command

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ATTENDANCE COMMAND
// One submission per person per school day. Students are classified by the
// time of submission; administrators are always recorded as excused and
// never touch the ledger.
// ══════════════════════════════════════════════════════════════════════════════

// MaxRemarksLength bounds the free-text remarks.
const MaxRemarksLength = 255

// SubmitAttendanceCommand contains the submission.
type SubmitAttendanceCommand struct {
	Identity shared.Identity
	Remarks  *string
	Images   []attendance.Upload
}

// Validate validates the command shape. File contents are checked by the media store.
func (c SubmitAttendanceCommand) Validate(maxImages int) error {
	errs := shared.FieldErrors{}
	if c.Remarks != nil && utf8.RuneCountInString(*c.Remarks) > MaxRemarksLength {
		errs.Add("remarks", fmt.Sprintf("The remarks may not be greater than %d characters.", MaxRemarksLength))
	}
	switch {
	case len(c.Images) == 0:
		errs.Add("images", "The images field is required.")
	case maxImages > 0 && len(c.Images) > maxImages:
		errs.Add("images", fmt.Sprintf("The images may not have more than %d items.", maxImages))
	}
	return errs.Err("attendance", "Submit")
}

// SubmitAttendanceResult contains the committed attendance.
type SubmitAttendanceResult struct {
	Attendance attendance.Attendance
	Journal    attendance.JournalEntry
	Media      []attendance.MediaAsset
	// PointsEarned is the presentation value (present +5, late -5, else 0).
	PointsEarned int
	// LedgerDelta is what was actually applied to the ledger.
	LedgerDelta int
	Ledger      *ledger.Entry
}

// SubmitAttendanceHandlerConfig holds handler settings.
type SubmitAttendanceHandlerConfig struct {
	Policy    attendance.Policy
	MaxImages int
}

// DefaultSubmitAttendanceHandlerConfig returns 06:45/06:55 Jakarta and up to 10 images.
func DefaultSubmitAttendanceHandlerConfig() SubmitAttendanceHandlerConfig {
	return SubmitAttendanceHandlerConfig{Policy: attendance.DefaultPolicy(), MaxImages: 10}
}

// SubmitAttendanceHandler handles SubmitAttendanceCommand.
type SubmitAttendanceHandler struct {
	uow     store.UnitOfWork
	media   attendance.MediaStore
	outcome *OutcomeApplier
	clock   timeutil.Clock
	events  shared.EventPublisher
	config  SubmitAttendanceHandlerConfig
	logger  *logger.Logger
}

// NewSubmitAttendanceHandler creates a new SubmitAttendanceHandler.
func NewSubmitAttendanceHandler(
	uow store.UnitOfWork,
	media attendance.MediaStore,
	outcome *OutcomeApplier,
	clock timeutil.Clock,
	events shared.EventPublisher,
	config SubmitAttendanceHandlerConfig,
	log *logger.Logger,
) *SubmitAttendanceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SubmitAttendanceHandler{
		uow:     uow,
		media:   media,
		outcome: outcome,
		clock:   clock,
		events:  events,
		config:  config,
		logger:  log.With(logger.Component("submit_attendance")),
	}
}

// Handle executes the command.
func (h *SubmitAttendanceHandler) Handle(ctx context.Context, cmd SubmitAttendanceCommand) (*SubmitAttendanceResult, error) {
	if err := cmd.Validate(h.config.MaxImages); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	policy := h.config.Policy
	date := policy.Day(now)
	clock := policy.Clock(now)
	admin := cmd.Identity.IsAdministrator()

	var (
		result  SubmitAttendanceResult
		stored  []string
		tracked shared.EventRecorder
	)

	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		a := attendance.Attendance{
			UserID:    cmd.Identity.UserID,
			Date:      date,
			Remarks:   trimmedPtr(cmd.Remarks),
			CreatedAt: now,
		}
		var note string
		if admin {
			a.Status = attendance.StatusExcused
			note = attendance.AdministratorNote(clock, a.Status)
		} else {
			student, found, err := repos.Students.FindByUserID(ctx, cmd.Identity.UserID)
			if err != nil {
				return fmt.Errorf("submit_attendance: find student: %w", err)
			}
			if !found {
				return shared.ErrStudentNotFound
			}
			sid := student.ID
			a.StudentID = &sid
			a.Status = policy.Classify(now)
			note = attendance.StudentNote(clock, a.Status)
		}

		if err := repos.Attendance.Create(ctx, &a); err != nil {
			return err
		}

		for _, up := range cmd.Images {
			file, err := h.media.Save(ctx, up)
			if err != nil {
				return err
			}
			stored = append(stored, file.Path)
			asset := attendance.MediaAsset{
				AttendanceID: a.ID,
				Path:         file.Path,
				Filename:     file.Filename,
				MimeType:     file.MimeType,
				Size:         file.Size,
			}
			if err := repos.Attendance.AddMedia(ctx, &asset); err != nil {
				return fmt.Errorf("submit_attendance: add media: %w", err)
			}
			result.Media = append(result.Media, asset)
		}

		journal := attendance.JournalEntry{AttendanceID: a.ID, Note: note, CreatedAt: now}
		if err := repos.Attendance.AddJournal(ctx, &journal); err != nil {
			return fmt.Errorf("submit_attendance: add journal: %w", err)
		}

		result.Attendance = a
		result.Journal = journal

		if admin {
			return nil
		}

		out, err := h.outcome.Apply(ctx, repos, OutcomeInput{StudentID: *a.StudentID, Status: a.Status, Date: date, At: now})
		if err != nil {
			return err
		}
		result.LedgerDelta = out.LedgerDelta
		result.Attendance.LedgerDelta = out.LedgerDelta
		result.Ledger = out.Entry
		if out.Entry != nil && out.LedgerDelta != 0 {
			tracked.Record(pointsEvent(*out.Entry, out.LedgerDelta, "attendance "+string(a.Status), now))
		}
		return nil
	})
	if err != nil {
		h.discard(ctx, stored)
		return nil, failure(h.logger, "attendance", "Submit", err)
	}

	result.PointsEarned = result.Attendance.Status.PointsEarned()

	submitted := shared.AttendanceSubmittedEvent{
		BaseEvent:    shared.NewBaseEvent(shared.EventAttendanceSubmitted, strconv.FormatInt(result.Attendance.ID, 10), now),
		AttendanceID: result.Attendance.ID,
		UserID:       result.Attendance.UserID,
		StudentID:    result.Attendance.StudentID,
		Status:       string(result.Attendance.Status),
		Date:         date,
		LedgerDelta:  result.LedgerDelta,
	}
	var events shared.EventRecorder
	events.Record(submitted)
	for _, e := range tracked.Events() {
		events.Record(e)
	}
	publishAll(&events, h.events, h.logger)

	h.logger.Info("attendance submitted",
		logger.AttendanceID(result.Attendance.ID),
		logger.UserID(result.Attendance.UserID),
		logger.AttendanceStatus(string(result.Attendance.Status)),
		logger.Points(result.LedgerDelta),
	)
	return &result, nil
}

// discard removes files saved by a transaction that did not commit.
func (h *SubmitAttendanceHandler) discard(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := h.media.Remove(ctx, p); err != nil {
			h.logger.Warn("failed to remove orphaned media", logger.String("path", p), logger.Err(err))
		}
	}
}
