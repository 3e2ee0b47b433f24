package query

import (
	"context"
	"fmt"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE QUERIES
// Students only ever see their own rows; staff see everything.
// ══════════════════════════════════════════════════════════════════════════════

// ListAttendanceQuery lists one day of attendance.
type ListAttendanceQuery struct {
	Identity shared.Identity
	Date     time.Time
	Status   string
	GradeID  *int64
}

// Validate checks the filters.
func (q ListAttendanceQuery) Validate() error {
	errs := shared.FieldErrors{}
	if q.Date.IsZero() {
		errs.Add("date", "The date field is required.")
	}
	if q.Status != "" {
		if _, ok := attendance.ParseStatus(q.Status); !ok {
			errs.Add("status", "The selected status is invalid.")
		}
	}
	return errs.Err("attendance", "List")
}

// AttendanceDTO is an attendance row with its student.
type AttendanceDTO struct {
	attendance.Attendance
	Time         string      `json:"time"`
	PointsEarned int         `json:"points_earned"`
	Student      *StudentRef `json:"student,omitempty"`
}

// AttendanceHandler serves attendance reads.
type AttendanceHandler struct {
	uow store.UnitOfWork
	loc *time.Location
}

// NewAttendanceHandler creates a new AttendanceHandler. loc renders submission times.
func NewAttendanceHandler(uow store.UnitOfWork, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceHandler{uow: uow, loc: loc}
}

// List returns the attendance of q.Date.
func (h *AttendanceHandler) List(ctx context.Context, q ListAttendanceQuery) ([]AttendanceDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	repos := h.uow.Repos()

	f := attendance.Filter{Date: q.Date, GradeID: q.GradeID}
	if q.Status != "" {
		st, _ := attendance.ParseStatus(q.Status)
		f.Status = &st
	}
	if q.Identity.Role == shared.RoleStudent {
		sid, err := h.ownStudentID(ctx, repos, q.Identity)
		if err != nil {
			return nil, err
		}
		f.StudentID = &sid
	}

	rows, err := repos.Attendance.List(ctx, f)
	if err != nil {
		return nil, fail("attendance", "List", fmt.Errorf("list attendance: %w", err))
	}
	names, err := gradeNames(ctx, repos.Grades)
	if err != nil {
		return nil, fail("attendance", "List", err)
	}

	out := make([]AttendanceDTO, 0, len(rows))
	students := map[int64]*StudentRef{}
	for _, a := range rows {
		dto := h.dto(a)
		if a.StudentID != nil {
			ref, ok := students[*a.StudentID]
			if !ok {
				s, err := repos.Students.GetByID(ctx, *a.StudentID)
				if err == nil {
					r := studentRef(s, names)
					ref = &r
				} else if !shared.IsNotFound(err) {
					return nil, fail("attendance", "List", err)
				}
				students[*a.StudentID] = ref
			}
			dto.Student = ref
		}
		out = append(out, dto)
	}
	return out, nil
}

// AttendanceDetailDTO is one attendance with its journal and media.
type AttendanceDetailDTO struct {
	AttendanceDTO
	Journal []attendance.JournalEntry `json:"journal"`
	Media   []attendance.MediaAsset   `json:"media"`
}

// Get returns one attendance. Students get NotFound for rows that are not theirs.
func (h *AttendanceHandler) Get(ctx context.Context, id shared.Identity, attendanceID int64) (*AttendanceDetailDTO, error) {
	repos := h.uow.Repos()
	a, err := repos.Attendance.GetByID(ctx, attendanceID)
	if err != nil {
		return nil, fail("attendance", "Get", err)
	}
	if id.Role == shared.RoleStudent {
		sid, err := h.ownStudentID(ctx, repos, id)
		if err != nil {
			return nil, err
		}
		if a.StudentID == nil || *a.StudentID != sid {
			return nil, shared.ErrAttendanceNotFound
		}
	}

	journal, err := repos.Attendance.ListJournal(ctx, a.ID)
	if err != nil {
		return nil, fail("attendance", "Get", err)
	}
	media, err := repos.Attendance.ListMedia(ctx, a.ID)
	if err != nil {
		return nil, fail("attendance", "Get", err)
	}
	out := &AttendanceDetailDTO{AttendanceDTO: h.dto(a), Journal: journal, Media: media}
	if out.Journal == nil {
		out.Journal = []attendance.JournalEntry{}
	}
	if out.Media == nil {
		out.Media = []attendance.MediaAsset{}
	}
	return out, nil
}

func (h *AttendanceHandler) dto(a attendance.Attendance) AttendanceDTO {
	return AttendanceDTO{
		Attendance:   a,
		Time:         a.CreatedAt.In(h.loc).Format("15:04"),
		PointsEarned: a.Status.PointsEarned(),
	}
}

func (h *AttendanceHandler) ownStudentID(ctx context.Context, repos store.Repositories, id shared.Identity) (int64, error) {
	if id.StudentID != nil {
		return *id.StudentID, nil
	}
	s, found, err := repos.Students.FindByUserID(ctx, id.UserID)
	if err != nil {
		return 0, fail("attendance", "List", err)
	}
	if !found {
		return 0, shared.ErrStudentNotFound
	}
	return s.ID, nil
}
