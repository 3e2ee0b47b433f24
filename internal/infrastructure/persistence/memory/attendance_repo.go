package memory

import (
	"context"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

type attendanceRepo struct{ ss *session }

// sameDay mirrors the two partial unique indexes of the SQL schema.
func sameDay(a, b attendance.Attendance) bool {
	if !timeutil.SameDate(a.Date, b.Date) {
		return false
	}
	if a.StudentID != nil && b.StudentID != nil {
		return *a.StudentID == *b.StudentID
	}
	if a.StudentID == nil && b.StudentID == nil {
		return a.UserID == b.UserID
	}
	return false
}

func (r *attendanceRepo) Create(_ context.Context, a *attendance.Attendance) error {
	return r.ss.write(func(st *state) error {
		return insertAttendance(st, a)
	})
}

func insertAttendance(st *state, a *attendance.Attendance) error {
	for _, existing := range st.attendance.rows {
		if sameDay(existing, *a) {
			return shared.ErrAttendanceAlreadySubmitted
		}
	}
	a.ID = st.attendance.nextID()
	a.UUID = newUUID()
	st.attendance.rows[a.ID] = *a
	return nil
}

func (r *attendanceRepo) GetByID(_ context.Context, id int64) (out attendance.Attendance, err error) {
	err = r.ss.run(func(st *state) error {
		a, ok := st.attendance.rows[id]
		if !ok {
			return shared.ErrAttendanceNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r *attendanceRepo) List(_ context.Context, f attendance.Filter) (out []attendance.Attendance, err error) {
	err = r.ss.run(func(st *state) error {
		for _, a := range st.attendance.ordered() {
			if !timeutil.SameDate(a.Date, f.Date) {
				continue
			}
			if f.Status != nil && a.Status != *f.Status {
				continue
			}
			if f.StudentID != nil && (a.StudentID == nil || *a.StudentID != *f.StudentID) {
				continue
			}
			if f.GradeID != nil {
				if a.StudentID == nil {
					continue
				}
				s, ok := st.students.rows[*a.StudentID]
				if !ok || s.GradeID != *f.GradeID {
					continue
				}
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (r *attendanceRepo) ListByDate(ctx context.Context, date time.Time) ([]attendance.Attendance, error) {
	return r.List(ctx, attendance.Filter{Date: date})
}

func (r *attendanceRepo) AddLedgerDelta(_ context.Context, studentID int64, date time.Time, delta int) error {
	return r.ss.write(func(st *state) error {
		for id, a := range st.attendance.rows {
			if a.StudentID != nil && *a.StudentID == studentID && timeutil.SameDate(a.Date, date) {
				a.LedgerDelta += delta
				st.attendance.rows[id] = a
			}
		}
		return nil
	})
}

func (r *attendanceRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.attendance.rows[id]; !ok {
			return shared.ErrAttendanceNotFound
		}
		delete(st.attendance.rows, id)
		// ON DELETE CASCADE
		for jid, j := range st.journal.rows {
			if j.AttendanceID == id {
				delete(st.journal.rows, jid)
			}
		}
		for mid, m := range st.media.rows {
			if m.AttendanceID == id {
				delete(st.media.rows, mid)
			}
		}
		return nil
	})
}

func (r *attendanceRepo) ListRange(_ context.Context, from, to time.Time, studentID *int64) (out []attendance.Attendance, err error) {
	err = r.ss.run(func(st *state) error {
		for _, a := range st.attendance.ordered() {
			if a.StudentID == nil || !inRange(a.Date, &from, &to) {
				continue
			}
			if studentID != nil && *a.StudentID != *studentID {
				continue
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (r *attendanceRepo) LastAttended(_ context.Context, studentID int64) (last time.Time, found bool, err error) {
	err = r.ss.run(func(st *state) error {
		for _, a := range st.attendance.rows {
			if a.StudentID == nil || *a.StudentID != studentID || !a.Status.Attended() {
				continue
			}
			if !found || a.Date.After(last) {
				last, found = a.Date, true
			}
		}
		return nil
	})
	return last, found, err
}

func (r *attendanceRepo) AddJournal(_ context.Context, e *attendance.JournalEntry) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.attendance.rows[e.AttendanceID]; !ok {
			return shared.ErrAttendanceNotFound
		}
		e.ID = st.journal.nextID()
		e.UUID = newUUID()
		st.journal.rows[e.ID] = *e
		return nil
	})
}

func (r *attendanceRepo) ListJournal(_ context.Context, attendanceID int64) (out []attendance.JournalEntry, err error) {
	err = r.ss.run(func(st *state) error {
		for _, j := range st.journal.ordered() {
			if j.AttendanceID == attendanceID {
				out = append(out, j)
			}
		}
		return nil
	})
	return out, err
}

func (r *attendanceRepo) DeleteJournal(_ context.Context, attendanceID int64) (n int, err error) {
	err = r.ss.write(func(st *state) error {
		for id, j := range st.journal.rows {
			if j.AttendanceID == attendanceID {
				delete(st.journal.rows, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *attendanceRepo) AddMedia(_ context.Context, m *attendance.MediaAsset) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.attendance.rows[m.AttendanceID]; !ok {
			return shared.ErrAttendanceNotFound
		}
		m.ID = st.media.nextID()
		m.UUID = newUUID()
		st.media.rows[m.ID] = *m
		return nil
	})
}

func (r *attendanceRepo) ListMedia(_ context.Context, attendanceID int64) (out []attendance.MediaAsset, err error) {
	err = r.ss.run(func(st *state) error {
		for _, m := range st.media.ordered() {
			if m.AttendanceID == attendanceID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *attendanceRepo) DeleteMedia(_ context.Context, attendanceID int64) (n int, err error) {
	err = r.ss.write(func(st *state) error {
		for id, m := range st.media.rows {
			if m.AttendanceID == attendanceID {
				delete(st.media.rows, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *attendanceRepo) MarkAbsent(_ context.Context, date time.Time, at time.Time) (out []attendance.Attendance, err error) {
	err = r.ss.write(func(st *state) error {
		for _, s := range st.students.ordered() {
			sid := s.ID
			a := attendance.Attendance{StudentID: &sid, UserID: s.UserID, Date: date, Status: attendance.StatusAbsent, CreatedAt: at}
			if err := insertAttendance(st, &a); err != nil {
				if shared.IsConflict(err) {
					continue
				}
				return err
			}
			j := attendance.JournalEntry{ID: st.journal.nextID(), UUID: newUUID(), AttendanceID: a.ID, Note: attendance.ClosingNote, CreatedAt: at}
			st.journal.rows[j.ID] = j
			out = append(out, a)
		}
		return nil
	})
	return out, err
}
