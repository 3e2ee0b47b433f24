package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements attendance.Repository. Day uniqueness is
// enforced by the two partial unique indexes on attendances.
type AttendanceRepository struct {
	q Querier
}

const attendanceColumns = `id, uuid, student_id, user_id, date, status, remarks, ledger_delta, created_at`

func scanAttendance(row scanner) (attendance.Attendance, error) {
	var a attendance.Attendance
	err := row.Scan(&a.ID, &a.UUID, &a.StudentID, &a.UserID, &a.Date, &a.Status, &a.Remarks, &a.LedgerDelta, &a.CreatedAt)
	return a, err
}

// Create inserts an attendance. A second row for the same day is
// ErrAttendanceAlreadySubmitted.
func (r *AttendanceRepository) Create(ctx context.Context, a *attendance.Attendance) error {
	a.UUID = newUUID(a.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO attendances (uuid, student_id, user_id, date, status, remarks, ledger_delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, a.UUID, a.StudentID, a.UserID, a.Date, a.Status, a.Remarks, a.LedgerDelta, a.CreatedAt).Scan(&a.ID)
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return shared.ErrAttendanceAlreadySubmitted
	case IsForeignKeyViolation(err):
		return shared.ErrStudentNotFound
	default:
		return fmt.Errorf("failed to create attendance: %w", err)
	}
}

// GetByID returns an attendance or ErrAttendanceNotFound.
func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (attendance.Attendance, error) {
	return queryOne(ctx, r.q, scanAttendance, shared.ErrAttendanceNotFound,
		`SELECT `+attendanceColumns+` FROM attendances WHERE id = $1`, id)
}

// List returns one day of attendance ordered by id.
func (r *AttendanceRepository) List(ctx context.Context, f attendance.Filter) ([]attendance.Attendance, error) {
	out, err := queryAll(ctx, r.q, scanAttendance, `
		SELECT a.id, a.uuid, a.student_id, a.user_id, a.date, a.status, a.remarks, a.ledger_delta, a.created_at
		FROM attendances a
		LEFT JOIN students s ON s.id = a.student_id
		WHERE a.date = $1
		  AND ($2::text IS NULL OR a.status = $2)
		  AND ($3::bigint IS NULL OR s.grade_id = $3)
		  AND ($4::bigint IS NULL OR a.student_id = $4)
		ORDER BY a.id
	`, f.Date, f.Status, f.GradeID, f.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return out, nil
}

// ListByDate returns every attendance of date.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.Attendance, error) {
	return r.List(ctx, attendance.Filter{Date: date})
}

// Delete removes an attendance with its journal and media.
func (r *AttendanceRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete attendance", shared.ErrAttendanceNotFound, `DELETE FROM attendances WHERE id = $1`, id)
}

// AddLedgerDelta shifts the ledger_delta of a student's attendance on date.
func (r *AttendanceRepository) AddLedgerDelta(ctx context.Context, studentID int64, date time.Time, delta int) error {
	_, err := r.q.Exec(ctx, `
		UPDATE attendances SET ledger_delta = ledger_delta + $3 WHERE student_id = $1 AND date = $2
	`, studentID, date, delta)
	if err != nil {
		return fmt.Errorf("failed to update attendance ledger delta: %w", err)
	}
	return nil
}

// ListRange returns student attendance within [from, to].
func (r *AttendanceRepository) ListRange(ctx context.Context, from, to time.Time, studentID *int64) ([]attendance.Attendance, error) {
	out, err := queryAll(ctx, r.q, scanAttendance, `
		SELECT `+attendanceColumns+` FROM attendances
		WHERE student_id IS NOT NULL
		  AND date BETWEEN $1 AND $2
		  AND ($3::bigint IS NULL OR student_id = $3)
		ORDER BY date, id
	`, from, to, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance range: %w", err)
	}
	return out, nil
}

// LastAttended returns the latest present or late date of a student.
func (r *AttendanceRepository) LastAttended(ctx context.Context, studentID int64) (time.Time, bool, error) {
	var last *time.Time
	err := r.q.QueryRow(ctx, `
		SELECT max(date) FROM attendances WHERE student_id = $1 AND status IN ($2, $3)
	`, studentID, attendance.StatusPresent, attendance.StatusLate).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to find last attendance: %w", err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Journal & media
// ─────────────────────────────────────────────────────────────────────────────

// AddJournal appends a journal entry.
func (r *AttendanceRepository) AddJournal(ctx context.Context, e *attendance.JournalEntry) error {
	e.UUID = newUUID(e.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO attendance_journals (uuid, attendance_id, note, created_at) VALUES ($1, $2, $3, $4) RETURNING id
	`, e.UUID, e.AttendanceID, e.Note, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrAttendanceNotFound
		}
		return fmt.Errorf("failed to add journal entry: %w", err)
	}
	return nil
}

// ListJournal returns the journal of an attendance in insertion order.
func (r *AttendanceRepository) ListJournal(ctx context.Context, attendanceID int64) ([]attendance.JournalEntry, error) {
	out, err := queryAll(ctx, r.q, func(row scanner) (attendance.JournalEntry, error) {
		var e attendance.JournalEntry
		err := row.Scan(&e.ID, &e.UUID, &e.AttendanceID, &e.Note, &e.CreatedAt)
		return e, err
	}, `SELECT id, uuid, attendance_id, note, created_at FROM attendance_journals WHERE attendance_id = $1 ORDER BY id`, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	return out, nil
}

// DeleteJournal removes the journal of an attendance.
func (r *AttendanceRepository) DeleteJournal(ctx context.Context, attendanceID int64) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM attendance_journals WHERE attendance_id = $1`, attendanceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete journal: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// AddMedia stores a media row.
func (r *AttendanceRepository) AddMedia(ctx context.Context, m *attendance.MediaAsset) error {
	m.UUID = newUUID(m.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO attendance_media (uuid, attendance_id, path, filename, mime_type, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.UUID, m.AttendanceID, m.Path, m.Filename, m.MimeType, m.Size).Scan(&m.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrAttendanceNotFound
		}
		return fmt.Errorf("failed to add media: %w", err)
	}
	return nil
}

// ListMedia returns the media of an attendance.
func (r *AttendanceRepository) ListMedia(ctx context.Context, attendanceID int64) ([]attendance.MediaAsset, error) {
	out, err := queryAll(ctx, r.q, func(row scanner) (attendance.MediaAsset, error) {
		var m attendance.MediaAsset
		err := row.Scan(&m.ID, &m.UUID, &m.AttendanceID, &m.Path, &m.Filename, &m.MimeType, &m.Size)
		return m, err
	}, `SELECT id, uuid, attendance_id, path, filename, mime_type, size FROM attendance_media WHERE attendance_id = $1 ORDER BY id`, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	return out, nil
}

// DeleteMedia removes the media rows of an attendance.
func (r *AttendanceRepository) DeleteMedia(ctx context.Context, attendanceID int64) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM attendance_media WHERE attendance_id = $1`, attendanceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete media: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Day closing
// ─────────────────────────────────────────────────────────────────────────────

// MarkAbsent inserts an absent row with a closing journal note for every
// student without attendance on date. Rows that race a real submission are
// skipped by ON CONFLICT DO NOTHING.
func (r *AttendanceRepository) MarkAbsent(ctx context.Context, date time.Time, at time.Time) ([]attendance.Attendance, error) {
	out, err := queryAll(ctx, r.q, scanAttendance, `
		WITH inserted AS (
			INSERT INTO attendances (uuid, student_id, user_id, date, status, created_at)
			SELECT gen_random_uuid(), s.id, s.user_id, $1, $2, $3
			FROM students s
			WHERE NOT EXISTS (SELECT 1 FROM attendances a WHERE a.student_id = s.id AND a.date = $1)
			ORDER BY s.id
			ON CONFLICT DO NOTHING
			RETURNING `+attendanceColumns+`
		), journal AS (
			INSERT INTO attendance_journals (uuid, attendance_id, note, created_at)
			SELECT gen_random_uuid(), id, $4, $3 FROM inserted
		)
		SELECT `+attendanceColumns+` FROM inserted ORDER BY student_id
	`, date, attendance.StatusAbsent, at, attendance.ClosingNote)
	if err != nil {
		return nil, fmt.Errorf("failed to mark absent: %w", err)
	}
	return out, nil
}
