// Package attendance содержит модель ежедневной отметки посещаемости:
// классификацию по времени, журнал и вложенные фотографии.
package attendance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status — итог отметки за день.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
	StatusAbsent  Status = "absent"
)

// ParseStatus проверяет строку статуса.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPresent, StatusLate, StatusExcused, StatusAbsent:
		return st, true
	}
	return "", false
}

// PointsEarned — баллы для отображения: present +5, late -5, иначе 0.
// Это не то же самое, что фактическое изменение счёта.
func (s Status) PointsEarned() int {
	switch s {
	case StatusPresent:
		return 5
	case StatusLate:
		return -5
	default:
		return 0
	}
}

// Attended — пришёл ли студент (present или late).
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Policy задаёт границы классификации и опорный часовой пояс.
type Policy struct {
	// PresentBefore: время строго раньше — present.
	PresentBefore timeutil.TimeOfDay
	// ExcusedUntil: время до него включительно — excused, позже — late.
	ExcusedUntil timeutil.TimeOfDay
	Location     *time.Location
}

// DefaultPolicy — 06:45 / 06:55 по Джакарте.
func DefaultPolicy() Policy {
	return Policy{
		PresentBefore: timeutil.MustTimeOfDay("06:45"),
		ExcusedUntil:  timeutil.MustTimeOfDay("06:55"),
		Location:      timeutil.JakartaTZ,
	}
}

// Validate проверяет согласованность границ.
func (p Policy) Validate() error {
	if p.Location == nil {
		return fmt.Errorf("attendance policy: location is required")
	}
	if p.ExcusedUntil < p.PresentBefore {
		return fmt.Errorf("attendance policy: excused cutoff %s is before present cutoff %s", p.ExcusedUntil, p.PresentBefore)
	}
	return nil
}

// Classify определяет статус по моменту отметки (с точностью до минуты).
func (p Policy) Classify(at time.Time) Status {
	tod := timeutil.ClockOf(at, p.Location)
	switch {
	case tod < p.PresentBefore:
		return StatusPresent
	case tod <= p.ExcusedUntil:
		return StatusExcused
	default:
		return StatusLate
	}
}

// Day возвращает календарный день отметки в опорном поясе.
func (p Policy) Day(at time.Time) time.Time {
	return timeutil.DateOf(at, p.Location)
}

// Clock форматирует время отметки как HH:MM в опорном поясе.
func (p Policy) Clock(at time.Time) string {
	return timeutil.FormatTimeStr(at, p.Location)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Attendance — отметка за день. У администратора StudentID = nil,
// уникальность тогда держится по (UserID, Date).
type Attendance struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	StudentID *int64    `json:"student_id"`
	UserID    int64     `json:"user_id"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	Remarks   *string   `json:"remarks"`
	CreatedAt time.Time `json:"created_at"`

	// LedgerDelta — часть итога отметки, которая ещё числится в счёте студента.
	LedgerDelta int `json:"ledger_delta"`
}

// JournalEntry — строка аудита отметки.
type JournalEntry struct {
	ID           int64     `json:"id"`
	UUID         uuid.UUID `json:"uuid"`
	AttendanceID int64     `json:"attendance_id"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"created_at"`
}

// MediaAsset — сохранённая фотография, привязанная к отметке.
type MediaAsset struct {
	ID           int64     `json:"id"`
	UUID         uuid.UUID `json:"uuid"`
	AttendanceID int64     `json:"attendance_id"`
	Path         string    `json:"path"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
}

// Detail — отметка вместе с журналом и вложениями.
type Detail struct {
	Attendance
	Journal []JournalEntry `json:"journal"`
	Media   []MediaAsset   `json:"media"`
}

// StudentNote — текст журнала для студента.
func StudentNote(clock string, status Status) string {
	return fmt.Sprintf("Attendance submitted at %s with status %s", clock, status)
}

// AdministratorNote — текст журнала для администратора.
func AdministratorNote(clock string, status Status) string {
	return fmt.Sprintf("Administrator attendance submitted at %s with status %s", clock, status)
}

// ClosingNote — текст журнала для автоматической отметки отсутствия.
const ClosingNote = "Marked absent by end-of-day closing"
