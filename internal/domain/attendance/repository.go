package attendance

import (
	"context"
	"time"
)

// Filter — фильтр списка отметок за день.
type Filter struct {
	Date      time.Time
	Status    *Status
	GradeID   *int64
	StudentID *int64
}

// Repository — хранилище отметок, журнала и вложений.
type Repository interface {
	// Create вставляет отметку. Нарушение уникальности дня возвращает
	// ErrAttendanceAlreadySubmitted (Conflict); предварительной проверки нет.
	Create(ctx context.Context, a *Attendance) error
	GetByID(ctx context.Context, id int64) (Attendance, error)
	List(ctx context.Context, f Filter) ([]Attendance, error)
	ListByDate(ctx context.Context, date time.Time) ([]Attendance, error)
	Delete(ctx context.Context, id int64) error

	// AddLedgerDelta сдвигает LedgerDelta отметки студента за date.
	// Отсутствие отметки не ошибка.
	AddLedgerDelta(ctx context.Context, studentID int64, date time.Time, delta int) error

	// ListRange возвращает отметки студентов за [from, to]; studentID сужает выборку.
	ListRange(ctx context.Context, from, to time.Time, studentID *int64) ([]Attendance, error)

	// LastAttended — дата последней отметки present/late студента.
	LastAttended(ctx context.Context, studentID int64) (time.Time, bool, error)

	AddJournal(ctx context.Context, e *JournalEntry) error
	ListJournal(ctx context.Context, attendanceID int64) ([]JournalEntry, error)
	DeleteJournal(ctx context.Context, attendanceID int64) (int, error)

	AddMedia(ctx context.Context, m *MediaAsset) error
	ListMedia(ctx context.Context, attendanceID int64) ([]MediaAsset, error)
	DeleteMedia(ctx context.Context, attendanceID int64) (int, error)

	// MarkAbsent вставляет absent для всех студентов без отметки за date
	// и возвращает созданные отметки. Существующие отметки не трогает.
	MarkAbsent(ctx context.Context, date time.Time, at time.Time) ([]Attendance, error)
}
