// Package discipline содержит журнал начисленных правил (Log) и
// записи о взысканиях/поощрениях, которые исполняет учитель (Record).
package discipline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG
// ══════════════════════════════════════════════════════════════════════════════

// LogStatus — состояние строки журнала.
type LogStatus string

const (
	LogDone    LogStatus = "DONE"
	LogPending LogStatus = "PENDING"
)

// Log — факт применения правила к студенту.
type Log struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	StudentID int64     `json:"student_id"`
	RuleID    int64     `json:"rules_id"`
	Date      time.Time `json:"date"`
	GivenBy   int64     `json:"given_by"`
	Remarks   *string   `json:"remarks"`
	Status    LogStatus `json:"status"`
}

// AutoRemarkPrefix начинает примечание всех автоматических строк журнала.
const AutoRemarkPrefix = "Automatic attendance "

// AutoRemark — примечание для строки, созданной из отметки посещаемости.
func AutoRemark(status string) string {
	return AutoRemarkPrefix + status + " reward/punishment"
}

// Automatic — создана ли строка системой посещаемости.
func (l Log) Automatic() bool {
	return l.Remarks != nil && strings.HasPrefix(*l.Remarks, AutoRemarkPrefix)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// RecordStatus — состояние записи.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordDone      RecordStatus = "done"
	RecordCancelled RecordStatus = "cancelled"
)

// ParseDecision принимает только done или cancelled.
func ParseDecision(s string) (RecordStatus, bool) {
	switch st := RecordStatus(s); st {
	case RecordDone, RecordCancelled:
		return st, true
	}
	return "", false
}

// Тексты автоматически созданной записи об опоздании.
const (
	LateRecordDescription = "Attendance - Late: Student was late for attendance"
	AutoRecordNotes       = "Automatically generated from attendance system"
)

// MaxNotesLength — ограничение длины заметок при исполнении.
const MaxNotesLength = 1000

// Record — поощрение или взыскание, ожидающее исполнения учителем.
type Record struct {
	ID          int64        `json:"id"`
	UUID        uuid.UUID    `json:"uuid"`
	StudentID   int64        `json:"student_id"`
	TeacherID   int64        `json:"teacher_id"`
	RuleID      *int64       `json:"rule_id"`
	Type        rule.Kind    `json:"type"`
	Description string       `json:"description"`
	Status      RecordStatus `json:"status"`
	GivenDate   time.Time    `json:"given_date"`
	Notes       *string      `json:"notes"`
}

// Automatic — создана ли запись системой посещаемости.
func (r Record) Automatic() bool {
	return r.Type == rule.KindPunishment && r.Description == LateRecordDescription
}

// Execute переводит pending-запись в decision от имени teacherID.
// Порядок проверок: владелец, затем состояние.
func (r *Record) Execute(teacherID int64, decision RecordStatus, notes *string) error {
	if decision != RecordDone && decision != RecordCancelled {
		return shared.Validation("discipline", "Execute", "The selected status is invalid.")
	}
	if notes != nil && len([]rune(*notes)) > MaxNotesLength {
		return shared.Validation("discipline", "Execute", "The notes may not be greater than %d characters.", MaxNotesLength)
	}
	if r.TeacherID != teacherID {
		return shared.ErrRecordNotOwned
	}
	if r.Status != RecordPending {
		return shared.ErrRecordNotPending
	}
	r.Status = decision
	r.Notes = notes
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CANCEL POLICY
// ══════════════════════════════════════════════════════════════════════════════

// CancelPolicy решает, какое изменение счёта применяется при отмене записи.
// found=false если правило записи не найдено.
type CancelPolicy func(rec Record, r rule.Rule, found bool) (delta int)

// KeepPenalty — отмена не возвращает баллы.
func KeepPenalty(Record, rule.Rule, bool) int { return 0 }

// RestorePoints — отмена возвращает баллы правила.
func RestorePoints(_ Record, r rule.Rule, found bool) int {
	if !found {
		return 0
	}
	return -r.Points
}

// CancelPolicyByName выбирает политику по имени из конфигурации.
func CancelPolicyByName(name string) (CancelPolicy, error) {
	switch name {
	case "", "keep":
		return KeepPenalty, nil
	case "restore":
		return RestorePoints, nil
	default:
		return nil, fmt.Errorf("unknown cancel policy %q", name)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// LogFilter — фильтр журнала. Пустые поля не участвуют.
type LogFilter struct {
	StudentID *int64
	From, To  *time.Time // включительно
}

// LogRepository — хранилище журнала.
type LogRepository interface {
	Create(ctx context.Context, l *Log) error
	GetByID(ctx context.Context, id int64) (Log, error)
	List(ctx context.Context, f LogFilter) ([]Log, error)
	UpdateRemarks(ctx context.Context, id int64, remarks *string) error
	Delete(ctx context.Context, id int64) error

	// MarkLatestPendingDone переводит самую свежую PENDING-строку
	// (studentID, ruleID, date) в DONE. ok=false если такой нет.
	MarkLatestPendingDone(ctx context.Context, studentID, ruleID int64, date time.Time) (bool, error)

	// DeleteAutomatic удаляет автоматические строки студента за день.
	DeleteAutomatic(ctx context.Context, studentID int64, date time.Time) (int, error)
}

// RecordFilter — фильтр записей.
type RecordFilter struct {
	TeacherID *int64
	Status    *RecordStatus
	Type      *rule.Kind
	From, To  *time.Time // по given_date, включительно
	GradeID   *int64
}

// RecordRepository — хранилище записей.
type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id int64) (Record, error)
	// GetForUpdate читает запись с блокировкой строки до конца транзакции.
	GetForUpdate(ctx context.Context, id int64) (Record, error)
	UpdateStatus(ctx context.Context, r Record) error
	List(ctx context.Context, f RecordFilter) ([]Record, error)

	// DeleteAutomaticPending удаляет pending-записи, созданные системой
	// посещаемости для студента за день.
	DeleteAutomaticPending(ctx context.Context, studentID int64, date time.Time) (int, error)
}
