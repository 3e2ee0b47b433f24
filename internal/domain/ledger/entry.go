// Package ledger содержит модель накопительного счёта баллов студента.
// Счёт меняется только знаковыми приращениями (Adjust); прямой записи
// итоговой суммы нет.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Entry — строка счёта: одна на студента, создаётся лениво с нулём.
type Entry struct {
	ID          int64     `json:"id"`
	UUID        uuid.UUID `json:"uuid"`
	StudentID   int64     `json:"student_id"`
	TotalPoints int       `json:"total_points"`
	LastUpdated time.Time `json:"last_updated"`
}

// Level возвращает дисциплинарный уровень для текущей суммы.
func (e Entry) Level() DisciplineLevel {
	return LevelFor(e.TotalPoints)
}

// Apply возвращает копию записи после приращения delta в момент at.
// Используется хранилищами без атомарного upsert (память).
func (e Entry) Apply(delta int, at time.Time) Entry {
	e.TotalPoints += delta
	e.LastUpdated = at
	return e
}

// ══════════════════════════════════════════════════════════════════════════════
// DISCIPLINE LEVEL
// ══════════════════════════════════════════════════════════════════════════════

// DisciplineLevel — словесная оценка суммы баллов.
type DisciplineLevel string

const (
	LevelExcellent        DisciplineLevel = "Excellent"
	LevelGood             DisciplineLevel = "Good"
	LevelAverage          DisciplineLevel = "Average"
	LevelNeedsImprovement DisciplineLevel = "Needs Improvement"
	LevelPoor             DisciplineLevel = "Poor"
)

// LevelFor — чистая функция: >=50 Excellent, 20..49 Good, 0..19 Average,
// -20..-1 Needs Improvement, < -20 Poor.
func LevelFor(points int) DisciplineLevel {
	switch {
	case points >= 50:
		return LevelExcellent
	case points >= 20:
		return LevelGood
	case points >= 0:
		return LevelAverage
	case points >= -20:
		return LevelNeedsImprovement
	default:
		return LevelPoor
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository — контракт хранилища счёта.
type Repository interface {
	// Adjust атомарно создаёт строку (0) при отсутствии и прибавляет delta.
	// Конкурентные вызовы для одного студента сериализуются.
	Adjust(ctx context.Context, studentID int64, delta int, at time.Time) (Entry, error)

	// Find возвращает запись, ok=false если счёта ещё нет.
	Find(ctx context.Context, studentID int64) (Entry, bool, error)

	// GetByID возвращает запись по её ID или ErrLedgerEntryNotFound.
	GetByID(ctx context.Context, id int64) (Entry, error)

	// List возвращает все записи, отсортированные по убыванию суммы.
	List(ctx context.Context) ([]Entry, error)
}
