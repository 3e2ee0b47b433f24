// Package rule содержит каталог правил поощрения и взыскания.
package rule

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// Kind — тип правила.
type Kind string

const (
	KindReward     Kind = "reward"
	KindPunishment Kind = "punishment"
)

// IsValid проверяет, что тип известен.
func (k Kind) IsValid() bool {
	return k == KindReward || k == KindPunishment
}

// Rule — именованное правило с фиксированной стоимостью в баллах.
type Rule struct {
	ID          int64     `json:"id"`
	UUID        uuid.UUID `json:"uuid"`
	Kind        Kind      `json:"type"`
	Name        string    `json:"name"`
	Points      int       `json:"points"`
	Description *string   `json:"description"`
}

// Validate проверяет поля правила перед сохранением.
func (r Rule) Validate() error {
	errs := shared.FieldErrors{}
	if !r.Kind.IsValid() {
		errs.Add("type", "The selected type is invalid.")
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		errs.Add("name", "The name field is required.")
	} else if len(name) > 255 {
		errs.Add("name", "The name may not be greater than 255 characters.")
	}
	return errs.Err("rule", "Validate")
}

// ══════════════════════════════════════════════════════════════════════════════
// WELL-KNOWN RULES
// ══════════════════════════════════════════════════════════════════════════════

// Key — типизированный идентификатор правил, на которые опирается система.
// Имя правила остаётся запасным способом поиска для пользовательских правил.
type Key int

const (
	AttendancePresent Key = iota + 1
	AttendanceLate
	ExcellentPerformance
	GoodBehavior
	MinorViolation
	SeriousViolation
)

type definition struct {
	name        string
	kind        Kind
	points      int
	description string
}

var definitions = map[Key]definition{
	AttendancePresent:    {"Attendance - Present", KindReward, 5, "Automatic reward for present attendance"},
	AttendanceLate:       {"Attendance - Late", KindPunishment, -5, "Automatic punishment for late attendance"},
	ExcellentPerformance: {"Excellent Performance", KindReward, 15, "Reward for outstanding academic or behavioral performance"},
	GoodBehavior:         {"Good Behavior", KindReward, 10, "Reward for consistent good behavior and participation"},
	MinorViolation:       {"Minor Violation", KindPunishment, -10, "Punishment for minor rule violations"},
	SeriousViolation:     {"Serious Violation", KindPunishment, -25, "Punishment for serious rule violations or misconduct"},
}

// Name возвращает каноническое имя правила.
func (k Key) Name() string { return definitions[k].name }

// DefaultPoints возвращает стоимость правила по умолчанию.
func (k Key) DefaultPoints() int { return definitions[k].points }

// Kind возвращает тип правила.
func (k Key) Kind() Kind { return definitions[k].kind }

// Defaults возвращает начальный набор правил в стабильном порядке.
func Defaults() []Rule {
	keys := []Key{AttendancePresent, AttendanceLate, ExcellentPerformance, GoodBehavior, MinorViolation, SeriousViolation}
	out := make([]Rule, 0, len(keys))
	for _, k := range keys {
		d := definitions[k]
		desc := d.description
		out = append(out, Rule{Kind: d.kind, Name: d.name, Points: d.points, Description: &desc})
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository — хранилище правил.
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (Rule, error)
	List(ctx context.Context) ([]Rule, error)

	// FindByName — поиск без ошибки: ok=false если правила нет.
	FindByName(ctx context.Context, name string) (Rule, bool, error)

	// FindByID — как GetByID, но отсутствие не является ошибкой.
	FindByID(ctx context.Context, id int64) (Rule, bool, error)
}

// Lookup находит правило по ключу.
func Lookup(ctx context.Context, repo Repository, key Key) (Rule, bool, error) {
	return repo.FindByName(ctx, key.Name())
}

// Seed создаёт отсутствующие правила по умолчанию (firstOrCreate по имени)
// и возвращает число созданных.
func Seed(ctx context.Context, repo Repository) (int, error) {
	created := 0
	for _, r := range Defaults() {
		_, ok, err := repo.FindByName(ctx, r.Name)
		if err != nil {
			return created, err
		}
		if ok {
			continue
		}
		if err := repo.Create(ctx, &r); err != nil {
			if shared.IsConflict(err) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
