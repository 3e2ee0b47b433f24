package school

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// Get* возвращают ошибку NotFound, Find* возвращают ok=false без ошибки.
// ══════════════════════════════════════════════════════════════════════════════

// StudentFilter — фильтр списка студентов.
type StudentFilter struct {
	GradeID *int64
}

// StudentRepository — хранилище студентов.
type StudentRepository interface {
	// Create возвращает ErrStudentProfileExists, если у пользователя уже есть профиль.
	Create(ctx context.Context, s *Student) error
	Update(ctx context.Context, s *Student) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (Student, error)
	FindByUserID(ctx context.Context, userID int64) (Student, bool, error)
	List(ctx context.Context, f StudentFilter) ([]Student, error)
	Count(ctx context.Context) (int, error)
}

// TeacherRepository — хранилище учителей.
type TeacherRepository interface {
	Create(ctx context.Context, t *Teacher) error
	Update(ctx context.Context, t *Teacher) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (Teacher, error)
	FindByUserID(ctx context.Context, userID int64) (Teacher, bool, error)
	List(ctx context.Context) ([]Teacher, error)
	Count(ctx context.Context) (int, error)
}

// GradeRepository — хранилище классов.
type GradeRepository interface {
	Create(ctx context.Context, g *Grade) error
	Update(ctx context.Context, g *Grade) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (Grade, error)
	List(ctx context.Context) ([]Grade, error)
	Count(ctx context.Context) (int, error)

	// ListByHomeroom возвращает классы, где учитель — классный руководитель.
	ListByHomeroom(ctx context.Context, teacherID int64) ([]Grade, error)

	// HomeroomTeacherOf возвращает классного руководителя студента.
	// ok=false если у класса нет руководителя.
	HomeroomTeacherOf(ctx context.Context, studentID int64) (teacherID int64, ok bool, err error)
}

// TargetRepository — хранилище целей.
type TargetRepository interface {
	Create(ctx context.Context, t *Target) error
	Update(ctx context.Context, t *Target) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (Target, error)
	List(ctx context.Context) ([]Target, error)
}

// FAQRepository — хранилище FAQ.
type FAQRepository interface {
	Create(ctx context.Context, f *FAQ) error
	Update(ctx context.Context, f *FAQ) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (FAQ, error)
	List(ctx context.Context) ([]FAQ, error)
}

// ContactRepository — хранилище контактов.
type ContactRepository interface {
	Create(ctx context.Context, c *Contact) error
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (Contact, error)
	List(ctx context.Context) ([]Contact, error)
}
