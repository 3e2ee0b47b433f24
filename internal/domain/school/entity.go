// Package school содержит справочник школы: студенты, учителя, классы,
// цели студентов, FAQ и контакты.
package school

import (
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Student — профиль студента, привязанный к пользователю (один на пользователя).
type Student struct {
	ID          int64     `json:"id"`
	UUID        uuid.UUID `json:"uuid"`
	UserID      int64     `json:"user_id"`
	Fullname    string    `json:"fullname"`
	GradeID     int64     `json:"grade_id"`
	BirthDate   time.Time `json:"birth_date"`
	Address     string    `json:"address"`
	PhoneNumber *string   `json:"phone_number"`
	Image       *string   `json:"image"`
}

// Teacher — профиль учителя (один на пользователя).
type Teacher struct {
	ID          int64     `json:"id"`
	UUID        uuid.UUID `json:"uuid"`
	UserID      int64     `json:"user_id"`
	Fullname    string    `json:"fullname"`
	PhoneNumber string    `json:"phone_number"`
	Address     *string   `json:"address"`
	Subject     string    `json:"subject"`
	HireDate    time.Time `json:"hire_date"`
}

// Grade — класс с необязательным классным руководителем.
type Grade struct {
	ID                int64     `json:"id"`
	UUID              uuid.UUID `json:"uuid"`
	Name              string    `json:"name"`
	HomeroomTeacherID *int64    `json:"homeroom_teacher_id"`
}

// TargetStatus — состояние цели.
type TargetStatus string

const (
	TargetActive    TargetStatus = "active"
	TargetCompleted TargetStatus = "completed"
	TargetCancelled TargetStatus = "cancelled"
)

// IsValid проверяет статус цели.
func (s TargetStatus) IsValid() bool {
	switch s {
	case TargetActive, TargetCompleted, TargetCancelled:
		return true
	}
	return false
}

// Target — цель студента на период.
type Target struct {
	ID          int64        `json:"id"`
	UUID        uuid.UUID    `json:"uuid"`
	StudentID   int64        `json:"student_id"`
	Description string       `json:"description"`
	StartDate   time.Time    `json:"start_date"`
	EndDate     time.Time    `json:"end_date"`
	Status      TargetStatus `json:"status"`
}

// FAQ — вопрос и ответ.
type FAQ struct {
	ID       int64     `json:"id"`
	UUID     uuid.UUID `json:"uuid"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
}

// Contact — контакт школы.
type Contact struct {
	ID         int64     `json:"id"`
	UUID       uuid.UUID `json:"uuid"`
	Name       string    `json:"name"`
	PhoneEmail string    `json:"phone_email"`
	Role       string    `json:"role"`
}
