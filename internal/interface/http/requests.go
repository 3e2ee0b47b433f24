package http

import (
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// Create requests carry every required field. Update requests are partial:
// a missing field keeps its current value.
// ══════════════════════════════════════════════════════════════════════════════

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

type createStudentRequest struct {
	UserID      int64   `json:"user_id" validate:"required,gt=0"`
	Fullname    string  `json:"fullname" validate:"notblank,max=255"`
	GradeID     int64   `json:"grade_id" validate:"required,gt=0"`
	BirthDate   string  `json:"birth_date" validate:"required,date"`
	Address     string  `json:"address" validate:"notblank"`
	PhoneNumber *string `json:"phone_number" validate:"omitnil,max=255"`
	Image       *string `json:"image" validate:"omitnil,max=255"`
}

func (req createStudentRequest) student() school.Student {
	return school.Student{
		UserID:      req.UserID,
		Fullname:    req.Fullname,
		GradeID:     req.GradeID,
		BirthDate:   parseDate(req.BirthDate),
		Address:     req.Address,
		PhoneNumber: trimmed(req.PhoneNumber),
		Image:       trimmed(req.Image),
	}
}

type updateStudentRequest struct {
	UserID      *int64  `json:"user_id" validate:"omitnil,gt=0"`
	Fullname    *string `json:"fullname" validate:"omitnil,notblank,max=255"`
	GradeID     *int64  `json:"grade_id" validate:"omitnil,gt=0"`
	BirthDate   *string `json:"birth_date" validate:"omitnil,required,date"`
	Address     *string `json:"address" validate:"omitnil,notblank"`
	PhoneNumber *string `json:"phone_number" validate:"omitnil,max=255"`
	Image       *string `json:"image" validate:"omitnil,max=255"`
}

func (req updateStudentRequest) apply(s *school.Student) {
	set(&s.UserID, req.UserID)
	set(&s.Fullname, req.Fullname)
	set(&s.GradeID, req.GradeID)
	set(&s.Address, req.Address)
	if req.BirthDate != nil {
		s.BirthDate = parseDate(*req.BirthDate)
	}
	if req.PhoneNumber != nil {
		s.PhoneNumber = trimmed(req.PhoneNumber)
	}
	if req.Image != nil {
		s.Image = trimmed(req.Image)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Teachers
// ─────────────────────────────────────────────────────────────────────────────

type createTeacherRequest struct {
	UserID      int64   `json:"user_id" validate:"required,gt=0"`
	Fullname    string  `json:"fullname" validate:"notblank,max=255"`
	PhoneNumber string  `json:"phone_number" validate:"notblank,max=255"`
	Address     *string `json:"address" validate:"omitnil,max=255"`
	Subject     string  `json:"subject" validate:"notblank,max=255"`
	HireDate    string  `json:"hire_date" validate:"required,date"`
}

func (req createTeacherRequest) teacher() school.Teacher {
	return school.Teacher{
		UserID:      req.UserID,
		Fullname:    req.Fullname,
		PhoneNumber: req.PhoneNumber,
		Address:     trimmed(req.Address),
		Subject:     req.Subject,
		HireDate:    parseDate(req.HireDate),
	}
}

type updateTeacherRequest struct {
	UserID      *int64  `json:"user_id" validate:"omitnil,gt=0"`
	Fullname    *string `json:"fullname" validate:"omitnil,notblank,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitnil,notblank,max=255"`
	Address     *string `json:"address" validate:"omitnil,max=255"`
	Subject     *string `json:"subject" validate:"omitnil,notblank,max=255"`
	HireDate    *string `json:"hire_date" validate:"omitnil,required,date"`
}

func (req updateTeacherRequest) apply(t *school.Teacher) {
	set(&t.UserID, req.UserID)
	set(&t.Fullname, req.Fullname)
	set(&t.PhoneNumber, req.PhoneNumber)
	set(&t.Subject, req.Subject)
	if req.Address != nil {
		t.Address = trimmed(req.Address)
	}
	if req.HireDate != nil {
		t.HireDate = parseDate(*req.HireDate)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Grades
// ─────────────────────────────────────────────────────────────────────────────

type gradeRequest struct {
	Name *string `json:"name" validate:"required,notblank,max=255"`
	// HomeroomTeacherID 0 clears the homeroom teacher on update.
	HomeroomTeacherID *int64 `json:"homeroom_teacher_id" validate:"omitnil,gte=0"`
}

type updateGradeRequest struct {
	Name              *string `json:"name" validate:"omitnil,notblank,max=255"`
	HomeroomTeacherID *int64  `json:"homeroom_teacher_id" validate:"omitnil,gte=0"`
}

func applyGrade(g *school.Grade, name *string, homeroom *int64) {
	set(&g.Name, name)
	if homeroom != nil {
		if *homeroom == 0 {
			g.HomeroomTeacherID = nil
		} else {
			id := *homeroom
			g.HomeroomTeacherID = &id
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Targets
// ─────────────────────────────────────────────────────────────────────────────

type createTargetRequest struct {
	StudentID   int64  `json:"student_id" validate:"required,gt=0"`
	Description string `json:"description" validate:"notblank"`
	StartDate   string `json:"start_date" validate:"required,date"`
	EndDate     string `json:"end_date" validate:"required,date"`
	Status      string `json:"status" validate:"required,oneof=active completed cancelled"`
}

func (req createTargetRequest) target() school.Target {
	return school.Target{
		StudentID:   req.StudentID,
		Description: req.Description,
		StartDate:   parseDate(req.StartDate),
		EndDate:     parseDate(req.EndDate),
		Status:      school.TargetStatus(req.Status),
	}
}

type updateTargetRequest struct {
	StudentID   *int64  `json:"student_id" validate:"omitnil,gt=0"`
	Description *string `json:"description" validate:"omitnil,notblank"`
	StartDate   *string `json:"start_date" validate:"omitnil,required,date"`
	EndDate     *string `json:"end_date" validate:"omitnil,required,date"`
	Status      *string `json:"status" validate:"omitnil,oneof=active completed cancelled"`
}

func (req updateTargetRequest) apply(t *school.Target) {
	set(&t.StudentID, req.StudentID)
	set(&t.Description, req.Description)
	if req.StartDate != nil {
		t.StartDate = parseDate(*req.StartDate)
	}
	if req.EndDate != nil {
		t.EndDate = parseDate(*req.EndDate)
	}
	if req.Status != nil {
		t.Status = school.TargetStatus(*req.Status)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// FAQs & Contacts
// ─────────────────────────────────────────────────────────────────────────────

type faqRequest struct {
	Question *string `json:"question" validate:"required,notblank"`
	Answer   *string `json:"answer" validate:"required,notblank"`
}

type updateFAQRequest struct {
	Question *string `json:"question" validate:"omitnil,notblank"`
	Answer   *string `json:"answer" validate:"omitnil,notblank"`
}

type contactRequest struct {
	Name       *string `json:"name" validate:"required,notblank,max=255"`
	PhoneEmail *string `json:"phone_email" validate:"required,notblank,max=255"`
	Role       *string `json:"role" validate:"required,notblank,max=255"`
}

type updateContactRequest struct {
	Name       *string `json:"name" validate:"omitnil,notblank,max=255"`
	PhoneEmail *string `json:"phone_email" validate:"omitnil,notblank,max=255"`
	Role       *string `json:"role" validate:"omitnil,notblank,max=255"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Rules
// ─────────────────────────────────────────────────────────────────────────────

type createRuleRequest struct {
	Type        string  `json:"type" validate:"required,oneof=reward punishment"`
	Name        string  `json:"name" validate:"notblank,max=255"`
	Points      *int    `json:"points" validate:"required"`
	Description *string `json:"description"`
}

func (req createRuleRequest) rule() rule.Rule {
	return rule.Rule{
		Kind:        rule.Kind(req.Type),
		Name:        req.Name,
		Points:      *req.Points,
		Description: trimmed(req.Description),
	}
}

type updateRuleRequest struct {
	Type        *string `json:"type" validate:"omitnil,oneof=reward punishment"`
	Name        *string `json:"name" validate:"omitnil,notblank,max=255"`
	Points      *int    `json:"points"`
	Description *string `json:"description"`
}

func (req updateRuleRequest) apply(r *rule.Rule) {
	set(&r.Name, req.Name)
	set(&r.Points, req.Points)
	if req.Type != nil {
		r.Kind = rule.Kind(*req.Type)
	}
	if req.Description != nil {
		r.Description = trimmed(req.Description)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Discipline
// ─────────────────────────────────────────────────────────────────────────────

type createLogRequest struct {
	StudentID int64   `json:"student_id" validate:"required,gt=0"`
	RuleID    int64   `json:"rules_id" validate:"required,gt=0"`
	Date      string  `json:"date" validate:"required,date"`
	Remarks   *string `json:"remarks"`
}

type updateLogRequest struct {
	Remarks *string `json:"remarks"`
}

type executeRecordRequest struct {
	Status string  `json:"status" validate:"required,oneof=done cancelled"`
	Notes  *string `json:"notes" validate:"omitnil,max=1000"`
}

type rollbackRequest struct {
	Date string `json:"date" validate:"required,date"`
}

// set overwrites dst when src is present.
func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
