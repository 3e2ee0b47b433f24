package query

import (
	"context"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// StudentDTO is a student with its grade name.
type StudentDTO struct {
	school.Student
	Grade *string `json:"grade"`
}

// GradeDTO is a grade with its homeroom teacher and size.
type GradeDTO struct {
	school.Grade
	HomeroomTeacher *string `json:"homeroom_teacher"`
	StudentsCount   int     `json:"students_count"`
}

// DirectoryHandler serves directory and rule reads.
type DirectoryHandler struct {
	uow store.UnitOfWork
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(uow store.UnitOfWork) *DirectoryHandler {
	return &DirectoryHandler{uow: uow}
}

// Students lists students, optionally of one grade.
func (h *DirectoryHandler) Students(ctx context.Context, gradeID *int64) ([]StudentDTO, error) {
	repos := h.uow.Repos()
	list, err := repos.Students.List(ctx, school.StudentFilter{GradeID: gradeID})
	if err != nil {
		return nil, fail("school", "ListStudents", err)
	}
	names, err := gradeNames(ctx, repos.Grades)
	if err != nil {
		return nil, fail("school", "ListStudents", err)
	}
	out := make([]StudentDTO, 0, len(list))
	for _, s := range list {
		out = append(out, studentDTO(s, names))
	}
	return out, nil
}

// Student returns one student.
func (h *DirectoryHandler) Student(ctx context.Context, id int64) (*StudentDTO, error) {
	repos := h.uow.Repos()
	s, err := repos.Students.GetByID(ctx, id)
	if err != nil {
		return nil, fail("school", "GetStudent", err)
	}
	names, err := gradeNames(ctx, repos.Grades)
	if err != nil {
		return nil, fail("school", "GetStudent", err)
	}
	dto := studentDTO(s, names)
	return &dto, nil
}

func studentDTO(s school.Student, names map[int64]string) StudentDTO {
	dto := StudentDTO{Student: s}
	if n, ok := names[s.GradeID]; ok {
		dto.Grade = &n
	}
	return dto
}

// Teachers lists teachers.
func (h *DirectoryHandler) Teachers(ctx context.Context) ([]school.Teacher, error) {
	list, err := h.uow.Repos().Teachers.List(ctx)
	return list, failIf("school", "ListTeachers", err)
}

// Teacher returns one teacher.
func (h *DirectoryHandler) Teacher(ctx context.Context, id int64) (*school.Teacher, error) {
	t, err := h.uow.Repos().Teachers.GetByID(ctx, id)
	if err != nil {
		return nil, fail("school", "GetTeacher", err)
	}
	return &t, nil
}

// Grades lists grades with homeroom teacher names and student counts.
func (h *DirectoryHandler) Grades(ctx context.Context) ([]GradeDTO, error) {
	repos := h.uow.Repos()
	grades, err := repos.Grades.List(ctx)
	if err != nil {
		return nil, fail("school", "ListGrades", err)
	}
	teachers, err := repos.Teachers.List(ctx)
	if err != nil {
		return nil, fail("school", "ListGrades", err)
	}
	students, err := repos.Students.List(ctx, school.StudentFilter{})
	if err != nil {
		return nil, fail("school", "ListGrades", err)
	}

	names := make(map[int64]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.Fullname
	}
	counts := map[int64]int{}
	for _, s := range students {
		counts[s.GradeID]++
	}

	out := make([]GradeDTO, 0, len(grades))
	for _, g := range grades {
		dto := GradeDTO{Grade: g, StudentsCount: counts[g.ID]}
		if g.HomeroomTeacherID != nil {
			if n, ok := names[*g.HomeroomTeacherID]; ok {
				dto.HomeroomTeacher = &n
			}
		}
		out = append(out, dto)
	}
	return out, nil
}

// Grade returns one grade.
func (h *DirectoryHandler) Grade(ctx context.Context, id int64) (*GradeDTO, error) {
	repos := h.uow.Repos()
	g, err := repos.Grades.GetByID(ctx, id)
	if err != nil {
		return nil, fail("school", "GetGrade", err)
	}
	dto := GradeDTO{Grade: g}
	if g.HomeroomTeacherID != nil {
		t, err := repos.Teachers.GetByID(ctx, *g.HomeroomTeacherID)
		if err == nil {
			dto.HomeroomTeacher = &t.Fullname
		}
	}
	students, err := repos.Students.List(ctx, school.StudentFilter{GradeID: &g.ID})
	if err != nil {
		return nil, fail("school", "GetGrade", err)
	}
	dto.StudentsCount = len(students)
	return &dto, nil
}

// Targets lists student targets.
func (h *DirectoryHandler) Targets(ctx context.Context) ([]school.Target, error) {
	list, err := h.uow.Repos().Targets.List(ctx)
	return list, failIf("school", "ListTargets", err)
}

// Target returns one target.
func (h *DirectoryHandler) Target(ctx context.Context, id int64) (*school.Target, error) {
	t, err := h.uow.Repos().Targets.GetByID(ctx, id)
	if err != nil {
		return nil, fail("school", "GetTarget", err)
	}
	return &t, nil
}

// FAQs lists FAQs.
func (h *DirectoryHandler) FAQs(ctx context.Context) ([]school.FAQ, error) {
	list, err := h.uow.Repos().FAQs.List(ctx)
	return list, failIf("school", "ListFAQs", err)
}

// FAQ returns one FAQ.
func (h *DirectoryHandler) FAQ(ctx context.Context, id int64) (*school.FAQ, error) {
	f, err := h.uow.Repos().FAQs.GetByID(ctx, id)
	if err != nil {
		return nil, fail("school", "GetFAQ", err)
	}
	return &f, nil
}

// Contacts lists contacts.
func (h *DirectoryHandler) Contacts(ctx context.Context) ([]school.Contact, error) {
	list, err := h.uow.Repos().Contacts.List(ctx)
	return list, failIf("school", "ListContacts", err)
}

// Contact returns one contact.
func (h *DirectoryHandler) Contact(ctx context.Context, id int64) (*school.Contact, error) {
	c, err := h.uow.Repos().Contacts.GetByID(ctx, id)
	if err != nil {
		return nil, fail("school", "GetContact", err)
	}
	return &c, nil
}

// Rules lists point rules.
func (h *DirectoryHandler) Rules(ctx context.Context) ([]rule.Rule, error) {
	list, err := h.uow.Repos().Rules.List(ctx)
	return list, failIf("rule", "List", err)
}

// Rule returns one rule.
func (h *DirectoryHandler) Rule(ctx context.Context, id int64) (*rule.Rule, error) {
	r, err := h.uow.Repos().Rules.GetByID(ctx, id)
	if err != nil {
		return nil, fail("rule", "Get", err)
	}
	return &r, nil
}

func failIf(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	return fail(domain, op, err)
}
