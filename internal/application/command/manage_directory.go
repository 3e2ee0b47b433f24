package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY COMMANDS
// Students, teachers, grades, targets, FAQs and contacts. Request shape is
// validated at the transport layer; here we check references and the rules
// that need the store.
// ══════════════════════════════════════════════════════════════════════════════

// DirectoryHandler handles directory writes.
type DirectoryHandler struct {
	uow    store.UnitOfWork
	clock  timeutil.Clock
	events shared.EventPublisher
	logger *logger.Logger
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(uow store.UnitOfWork, clock timeutil.Clock, events shared.EventPublisher, log *logger.Logger) *DirectoryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &DirectoryHandler{uow: uow, clock: clock, events: events, logger: log.With(logger.Component("directory"))}
}

// changed publishes a directory event so cached reports are dropped.
func (h *DirectoryHandler) changed(entity, action string, id int64) {
	var rec shared.EventRecorder
	rec.Record(shared.DirectoryChangedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventDirectoryChanged, entity+":"+strconv.FormatInt(id, 10), h.clock.Now()),
		Entity:    entity,
		Action:    action,
	})
	publishAll(&rec, h.events, h.logger)
}

// ───────────────────────────────────────────────────────────────────────────────
// Students
// ───────────────────────────────────────────────────────────────────────────────

func validateStudent(ctx context.Context, repos store.Repositories, s *school.Student) error {
	errs := shared.FieldErrors{}
	s.Fullname = strings.TrimSpace(s.Fullname)
	s.Address = strings.TrimSpace(s.Address)
	if s.Fullname == "" {
		errs.Add("fullname", "The fullname field is required.")
	}
	if s.Address == "" {
		errs.Add("address", "The address field is required.")
	}
	if s.BirthDate.IsZero() {
		errs.Add("birth_date", "The birth date field is required.")
	}
	if _, err := repos.Grades.GetByID(ctx, s.GradeID); err != nil {
		if !shared.IsNotFound(err) {
			return err
		}
		errs.Add("grade_id", "The selected grade id is invalid.")
	}
	return errs.Err("school", "SaveStudent")
}

// CreateStudent creates a student profile. A user can hold only one.
func (h *DirectoryHandler) CreateStudent(ctx context.Context, s school.Student) (*school.Student, error) {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if err := validateStudent(ctx, repos, &s); err != nil {
			return err
		}
		if _, found, err := repos.Students.FindByUserID(ctx, s.UserID); err != nil {
			return err
		} else if found {
			return shared.ErrStudentProfileExists
		}
		return repos.Students.Create(ctx, &s)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "CreateStudent", err)
	}
	h.changed("student", "created", s.ID)
	return &s, nil
}

// UpdateStudent replaces a student's profile fields.
func (h *DirectoryHandler) UpdateStudent(ctx context.Context, s school.Student) (*school.Student, error) {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		cur, err := repos.Students.GetByID(ctx, s.ID)
		if err != nil {
			return err
		}
		if err := validateStudent(ctx, repos, &s); err != nil {
			return err
		}
		if s.UserID != cur.UserID {
			if _, found, err := repos.Students.FindByUserID(ctx, s.UserID); err != nil {
				return err
			} else if found {
				return shared.ErrStudentProfileExists
			}
		}
		s.UUID = cur.UUID
		return repos.Students.Update(ctx, &s)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "UpdateStudent", err)
	}
	h.changed("student", "updated", s.ID)
	return &s, nil
}

// DeleteStudent removes a student. Ledger, attendance and discipline rows go
// with it.
func (h *DirectoryHandler) DeleteStudent(ctx context.Context, id int64) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.Students.Delete(ctx, id)
	})
	if err != nil {
		return failure(h.logger, "school", "DeleteStudent", err)
	}
	h.changed("student", "deleted", id)
	return nil
}

// ───────────────────────────────────────────────────────────────────────────────
// Teachers
// ───────────────────────────────────────────────────────────────────────────────

func validateTeacher(t *school.Teacher) error {
	errs := shared.FieldErrors{}
	t.Fullname = strings.TrimSpace(t.Fullname)
	t.PhoneNumber = strings.TrimSpace(t.PhoneNumber)
	t.Subject = strings.TrimSpace(t.Subject)
	if t.Fullname == "" {
		errs.Add("fullname", "The fullname field is required.")
	}
	if t.PhoneNumber == "" {
		errs.Add("phone_number", "The phone number field is required.")
	}
	if t.Subject == "" {
		errs.Add("subject", "The subject field is required.")
	}
	if t.HireDate.IsZero() {
		errs.Add("hire_date", "The hire date field is required.")
	}
	return errs.Err("school", "SaveTeacher")
}

// CreateTeacher creates a teacher profile. A user can hold only one.
func (h *DirectoryHandler) CreateTeacher(ctx context.Context, t school.Teacher) (*school.Teacher, error) {
	if err := validateTeacher(&t); err != nil {
		return nil, err
	}
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, found, err := repos.Teachers.FindByUserID(ctx, t.UserID); err != nil {
			return err
		} else if found {
			return shared.ErrTeacherProfileExists
		}
		return repos.Teachers.Create(ctx, &t)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "CreateTeacher", err)
	}
	h.changed("teacher", "created", t.ID)
	return &t, nil
}

// UpdateTeacher replaces a teacher's profile fields.
func (h *DirectoryHandler) UpdateTeacher(ctx context.Context, t school.Teacher) (*school.Teacher, error) {
	if err := validateTeacher(&t); err != nil {
		return nil, err
	}
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		cur, err := repos.Teachers.GetByID(ctx, t.ID)
		if err != nil {
			return err
		}
		if t.UserID != cur.UserID {
			if _, found, err := repos.Teachers.FindByUserID(ctx, t.UserID); err != nil {
				return err
			} else if found {
				return shared.ErrTeacherProfileExists
			}
		}
		t.UUID = cur.UUID
		return repos.Teachers.Update(ctx, &t)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "UpdateTeacher", err)
	}
	h.changed("teacher", "updated", t.ID)
	return &t, nil
}

// DeleteTeacher removes a teacher. Grades they led lose their homeroom
// teacher.
func (h *DirectoryHandler) DeleteTeacher(ctx context.Context, id int64) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.Teachers.Delete(ctx, id)
	})
	if err != nil {
		return failure(h.logger, "school", "DeleteTeacher", err)
	}
	h.changed("teacher", "deleted", id)
	return nil
}

// ───────────────────────────────────────────────────────────────────────────────
// Grades
// ───────────────────────────────────────────────────────────────────────────────

func validateGrade(ctx context.Context, repos store.Repositories, g *school.Grade) error {
	errs := shared.FieldErrors{}
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		errs.Add("name", "The name field is required.")
	}
	if g.HomeroomTeacherID != nil {
		if _, err := repos.Teachers.GetByID(ctx, *g.HomeroomTeacherID); err != nil {
			if !shared.IsNotFound(err) {
				return err
			}
			errs.Add("homeroom_teacher_id", "The selected homeroom teacher id is invalid.")
		}
	}
	return errs.Err("school", "SaveGrade")
}

// CreateGrade creates a grade.
func (h *DirectoryHandler) CreateGrade(ctx context.Context, g school.Grade) (*school.Grade, error) {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if err := validateGrade(ctx, repos, &g); err != nil {
			return err
		}
		return repos.Grades.Create(ctx, &g)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "CreateGrade", err)
	}
	h.changed("grade", "created", g.ID)
	return &g, nil
}

// UpdateGrade renames a grade or changes its homeroom teacher.
func (h *DirectoryHandler) UpdateGrade(ctx context.Context, g school.Grade) (*school.Grade, error) {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		cur, err := repos.Grades.GetByID(ctx, g.ID)
		if err != nil {
			return err
		}
		if err := validateGrade(ctx, repos, &g); err != nil {
			return err
		}
		g.UUID = cur.UUID
		return repos.Grades.Update(ctx, &g)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "UpdateGrade", err)
	}
	h.changed("grade", "updated", g.ID)
	return &g, nil
}

// DeleteGrade removes a grade. It fails with a conflict while students
// are still assigned to it.
func (h *DirectoryHandler) DeleteGrade(ctx context.Context, id int64) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.Grades.Delete(ctx, id)
	})
	if err != nil {
		return failure(h.logger, "school", "DeleteGrade", err)
	}
	h.changed("grade", "deleted", id)
	return nil
}

// ───────────────────────────────────────────────────────────────────────────────
// Targets
// ───────────────────────────────────────────────────────────────────────────────

func validateTarget(ctx context.Context, repos store.Repositories, t *school.Target) error {
	errs := shared.FieldErrors{}
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" {
		errs.Add("description", "The description field is required.")
	}
	if t.StartDate.IsZero() {
		errs.Add("start_date", "The start date field is required.")
	}
	if t.EndDate.IsZero() {
		errs.Add("end_date", "The end date field is required.")
	} else if !t.StartDate.IsZero() && t.EndDate.Before(t.StartDate) {
		errs.Add("end_date", "The end date must be a date after or equal to start date.")
	}
	if t.Status == "" {
		t.Status = school.TargetActive
	}
	if !t.Status.IsValid() {
		errs.Add("status", "The selected status is invalid.")
	}
	if _, err := repos.Students.GetByID(ctx, t.StudentID); err != nil {
		if !shared.IsNotFound(err) {
			return err
		}
		errs.Add("student_id", "The selected student id is invalid.")
	}
	return errs.Err("school", "SaveTarget")
}

// CreateTarget creates a student target.
func (h *DirectoryHandler) CreateTarget(ctx context.Context, t school.Target) (*school.Target, error) {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if err := validateTarget(ctx, repos, &t); err != nil {
			return err
		}
		return repos.Targets.Create(ctx, &t)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "CreateTarget", err)
	}
	return &t, nil
}

// UpdateTarget replaces a target.
func (h *DirectoryHandler) UpdateTarget(ctx context.Context, t school.Target) (*school.Target, error) {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		cur, err := repos.Targets.GetByID(ctx, t.ID)
		if err != nil {
			return err
		}
		if err := validateTarget(ctx, repos, &t); err != nil {
			return err
		}
		t.UUID = cur.UUID
		return repos.Targets.Update(ctx, &t)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "UpdateTarget", err)
	}
	return &t, nil
}

// DeleteTarget removes a target.
func (h *DirectoryHandler) DeleteTarget(ctx context.Context, id int64) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.Targets.Delete(ctx, id)
	})
	return wrapDelete(h.logger, "DeleteTarget", err)
}

// ───────────────────────────────────────────────────────────────────────────────
// FAQs and contacts
// ───────────────────────────────────────────────────────────────────────────────

func required(errs shared.FieldErrors, field, label string, v *string) {
	*v = strings.TrimSpace(*v)
	if *v == "" {
		errs.Add(field, fmt.Sprintf("The %s field is required.", label))
	}
}

// SaveFAQ creates the FAQ when ID is zero, otherwise updates it.
func (h *DirectoryHandler) SaveFAQ(ctx context.Context, f school.FAQ) (*school.FAQ, error) {
	errs := shared.FieldErrors{}
	required(errs, "question", "question", &f.Question)
	required(errs, "answer", "answer", &f.Answer)
	if err := errs.Err("school", "SaveFAQ"); err != nil {
		return nil, err
	}
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if f.ID == 0 {
			return repos.FAQs.Create(ctx, &f)
		}
		cur, err := repos.FAQs.GetByID(ctx, f.ID)
		if err != nil {
			return err
		}
		f.UUID = cur.UUID
		return repos.FAQs.Update(ctx, &f)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "SaveFAQ", err)
	}
	return &f, nil
}

// DeleteFAQ removes an FAQ.
func (h *DirectoryHandler) DeleteFAQ(ctx context.Context, id int64) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.FAQs.Delete(ctx, id)
	})
	return wrapDelete(h.logger, "DeleteFAQ", err)
}

// SaveContact creates the contact when ID is zero, otherwise updates it.
func (h *DirectoryHandler) SaveContact(ctx context.Context, c school.Contact) (*school.Contact, error) {
	errs := shared.FieldErrors{}
	required(errs, "name", "name", &c.Name)
	required(errs, "phone_email", "phone email", &c.PhoneEmail)
	required(errs, "role", "role", &c.Role)
	if err := errs.Err("school", "SaveContact"); err != nil {
		return nil, err
	}
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		if c.ID == 0 {
			return repos.Contacts.Create(ctx, &c)
		}
		cur, err := repos.Contacts.GetByID(ctx, c.ID)
		if err != nil {
			return err
		}
		c.UUID = cur.UUID
		return repos.Contacts.Update(ctx, &c)
	})
	if err != nil {
		return nil, failure(h.logger, "school", "SaveContact", err)
	}
	return &c, nil
}

// DeleteContact removes a contact.
func (h *DirectoryHandler) DeleteContact(ctx context.Context, id int64) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.Contacts.Delete(ctx, id)
	})
	return wrapDelete(h.logger, "DeleteContact", err)
}

func wrapDelete(log *logger.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	return failure(log, "school", op, err)
}
