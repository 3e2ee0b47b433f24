package postgres

import (
	"context"
	"fmt"

	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements school.StudentRepository.
type StudentRepository struct {
	q Querier
}

const studentColumns = `id, uuid, user_id, fullname, grade_id, birth_date, address, phone_number, image`

func scanStudent(row scanner) (school.Student, error) {
	var s school.Student
	err := row.Scan(&s.ID, &s.UUID, &s.UserID, &s.Fullname, &s.GradeID, &s.BirthDate, &s.Address, &s.PhoneNumber, &s.Image)
	return s, err
}

// Create inserts a student. A second profile for the same user is a conflict.
func (r *StudentRepository) Create(ctx context.Context, s *school.Student) error {
	s.UUID = newUUID(s.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO students (uuid, user_id, fullname, grade_id, birth_date, address, phone_number, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, s.UUID, s.UserID, s.Fullname, s.GradeID, s.BirthDate, s.Address, s.PhoneNumber, s.Image).Scan(&s.ID)
	return r.writeErr("create student", err)
}

// Update rewrites every column except uuid.
func (r *StudentRepository) Update(ctx context.Context, s *school.Student) error {
	err := r.q.QueryRow(ctx, `
		UPDATE students SET
			user_id = $1, fullname = $2, grade_id = $3, birth_date = $4,
			address = $5, phone_number = $6, image = $7
		WHERE id = $8
		RETURNING uuid
	`, s.UserID, s.Fullname, s.GradeID, s.BirthDate, s.Address, s.PhoneNumber, s.Image, s.ID).Scan(&s.UUID)
	if IsNoRows(err) {
		return shared.ErrStudentNotFound
	}
	return r.writeErr("update student", err)
}

func (r *StudentRepository) writeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return shared.ErrStudentProfileExists
	case IsForeignKeyViolation(err):
		return shared.ErrGradeNotFound
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// Delete removes a student; the schema cascades to its dependent rows.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete student", shared.ErrStudentNotFound, `DELETE FROM students WHERE id = $1`, id)
}

// GetByID returns a student or ErrStudentNotFound.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (school.Student, error) {
	return queryOne(ctx, r.q, scanStudent, shared.ErrStudentNotFound,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

// FindByUserID returns the student profile of a user.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID int64) (school.Student, bool, error) {
	return findOne(ctx, r.q, scanStudent, `SELECT `+studentColumns+` FROM students WHERE user_id = $1`, userID)
}

// List returns students ordered by id.
func (r *StudentRepository) List(ctx context.Context, f school.StudentFilter) ([]school.Student, error) {
	out, err := queryAll(ctx, r.q, scanStudent, `
		SELECT `+studentColumns+` FROM students
		WHERE ($1::bigint IS NULL OR grade_id = $1)
		ORDER BY id
	`, f.GradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return out, nil
}

// Count returns the number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.q, "students")
}

func count(ctx context.Context, q Querier, table string) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// TeacherRepository implements school.TeacherRepository.
type TeacherRepository struct {
	q Querier
}

const teacherColumns = `id, uuid, user_id, fullname, phone_number, address, subject, hire_date`

func scanTeacher(row scanner) (school.Teacher, error) {
	var t school.Teacher
	err := row.Scan(&t.ID, &t.UUID, &t.UserID, &t.Fullname, &t.PhoneNumber, &t.Address, &t.Subject, &t.HireDate)
	return t, err
}

// Create inserts a teacher. A second profile for the same user is a conflict.
func (r *TeacherRepository) Create(ctx context.Context, t *school.Teacher) error {
	t.UUID = newUUID(t.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO teachers (uuid, user_id, fullname, phone_number, address, subject, hire_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.UUID, t.UserID, t.Fullname, t.PhoneNumber, t.Address, t.Subject, t.HireDate).Scan(&t.ID)
	return teacherWriteErr("create teacher", err)
}

// Update rewrites every column except uuid.
func (r *TeacherRepository) Update(ctx context.Context, t *school.Teacher) error {
	err := r.q.QueryRow(ctx, `
		UPDATE teachers SET
			user_id = $1, fullname = $2, phone_number = $3, address = $4, subject = $5, hire_date = $6
		WHERE id = $7
		RETURNING uuid
	`, t.UserID, t.Fullname, t.PhoneNumber, t.Address, t.Subject, t.HireDate, t.ID).Scan(&t.UUID)
	if IsNoRows(err) {
		return shared.ErrTeacherNotFound
	}
	return teacherWriteErr("update teacher", err)
}

func teacherWriteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return shared.ErrTeacherProfileExists
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// Delete removes a teacher; homeroom grades lose their teacher.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete teacher", shared.ErrTeacherNotFound, `DELETE FROM teachers WHERE id = $1`, id)
}

// GetByID returns a teacher or ErrTeacherNotFound.
func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (school.Teacher, error) {
	return queryOne(ctx, r.q, scanTeacher, shared.ErrTeacherNotFound,
		`SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id)
}

// FindByUserID returns the teacher profile of a user.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID int64) (school.Teacher, bool, error) {
	return findOne(ctx, r.q, scanTeacher, `SELECT `+teacherColumns+` FROM teachers WHERE user_id = $1`, userID)
}

// List returns teachers ordered by id.
func (r *TeacherRepository) List(ctx context.Context) ([]school.Teacher, error) {
	out, err := queryAll(ctx, r.q, scanTeacher, `SELECT `+teacherColumns+` FROM teachers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	return out, nil
}

// Count returns the number of teachers.
func (r *TeacherRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.q, "teachers")
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// GradeRepository implements school.GradeRepository.
type GradeRepository struct {
	q Querier
}

const gradeColumns = `id, uuid, name, homeroom_teacher_id`

func scanGrade(row scanner) (school.Grade, error) {
	var g school.Grade
	err := row.Scan(&g.ID, &g.UUID, &g.Name, &g.HomeroomTeacherID)
	return g, err
}

var errGradeHasStudents = shared.NewDomainError("school", "DeleteGrade", shared.ErrConflict, "Grade still has students")

// Create inserts a grade. An unknown homeroom teacher is ErrTeacherNotFound.
func (r *GradeRepository) Create(ctx context.Context, g *school.Grade) error {
	g.UUID = newUUID(g.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO grades (uuid, name, homeroom_teacher_id) VALUES ($1, $2, $3) RETURNING id
	`, g.UUID, g.Name, g.HomeroomTeacherID).Scan(&g.ID)
	return gradeWriteErr("create grade", err)
}

// Update rewrites name and homeroom teacher.
func (r *GradeRepository) Update(ctx context.Context, g *school.Grade) error {
	err := r.q.QueryRow(ctx, `
		UPDATE grades SET name = $1, homeroom_teacher_id = $2 WHERE id = $3 RETURNING uuid
	`, g.Name, g.HomeroomTeacherID, g.ID).Scan(&g.UUID)
	if IsNoRows(err) {
		return shared.ErrGradeNotFound
	}
	return gradeWriteErr("update grade", err)
}

func gradeWriteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsForeignKeyViolation(err):
		return shared.ErrTeacherNotFound
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// Delete removes a grade. It is a conflict while students remain.
func (r *GradeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return errGradeHasStudents
		}
		return fmt.Errorf("failed to delete grade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrGradeNotFound
	}
	return nil
}

// GetByID returns a grade or ErrGradeNotFound.
func (r *GradeRepository) GetByID(ctx context.Context, id int64) (school.Grade, error) {
	return queryOne(ctx, r.q, scanGrade, shared.ErrGradeNotFound,
		`SELECT `+gradeColumns+` FROM grades WHERE id = $1`, id)
}

// List returns grades ordered by id.
func (r *GradeRepository) List(ctx context.Context) ([]school.Grade, error) {
	out, err := queryAll(ctx, r.q, scanGrade, `SELECT `+gradeColumns+` FROM grades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	return out, nil
}

// Count returns the number of grades.
func (r *GradeRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.q, "grades")
}

// ListByHomeroom returns the grades led by teacherID.
func (r *GradeRepository) ListByHomeroom(ctx context.Context, teacherID int64) ([]school.Grade, error) {
	out, err := queryAll(ctx, r.q, scanGrade,
		`SELECT `+gradeColumns+` FROM grades WHERE homeroom_teacher_id = $1 ORDER BY id`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list homeroom grades: %w", err)
	}
	return out, nil
}

// HomeroomTeacherOf returns the homeroom teacher of a student's grade.
func (r *GradeRepository) HomeroomTeacherOf(ctx context.Context, studentID int64) (int64, bool, error) {
	var id *int64
	err := r.q.QueryRow(ctx, `
		SELECT g.homeroom_teacher_id
		FROM students s JOIN grades g ON g.id = s.grade_id
		WHERE s.id = $1
	`, studentID).Scan(&id)
	if IsNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find homeroom teacher: %w", err)
	}
	if id == nil {
		return 0, false, nil
	}
	return *id, true, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TARGETS, FAQS, CONTACTS
// ══════════════════════════════════════════════════════════════════════════════

// TargetRepository implements school.TargetRepository.
type TargetRepository struct {
	q Querier
}

const targetColumns = `id, uuid, student_id, description, start_date, end_date, status`

func scanTarget(row scanner) (school.Target, error) {
	var t school.Target
	err := row.Scan(&t.ID, &t.UUID, &t.StudentID, &t.Description, &t.StartDate, &t.EndDate, &t.Status)
	return t, err
}

// Create inserts a target for an existing student.
func (r *TargetRepository) Create(ctx context.Context, t *school.Target) error {
	t.UUID = newUUID(t.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO targets (uuid, student_id, description, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, t.UUID, t.StudentID, t.Description, t.StartDate, t.EndDate, t.Status).Scan(&t.ID)
	return targetWriteErr("create target", err)
}

// Update rewrites every column except uuid.
func (r *TargetRepository) Update(ctx context.Context, t *school.Target) error {
	err := r.q.QueryRow(ctx, `
		UPDATE targets SET student_id = $1, description = $2, start_date = $3, end_date = $4, status = $5
		WHERE id = $6
		RETURNING uuid
	`, t.StudentID, t.Description, t.StartDate, t.EndDate, t.Status, t.ID).Scan(&t.UUID)
	if IsNoRows(err) {
		return shared.ErrTargetNotFound
	}
	return targetWriteErr("update target", err)
}

func targetWriteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsForeignKeyViolation(err):
		return shared.ErrStudentNotFound
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// Delete removes a target.
func (r *TargetRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete target", shared.ErrTargetNotFound, `DELETE FROM targets WHERE id = $1`, id)
}

// GetByID returns a target or ErrTargetNotFound.
func (r *TargetRepository) GetByID(ctx context.Context, id int64) (school.Target, error) {
	return queryOne(ctx, r.q, scanTarget, shared.ErrTargetNotFound,
		`SELECT `+targetColumns+` FROM targets WHERE id = $1`, id)
}

// List returns targets ordered by id.
func (r *TargetRepository) List(ctx context.Context) ([]school.Target, error) {
	out, err := queryAll(ctx, r.q, scanTarget, `SELECT `+targetColumns+` FROM targets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	return out, nil
}

// FAQRepository implements school.FAQRepository.
type FAQRepository struct {
	q Querier
}

func scanFAQ(row scanner) (school.FAQ, error) {
	var f school.FAQ
	err := row.Scan(&f.ID, &f.UUID, &f.Question, &f.Answer)
	return f, err
}

func (r *FAQRepository) Create(ctx context.Context, f *school.FAQ) error {
	f.UUID = newUUID(f.UUID)
	err := r.q.QueryRow(ctx, `INSERT INTO faqs (uuid, question, answer) VALUES ($1, $2, $3) RETURNING id`,
		f.UUID, f.Question, f.Answer).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to create faq: %w", err)
	}
	return nil
}

func (r *FAQRepository) Update(ctx context.Context, f *school.FAQ) error {
	err := r.q.QueryRow(ctx, `UPDATE faqs SET question = $1, answer = $2 WHERE id = $3 RETURNING uuid`,
		f.Question, f.Answer, f.ID).Scan(&f.UUID)
	if IsNoRows(err) {
		return shared.ErrFAQNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update faq: %w", err)
	}
	return nil
}

func (r *FAQRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete faq", shared.ErrFAQNotFound, `DELETE FROM faqs WHERE id = $1`, id)
}

func (r *FAQRepository) GetByID(ctx context.Context, id int64) (school.FAQ, error) {
	return queryOne(ctx, r.q, scanFAQ, shared.ErrFAQNotFound,
		`SELECT id, uuid, question, answer FROM faqs WHERE id = $1`, id)
}

func (r *FAQRepository) List(ctx context.Context) ([]school.FAQ, error) {
	out, err := queryAll(ctx, r.q, scanFAQ, `SELECT id, uuid, question, answer FROM faqs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list faqs: %w", err)
	}
	return out, nil
}

// ContactRepository implements school.ContactRepository.
type ContactRepository struct {
	q Querier
}

func scanContact(row scanner) (school.Contact, error) {
	var c school.Contact
	err := row.Scan(&c.ID, &c.UUID, &c.Name, &c.PhoneEmail, &c.Role)
	return c, err
}

func (r *ContactRepository) Create(ctx context.Context, c *school.Contact) error {
	c.UUID = newUUID(c.UUID)
	err := r.q.QueryRow(ctx, `INSERT INTO contacts (uuid, name, phone_email, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.UUID, c.Name, c.PhoneEmail, c.Role).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) Update(ctx context.Context, c *school.Contact) error {
	err := r.q.QueryRow(ctx, `UPDATE contacts SET name = $1, phone_email = $2, role = $3 WHERE id = $4 RETURNING uuid`,
		c.Name, c.PhoneEmail, c.Role, c.ID).Scan(&c.UUID)
	if IsNoRows(err) {
		return shared.ErrContactNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete contact", shared.ErrContactNotFound, `DELETE FROM contacts WHERE id = $1`, id)
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (school.Contact, error) {
	return queryOne(ctx, r.q, scanContact, shared.ErrContactNotFound,
		`SELECT id, uuid, name, phone_email, role FROM contacts WHERE id = $1`, id)
}

func (r *ContactRepository) List(ctx context.Context) ([]school.Contact, error) {
	out, err := queryAll(ctx, r.q, scanContact, `SELECT id, uuid, name, phone_email, role FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return out, nil
}
