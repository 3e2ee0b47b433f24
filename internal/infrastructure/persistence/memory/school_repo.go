package memory

import (
	"context"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

type studentRepo struct{ ss *session }

func (r *studentRepo) Create(_ context.Context, s *school.Student) error {
	return r.ss.write(func(st *state) error {
		for _, existing := range st.students.rows {
			if existing.UserID == s.UserID {
				return shared.ErrStudentProfileExists
			}
		}
		if _, ok := st.grades.rows[s.GradeID]; !ok {
			return shared.ErrGradeNotFound
		}
		s.ID = st.students.nextID()
		s.UUID = newUUID()
		st.students.rows[s.ID] = *s
		return nil
	})
}

func (r *studentRepo) Update(_ context.Context, s *school.Student) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.students.rows[s.ID]
		if !ok {
			return shared.ErrStudentNotFound
		}
		for id, existing := range st.students.rows {
			if id != s.ID && existing.UserID == s.UserID {
				return shared.ErrStudentProfileExists
			}
		}
		s.UUID = cur.UUID
		st.students.rows[s.ID] = *s
		return nil
	})
}

func (r *studentRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.students.rows[id]; !ok {
			return shared.ErrStudentNotFound
		}
		delete(st.students.rows, id)
		cascadeStudent(st, id)
		return nil
	})
}

func (r *studentRepo) GetByID(_ context.Context, id int64) (out school.Student, err error) {
	err = r.ss.run(func(st *state) error {
		s, ok := st.students.rows[id]
		if !ok {
			return shared.ErrStudentNotFound
		}
		out = s
		return nil
	})
	return out, err
}

func (r *studentRepo) FindByUserID(_ context.Context, userID int64) (out school.Student, found bool, err error) {
	err = r.ss.run(func(st *state) error {
		for _, s := range st.students.ordered() {
			if s.UserID == userID {
				out, found = s, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *studentRepo) List(_ context.Context, f school.StudentFilter) (out []school.Student, err error) {
	err = r.ss.run(func(st *state) error {
		for _, s := range st.students.ordered() {
			if f.GradeID != nil && s.GradeID != *f.GradeID {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

func (r *studentRepo) Count(_ context.Context) (n int, err error) {
	err = r.ss.run(func(st *state) error {
		n = len(st.students.rows)
		return nil
	})
	return n, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Teachers
// ─────────────────────────────────────────────────────────────────────────────

type teacherRepo struct{ ss *session }

func (r *teacherRepo) Create(_ context.Context, t *school.Teacher) error {
	return r.ss.write(func(st *state) error {
		for _, existing := range st.teachers.rows {
			if existing.UserID == t.UserID {
				return shared.ErrTeacherProfileExists
			}
		}
		t.ID = st.teachers.nextID()
		t.UUID = newUUID()
		st.teachers.rows[t.ID] = *t
		return nil
	})
}

func (r *teacherRepo) Update(_ context.Context, t *school.Teacher) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.teachers.rows[t.ID]
		if !ok {
			return shared.ErrTeacherNotFound
		}
		for id, existing := range st.teachers.rows {
			if id != t.ID && existing.UserID == t.UserID {
				return shared.ErrTeacherProfileExists
			}
		}
		t.UUID = cur.UUID
		st.teachers.rows[t.ID] = *t
		return nil
	})
}

func (r *teacherRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.teachers.rows[id]; !ok {
			return shared.ErrTeacherNotFound
		}
		delete(st.teachers.rows, id)
		// ON DELETE SET NULL on grades.homeroom_teacher_id
		for gid, g := range st.grades.rows {
			if g.HomeroomTeacherID != nil && *g.HomeroomTeacherID == id {
				g.HomeroomTeacherID = nil
				st.grades.rows[gid] = g
			}
		}
		return nil
	})
}

func (r *teacherRepo) GetByID(_ context.Context, id int64) (out school.Teacher, err error) {
	err = r.ss.run(func(st *state) error {
		t, ok := st.teachers.rows[id]
		if !ok {
			return shared.ErrTeacherNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (r *teacherRepo) FindByUserID(_ context.Context, userID int64) (out school.Teacher, found bool, err error) {
	err = r.ss.run(func(st *state) error {
		for _, t := range st.teachers.ordered() {
			if t.UserID == userID {
				out, found = t, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *teacherRepo) List(_ context.Context) (out []school.Teacher, err error) {
	err = r.ss.run(func(st *state) error {
		out = st.teachers.ordered()
		return nil
	})
	return out, err
}

func (r *teacherRepo) Count(_ context.Context) (n int, err error) {
	err = r.ss.run(func(st *state) error {
		n = len(st.teachers.rows)
		return nil
	})
	return n, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Grades
// ─────────────────────────────────────────────────────────────────────────────

type gradeRepo struct{ ss *session }

func (r *gradeRepo) checkHomeroom(st *state, g *school.Grade) error {
	if g.HomeroomTeacherID == nil {
		return nil
	}
	if _, ok := st.teachers.rows[*g.HomeroomTeacherID]; !ok {
		return shared.ErrTeacherNotFound
	}
	return nil
}

func (r *gradeRepo) Create(_ context.Context, g *school.Grade) error {
	return r.ss.write(func(st *state) error {
		if err := r.checkHomeroom(st, g); err != nil {
			return err
		}
		g.ID = st.grades.nextID()
		g.UUID = newUUID()
		st.grades.rows[g.ID] = *g
		return nil
	})
}

func (r *gradeRepo) Update(_ context.Context, g *school.Grade) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.grades.rows[g.ID]
		if !ok {
			return shared.ErrGradeNotFound
		}
		if err := r.checkHomeroom(st, g); err != nil {
			return err
		}
		g.UUID = cur.UUID
		st.grades.rows[g.ID] = *g
		return nil
	})
}

func (r *gradeRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.grades.rows[id]; !ok {
			return shared.ErrGradeNotFound
		}
		for _, s := range st.students.rows {
			if s.GradeID == id {
				return shared.NewDomainError("school", "DeleteGrade", shared.ErrConflict, "Grade still has students")
			}
		}
		delete(st.grades.rows, id)
		return nil
	})
}

func (r *gradeRepo) GetByID(_ context.Context, id int64) (out school.Grade, err error) {
	err = r.ss.run(func(st *state) error {
		g, ok := st.grades.rows[id]
		if !ok {
			return shared.ErrGradeNotFound
		}
		out = g
		return nil
	})
	return out, err
}

func (r *gradeRepo) List(_ context.Context) (out []school.Grade, err error) {
	err = r.ss.run(func(st *state) error {
		out = st.grades.ordered()
		return nil
	})
	return out, err
}

func (r *gradeRepo) Count(_ context.Context) (n int, err error) {
	err = r.ss.run(func(st *state) error {
		n = len(st.grades.rows)
		return nil
	})
	return n, err
}

func (r *gradeRepo) ListByHomeroom(_ context.Context, teacherID int64) (out []school.Grade, err error) {
	err = r.ss.run(func(st *state) error {
		for _, g := range st.grades.ordered() {
			if g.HomeroomTeacherID != nil && *g.HomeroomTeacherID == teacherID {
				out = append(out, g)
			}
		}
		return nil
	})
	return out, err
}

func (r *gradeRepo) HomeroomTeacherOf(_ context.Context, studentID int64) (teacherID int64, found bool, err error) {
	err = r.ss.run(func(st *state) error {
		s, ok := st.students.rows[studentID]
		if !ok {
			return nil
		}
		g, ok := st.grades.rows[s.GradeID]
		if !ok || g.HomeroomTeacherID == nil {
			return nil
		}
		teacherID, found = *g.HomeroomTeacherID, true
		return nil
	})
	return teacherID, found, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Targets, FAQs, Contacts
// ─────────────────────────────────────────────────────────────────────────────

type targetRepo struct{ ss *session }

func (r *targetRepo) Create(_ context.Context, t *school.Target) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.students.rows[t.StudentID]; !ok {
			return shared.ErrStudentNotFound
		}
		t.ID = st.targets.nextID()
		t.UUID = newUUID()
		st.targets.rows[t.ID] = *t
		return nil
	})
}

func (r *targetRepo) Update(_ context.Context, t *school.Target) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.targets.rows[t.ID]
		if !ok {
			return shared.ErrTargetNotFound
		}
		t.UUID = cur.UUID
		st.targets.rows[t.ID] = *t
		return nil
	})
}

func (r *targetRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.targets.rows[id]; !ok {
			return shared.ErrTargetNotFound
		}
		delete(st.targets.rows, id)
		return nil
	})
}

func (r *targetRepo) GetByID(_ context.Context, id int64) (out school.Target, err error) {
	err = r.ss.run(func(st *state) error {
		t, ok := st.targets.rows[id]
		if !ok {
			return shared.ErrTargetNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (r *targetRepo) List(_ context.Context) (out []school.Target, err error) {
	err = r.ss.run(func(st *state) error {
		out = st.targets.ordered()
		return nil
	})
	return out, err
}

type faqRepo struct{ ss *session }

func (r *faqRepo) Create(_ context.Context, f *school.FAQ) error {
	return r.ss.write(func(st *state) error {
		f.ID = st.faqs.nextID()
		f.UUID = newUUID()
		st.faqs.rows[f.ID] = *f
		return nil
	})
}

func (r *faqRepo) Update(_ context.Context, f *school.FAQ) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.faqs.rows[f.ID]
		if !ok {
			return shared.ErrFAQNotFound
		}
		f.UUID = cur.UUID
		st.faqs.rows[f.ID] = *f
		return nil
	})
}

func (r *faqRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.faqs.rows[id]; !ok {
			return shared.ErrFAQNotFound
		}
		delete(st.faqs.rows, id)
		return nil
	})
}

func (r *faqRepo) GetByID(_ context.Context, id int64) (out school.FAQ, err error) {
	err = r.ss.run(func(st *state) error {
		f, ok := st.faqs.rows[id]
		if !ok {
			return shared.ErrFAQNotFound
		}
		out = f
		return nil
	})
	return out, err
}

func (r *faqRepo) List(_ context.Context) (out []school.FAQ, err error) {
	err = r.ss.run(func(st *state) error {
		out = st.faqs.ordered()
		return nil
	})
	return out, err
}

type contactRepo struct{ ss *session }

func (r *contactRepo) Create(_ context.Context, c *school.Contact) error {
	return r.ss.write(func(st *state) error {
		c.ID = st.contacts.nextID()
		c.UUID = newUUID()
		st.contacts.rows[c.ID] = *c
		return nil
	})
}

func (r *contactRepo) Update(_ context.Context, c *school.Contact) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.contacts.rows[c.ID]
		if !ok {
			return shared.ErrContactNotFound
		}
		c.UUID = cur.UUID
		st.contacts.rows[c.ID] = *c
		return nil
	})
}

func (r *contactRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.contacts.rows[id]; !ok {
			return shared.ErrContactNotFound
		}
		delete(st.contacts.rows, id)
		return nil
	})
}

func (r *contactRepo) GetByID(_ context.Context, id int64) (out school.Contact, err error) {
	err = r.ss.run(func(st *state) error {
		c, ok := st.contacts.rows[id]
		if !ok {
			return shared.ErrContactNotFound
		}
		out = c
		return nil
	})
	return out, err
}

func (r *contactRepo) List(_ context.Context) (out []school.Contact, err error) {
	err = r.ss.run(func(st *state) error {
		out = st.contacts.ordered()
		return nil
	})
	return out, err
}

// cascadeStudent mirrors ON DELETE CASCADE on every table keyed by student_id.
func cascadeStudent(st *state, id int64) {
	deleteWhere(&st.ledger, func(e ledger.Entry) bool { return e.StudentID == id })
	deleteWhere(&st.targets, func(t school.Target) bool { return t.StudentID == id })
	deleteWhere(&st.logs, func(l discipline.Log) bool { return l.StudentID == id })
	deleteWhere(&st.records, func(r discipline.Record) bool { return r.StudentID == id })
	gone := map[int64]bool{}
	deleteWhere(&st.attendance, func(a attendance.Attendance) bool {
		if a.StudentID != nil && *a.StudentID == id {
			gone[a.ID] = true
			return true
		}
		return false
	})
	deleteWhere(&st.journal, func(j attendance.JournalEntry) bool { return gone[j.AttendanceID] })
	deleteWhere(&st.media, func(m attendance.MediaAsset) bool { return gone[m.AttendanceID] })
}

func deleteWhere[T any](t *table[T], match func(T) bool) {
	for id, row := range t.rows {
		if match(row) {
			delete(t.rows, id)
		}
	}
}
