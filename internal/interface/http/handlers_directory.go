package http

import (
	"context"
	"net/http"

	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/students?grade_id=
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	errs := shared.FieldErrors{}
	gradeID := queryInt64(r, "grade_id", errs)
	if err := errs.Err("school", "ListStudents"); err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.deps.Directory.Students(r.Context(), gradeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetStudent handles GET /api/v1/students/{id}
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrStudentNotFound)
		return
	}
	st, err := s.deps.Directory.Student(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", st)
}

// handleCreateStudent handles POST /api/v1/students
func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := s.decodeJSON(r, "school", "CreateStudent", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.deps.DirectoryCommands.CreateStudent(r.Context(), req.student())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "Student created successfully", st)
}

// handleUpdateStudent handles PUT /api/v1/students/{id}
func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrStudentNotFound)
		return
	}
	var req updateStudentRequest
	if err := s.decodeJSON(r, "school", "UpdateStudent", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Directory.Student(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st := cur.Student
	req.apply(&st)
	updated, err := s.deps.DirectoryCommands.UpdateStudent(r.Context(), st)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Student updated successfully", updated)
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, shared.ErrStudentNotFound, s.deps.DirectoryCommands.DeleteStudent, "Student deleted successfully")
}

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListTeachers handles GET /api/v1/teachers
func (s *Server) handleListTeachers(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Directory.Teachers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetTeacher handles GET /api/v1/teachers/{id}
func (s *Server) handleGetTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrTeacherNotFound)
		return
	}
	t, err := s.deps.Directory.Teacher(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", t)
}

// handleCreateTeacher handles POST /api/v1/teachers
func (s *Server) handleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req createTeacherRequest
	if err := s.decodeJSON(r, "school", "CreateTeacher", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.DirectoryCommands.CreateTeacher(r.Context(), req.teacher())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "Teacher created successfully", t)
}

// handleUpdateTeacher handles PUT /api/v1/teachers/{id}
func (s *Server) handleUpdateTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrTeacherNotFound)
		return
	}
	var req updateTeacherRequest
	if err := s.decodeJSON(r, "school", "UpdateTeacher", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Directory.Teacher(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t := *cur
	req.apply(&t)
	updated, err := s.deps.DirectoryCommands.UpdateTeacher(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Teacher updated successfully", updated)
}

// handleDeleteTeacher handles DELETE /api/v1/teachers/{id}
func (s *Server) handleDeleteTeacher(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, shared.ErrTeacherNotFound, s.deps.DirectoryCommands.DeleteTeacher, "Teacher deleted successfully")
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListGrades handles GET /api/v1/grades
func (s *Server) handleListGrades(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Directory.Grades(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetGrade handles GET /api/v1/grades/{id}
func (s *Server) handleGetGrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrGradeNotFound)
		return
	}
	g, err := s.deps.Directory.Grade(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", g)
}

// handleCreateGrade handles POST /api/v1/grades
func (s *Server) handleCreateGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := s.decodeJSON(r, "school", "CreateGrade", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var g school.Grade
	applyGrade(&g, req.Name, req.HomeroomTeacherID)
	created, err := s.deps.DirectoryCommands.CreateGrade(r.Context(), g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "Grade created successfully", created)
}

// handleUpdateGrade handles PUT /api/v1/grades/{id}
func (s *Server) handleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrGradeNotFound)
		return
	}
	var req updateGradeRequest
	if err := s.decodeJSON(r, "school", "UpdateGrade", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Directory.Grade(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g := cur.Grade
	applyGrade(&g, req.Name, req.HomeroomTeacherID)
	updated, err := s.deps.DirectoryCommands.UpdateGrade(r.Context(), g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Grade updated successfully", updated)
}

// handleDeleteGrade handles DELETE /api/v1/grades/{id}
func (s *Server) handleDeleteGrade(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, shared.ErrGradeNotFound, s.deps.DirectoryCommands.DeleteGrade, "Grade deleted successfully")
}

// ══════════════════════════════════════════════════════════════════════════════
// TARGET HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListTargets handles GET /api/v1/targets
func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Directory.Targets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetTarget handles GET /api/v1/targets/{id}
func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrTargetNotFound)
		return
	}
	t, err := s.deps.Directory.Target(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", t)
}

// handleCreateTarget handles POST /api/v1/targets
func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if err := s.decodeJSON(r, "school", "CreateTarget", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.DirectoryCommands.CreateTarget(r.Context(), req.target())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "Target created successfully", t)
}

// handleUpdateTarget handles PUT /api/v1/targets/{id}
func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrTargetNotFound)
		return
	}
	var req updateTargetRequest
	if err := s.decodeJSON(r, "school", "UpdateTarget", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Directory.Target(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t := *cur
	req.apply(&t)
	updated, err := s.deps.DirectoryCommands.UpdateTarget(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Target updated successfully", updated)
}

// handleDeleteTarget handles DELETE /api/v1/targets/{id}
func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, shared.ErrTargetNotFound, s.deps.DirectoryCommands.DeleteTarget, "Target deleted successfully")
}

// ══════════════════════════════════════════════════════════════════════════════
// FAQ & CONTACT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListFAQs handles GET /api/v1/faqs
func (s *Server) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Directory.FAQs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetFAQ handles GET /api/v1/faqs/{id}
func (s *Server) handleGetFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrFAQNotFound)
		return
	}
	f, err := s.deps.Directory.FAQ(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", f)
}

// handleCreateFAQ handles POST /api/v1/faqs
func (s *Server) handleCreateFAQ(w http.ResponseWriter, r *http.Request) {
	var req faqRequest
	if err := s.decodeJSON(r, "school", "CreateFAQ", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.deps.DirectoryCommands.SaveFAQ(r.Context(), school.FAQ{Question: *req.Question, Answer: *req.Answer})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "FAQ created successfully", f)
}

// handleUpdateFAQ handles PUT /api/v1/faqs/{id}
func (s *Server) handleUpdateFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrFAQNotFound)
		return
	}
	var req updateFAQRequest
	if err := s.decodeJSON(r, "school", "UpdateFAQ", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Directory.FAQ(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f := *cur
	set(&f.Question, req.Question)
	set(&f.Answer, req.Answer)
	updated, err := s.deps.DirectoryCommands.SaveFAQ(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "FAQ updated successfully", updated)
}

// handleDeleteFAQ handles DELETE /api/v1/faqs/{id}
func (s *Server) handleDeleteFAQ(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, shared.ErrFAQNotFound, s.deps.DirectoryCommands.DeleteFAQ, "FAQ deleted successfully")
}

// handleListContacts handles GET /api/v1/contacts
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Directory.Contacts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetContact handles GET /api/v1/contacts/{id}
func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrContactNotFound)
		return
	}
	c, err := s.deps.Directory.Contact(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", c)
}

// handleCreateContact handles POST /api/v1/contacts
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := s.decodeJSON(r, "school", "CreateContact", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.deps.DirectoryCommands.SaveContact(r.Context(), school.Contact{Name: *req.Name, PhoneEmail: *req.PhoneEmail, Role: *req.Role})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "Contact created successfully", c)
}

// handleUpdateContact handles PUT /api/v1/contacts/{id}
func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrContactNotFound)
		return
	}
	var req updateContactRequest
	if err := s.decodeJSON(r, "school", "UpdateContact", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Directory.Contact(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c := *cur
	set(&c.Name, req.Name)
	set(&c.PhoneEmail, req.PhoneEmail)
	set(&c.Role, req.Role)
	updated, err := s.deps.DirectoryCommands.SaveContact(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Contact updated successfully", updated)
}

// handleDeleteContact handles DELETE /api/v1/contacts/{id}
func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, shared.ErrContactNotFound, s.deps.DirectoryCommands.DeleteContact, "Contact deleted successfully")
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// deleteByID parses {id}, runs del and answers with message.
func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, notFound error, del func(context.Context, int64) error, message string) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, notFound)
		return
	}
	if err := del(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, message, nil)
}
