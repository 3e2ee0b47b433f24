package http

import (
	"net/http"
	"strings"

	"github.com/sekolah-hub/attendance-hub/internal/application/query"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RULE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListRules handles GET /api/v1/reward-punishment-rules
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Directory.Rules(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetRule handles GET /api/v1/reward-punishment-rules/{id}
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrRuleNotFound)
		return
	}
	ru, err := s.deps.Directory.Rule(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", ru)
}

// handleCreateRule handles POST /api/v1/reward-punishment-rules
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := s.decodeJSON(r, "rule", "Create", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ru, err := s.deps.Rules.Create(r.Context(), req.rule())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "Rule created successfully", ru)
}

// handleUpdateRule handles PUT /api/v1/reward-punishment-rules/{id}
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrRuleNotFound)
		return
	}
	var req updateRuleRequest
	if err := s.decodeJSON(r, "rule", "Update", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Directory.Rule(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ru := *cur
	req.apply(&ru)
	updated, err := s.deps.Rules.Update(r.Context(), ru)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Rule updated successfully", updated)
}

// handleDeleteRule handles DELETE /api/v1/reward-punishment-rules/{id}
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, shared.ErrRuleNotFound, s.deps.Rules.Delete, "Rule deleted successfully")
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListLedger handles GET /api/v1/student-points
func (s *Server) handleListLedger(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Reports.Ledger(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetLedgerEntry handles GET /api/v1/student-points/{id}
// Students may only read their own entry.
func (s *Server) handleGetLedgerEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrLedgerEntryNotFound)
		return
	}
	entry, err := s.deps.Reports.LedgerEntry(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if who := caller(r); who.Role == shared.RoleStudent {
		if err := s.ownsStudent(r, who, entry.StudentID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, "", entry)
}

// handleMonthlyReport handles GET /api/v1/student-points/monthly-report?month=&grade_id=
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	errs := shared.FieldErrors{}
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	gradeID := queryInt64(r, "grade_id", errs)
	if err := errs.Err("ledger", "MonthlyReport"); err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.deps.Reports.MonthlyReport(r.Context(), query.MonthlyReportQuery{Month: month, GradeID: gradeID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Monthly report retrieved successfully", report)
}

// ownsStudent checks that a student caller is the given student.
func (s *Server) ownsStudent(r *http.Request, who shared.Identity, studentID int64) error {
	if who.StudentID != nil {
		if *who.StudentID == studentID {
			return nil
		}
		return shared.ErrRoleNotAllowed
	}
	st, err := s.deps.Directory.Student(r.Context(), studentID)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.ErrRoleNotAllowed
		}
		return err
	}
	if st.UserID != who.UserID {
		return shared.ErrRoleNotAllowed
	}
	return nil
}

// ownsTeacher checks that a teacher caller is the given teacher.
func (s *Server) ownsTeacher(r *http.Request, who shared.Identity, teacherID int64) error {
	if who.TeacherID != nil {
		if *who.TeacherID == teacherID {
			return nil
		}
		return shared.ErrRoleNotAllowed
	}
	t, err := s.deps.Directory.Teacher(r.Context(), teacherID)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.ErrRoleNotAllowed
		}
		return err
	}
	if t.UserID != who.UserID {
		return shared.ErrRoleNotAllowed
	}
	return nil
}
