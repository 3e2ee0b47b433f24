package http

import (
	"net/http"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleDashboardStats handles GET /api/v1/dashboard/stats
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Reports.DashboardStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Dashboard statistics retrieved successfully", stats)
}

// handleStudentDashboard handles GET /api/v1/dashboard/student/{id}
// Students may only open their own dashboard.
func (s *Server) handleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrStudentNotFound)
		return
	}
	if who := caller(r); who.Role == shared.RoleStudent {
		if err := s.ownsStudent(r, who, id); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	res, err := s.deps.Reports.StudentDashboard(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Student dashboard retrieved successfully", res)
}

// handleTeacherDashboard handles GET /api/v1/dashboard/teacher/{id}
// Teachers may only open their own dashboard.
func (s *Server) handleTeacherDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrTeacherNotFound)
		return
	}
	if who := caller(r); !who.IsAdministrator() {
		if err := s.ownsTeacher(r, who, id); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	res, err := s.deps.Reports.TeacherDashboard(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Teacher dashboard retrieved successfully", res)
}
