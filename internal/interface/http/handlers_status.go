package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/scheduler"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, "", map[string]any{
		"name":    "Attendance Hub API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"attendances": "/api/v1/attendances",
			"dashboard":   "/api/v1/dashboard/stats",
		},
	})
}

// handleHealth runs every registered check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, r, http.StatusOK, "", map[string]any{
			"healthy": true,
			"uptime":  s.Uptime().String(),
		})
		return
	}
	status := s.deps.Health.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeEnvelope(w, r, code, JSONResponse{Success: status.Healthy, Data: status})
}

// handleReady reports whether dependencies are reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if status := s.deps.Health.Check(r.Context()); !status.Healthy {
			writeJSONError(w, r, http.StatusServiceUnavailable, "not_ready", status.Message, nil)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, "", map[string]string{"status": "ready"})
}

// handleLive answers as long as the process serves requests.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, "", map[string]string{"status": "alive"})
}

// handleMe handles GET /api/v1/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	writeJSON(w, r, http.StatusOK, "", map[string]any{
		"user_id":    id.UserID,
		"role":       id.Role,
		"name":       id.Name,
		"student_id": id.StudentID,
		"teacher_id": id.TeacherID,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListJobs handles GET /api/v1/admin/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.writeError(w, r, errJobsDisabled)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("history"))
	if limit <= 0 {
		limit = 20
	}
	writeJSON(w, r, http.StatusOK, "", map[string]any{
		"jobs":    s.deps.Jobs.ListJobs(),
		"history": jobHistory(s.deps.Jobs.History(limit)),
	})
}

// handleRunJob handles POST /api/v1/admin/jobs/{name}/run
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.writeError(w, r, errJobsDisabled)
		return
	}
	res, err := s.deps.Jobs.RunNow(r.Context(), r.PathValue("name"))
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		s.writeError(w, r, shared.WrapError("scheduler", "RunNow", shared.ErrNotFound, "Job not found", err))
		return
	case errors.Is(err, scheduler.ErrJobRunning):
		s.writeError(w, r, shared.WrapError("scheduler", "RunNow", shared.ErrConflict, "Job is already running", err))
		return
	}
	writeJSON(w, r, http.StatusOK, "Job finished", jobRun(res))
}

var errJobsDisabled = shared.NewDomainError("scheduler", "List", shared.ErrNotFound, "Background jobs are disabled")

type jobRunDTO struct {
	scheduler.JobResult
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func jobRun(res scheduler.JobResult) jobRunDTO {
	dto := jobRunDTO{JobResult: res, Success: res.Success()}
	if res.Error != nil {
		dto.Error = res.Error.Error()
	}
	return dto
}

func jobHistory(results []scheduler.JobResult) []jobRunDTO {
	out := make([]jobRunDTO, 0, len(results))
	for _, res := range results {
		out = append(out, jobRun(res))
	}
	return out
}
