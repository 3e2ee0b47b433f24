package http

import (
	"net/http"
	"strings"

	"github.com/sekolah-hub/attendance-hub/internal/application/command"
	"github.com/sekolah-hub/attendance-hub/internal/application/query"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListRecords handles GET /api/v1/reward-punishment-records
// A teacher sees the records assigned to them.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Discipline.TeacherRecords(r.Context(), caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleStudentsWithRecords handles GET /api/v1/reward-punishment-records/students/list
func (s *Server) handleStudentsWithRecords(w http.ResponseWriter, r *http.Request) {
	errs := shared.FieldErrors{}
	q := r.URL.Query()
	gradeID := queryInt64(r, "grade_id", errs)
	if err := errs.Err("discipline", "StudentsWithRecords"); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Discipline.StudentsWithRecords(r.Context(), query.StudentsWithRecordsQuery{
		Status:  strings.TrimSpace(q.Get("status")),
		Type:    strings.TrimSpace(q.Get("type")),
		Month:   strings.TrimSpace(q.Get("month")),
		GradeID: gradeID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Students with records retrieved successfully", res)
}

// handleGetRecord handles GET /api/v1/reward-punishment-records/{id}
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrRecordNotFound)
		return
	}
	rec, err := s.deps.Discipline.Record(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", rec)
}

type executeRecordResponse struct {
	Record        discipline.Record `json:"record"`
	LogMarkedDone bool              `json:"log_marked_done"`
	LedgerDelta   int               `json:"ledger_delta"`
}

// handleExecuteRecord handles PUT /api/v1/reward-punishment-records/{id}
func (s *Server) handleExecuteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrRecordNotFound)
		return
	}
	var req executeRecordRequest
	if err := s.decodeJSON(r, "discipline", "Execute", &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.ExecuteRecord.Handle(r.Context(), command.ExecuteRecordCommand{
		Identity: caller(r),
		RecordID: id,
		Decision: req.Status,
		Notes:    trimmed(req.Notes),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Record updated successfully", executeRecordResponse{
		Record:        res.Record,
		LogMarkedDone: res.LogMarkedDone,
		LedgerDelta:   res.LedgerDelta,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type logResponse struct {
	Log         discipline.Log `json:"log"`
	LedgerDelta int            `json:"ledger_delta"`
}

// handleListLogs handles GET /api/v1/reward-punishment-logs?student_id=&from=&to=
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	errs := shared.FieldErrors{}
	f := discipline.LogFilter{
		StudentID: queryInt64(r, "student_id", errs),
		From:      queryDate(r, "from", errs),
		To:        queryDate(r, "to", errs),
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		errs.Add("to", "The to must be a date after or equal to from.")
	}
	if err := errs.Err("discipline", "ListLogs"); err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.deps.Discipline.Logs(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "", list)
}

// handleGetLog handles GET /api/v1/reward-punishment-logs/{id}
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrLogNotFound)
		return
	}
	l, err := s.deps.Discipline.Log(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", l)
}

// handleCreateLog handles POST /api/v1/reward-punishment-logs
func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := s.decodeJSON(r, "discipline", "CreateLog", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Logs.Create(r.Context(), command.CreateLogCommand{
		Identity:  caller(r),
		StudentID: req.StudentID,
		RuleID:    req.RuleID,
		Date:      parseDate(req.Date),
		Remarks:   trimmed(req.Remarks),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, "Log created successfully", logResponse{Log: res.Log, LedgerDelta: res.LedgerDelta})
}

// handleUpdateLog handles PUT /api/v1/reward-punishment-logs/{id}
// Only the remarks can change.
func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrLogNotFound)
		return
	}
	var req updateLogRequest
	if err := s.decodeJSON(r, "discipline", "UpdateLog", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.deps.Logs.UpdateRemarks(r.Context(), command.UpdateLogCommand{LogID: id, Remarks: trimmed(req.Remarks)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Log updated successfully", l)
}

// handleDeleteLog handles DELETE /api/v1/reward-punishment-logs/{id}
func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrLogNotFound)
		return
	}
	res, err := s.deps.Logs.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Log deleted successfully", logResponse{Log: res.Log, LedgerDelta: res.LedgerDelta})
}
