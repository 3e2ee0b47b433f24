package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sekolah-hub/attendance-hub/internal/application/command"
	"github.com/sekolah-hub/attendance-hub/internal/application/query"
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// multipartMemory is how much of a submission is buffered in memory before
// the rest spills to temporary files.
const multipartMemory = 8 << 20

// handleListAttendance handles GET /api/v1/attendances?date=&status=&grade_id=
func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	errs := shared.FieldErrors{}
	q := r.URL.Query()
	if strings.TrimSpace(q.Get("date")) == "" {
		errs.Add("date", "The date field is required.")
	}
	date := queryDate(r, "date", errs)
	gradeID := queryInt64(r, "grade_id", errs)
	if err := errs.Err("attendance", "List"); err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.deps.Attendance.List(r.Context(), query.ListAttendanceQuery{
		Identity: caller(r),
		Date:     *date,
		Status:   strings.TrimSpace(q.Get("status")),
		GradeID:  gradeID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, "Attendance retrieved successfully", list)
}

// handleGetAttendance handles GET /api/v1/attendances/{id}
func (s *Server) handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, shared.ErrAttendanceNotFound)
		return
	}
	a, err := s.deps.Attendance.Get(r.Context(), caller(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "", a)
}

type submitAttendanceResponse struct {
	Attendance   attendance.Attendance   `json:"attendance"`
	Journal      attendance.JournalEntry `json:"journal"`
	Media        []attendance.MediaAsset `json:"media"`
	PointsEarned int                     `json:"points_earned"`
	LedgerDelta  int                     `json:"ledger_delta"`
	TotalPoints  *int                    `json:"total_points"`
}

// handleSubmitAttendance handles POST /api/v1/attendances (multipart/form-data)
func (s *Server) handleSubmitAttendance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		msg := "The request must be multipart/form-data."
		if errors.As(err, &tooBig) {
			msg = "The request body is too large."
		}
		s.writeError(w, r, submitError(msg))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var remarks *string
	if vals, ok := r.MultipartForm.Value["remarks"]; ok && len(vals) > 0 {
		remarks = trimmed(&vals[0])
	}

	uploads, err := readUploads(r.MultipartForm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.SubmitAttendance.Handle(r.Context(), command.SubmitAttendanceCommand{
		Identity: caller(r),
		Remarks:  remarks,
		Images:   uploads,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := submitAttendanceResponse{
		Attendance:   res.Attendance,
		Journal:      res.Journal,
		Media:        res.Media,
		PointsEarned: res.PointsEarned,
		LedgerDelta:  res.LedgerDelta,
	}
	if res.Ledger != nil {
		total := res.Ledger.TotalPoints
		resp.TotalPoints = &total
	}
	writeJSON(w, r, http.StatusCreated, "Attendance recorded successfully", resp)
}

// readUploads collects the "images" and "images[]" file parts.
func readUploads(form *multipart.Form) ([]attendance.Upload, error) {
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["images"]...)
	headers = append(headers, form.File["images[]"]...)

	uploads := make([]attendance.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, submitError("The images could not be read.")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, submitError("The images could not be read.")
		}
		uploads = append(uploads, attendance.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

// handleRollbackAttendance handles POST /api/v1/admin/attendances/rollback
func (s *Server) handleRollbackAttendance(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := s.decodeJSON(r, "attendance", "Rollback", &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.RollbackAttendance.Handle(r.Context(), parseDate(req.Date))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, "Attendance rolled back successfully", res)
}

func submitError(msg string) error {
	errs := shared.FieldErrors{}
	errs.Add("images", msg)
	return errs.Err("attendance", "Submit")
}
