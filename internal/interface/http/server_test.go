package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/application/command"
	"github.com/sekolah-hub/attendance-hub/internal/application/query"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/media"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/scheduler"
	"github.com/sekolah-hub/attendance-hub/internal/interface/http/handlers"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST ENVIRONMENT
// ══════════════════════════════════════════════════════════════════════════════

const (
	adminUser   = 1
	teacherUser = 200
	studentUser = 100
)

type testEnv struct {
	t       *testing.T
	store   *memory.Store
	clock   *timeutil.FixedClock
	tokens  *handlers.TokenService
	server  *Server
	teacher school.Teacher
	grade   school.Grade
	student school.Student
	rules   map[string]int64
}

// newTestEnv seeds a homeroom teacher, one grade, one student and the default
// rules. The clock starts at 2024-03-11 06:30 Jakarta.
func newTestEnv(t *testing.T, jobs JobRunner) *testEnv {
	t.Helper()
	ctx := context.Background()
	env := &testEnv{
		t:      t,
		store:  memory.New(),
		clock:  timeutil.NewFixedClock(jakarta(6, 30)),
		tokens: handlers.NewTokenService("test-secret", "attendance-hub", time.Hour),
		rules:  map[string]int64{},
	}
	repos := env.store.Repos()

	env.teacher = school.Teacher{UserID: teacherUser, Fullname: "Ibu Sari", PhoneNumber: "0812", Subject: "Math", HireDate: timeutil.Date(2020, 7, 1)}
	require.NoError(t, repos.Teachers.Create(ctx, &env.teacher))
	tid := env.teacher.ID
	env.grade = school.Grade{Name: "X-1", HomeroomTeacherID: &tid}
	require.NoError(t, repos.Grades.Create(ctx, &env.grade))
	env.student = school.Student{UserID: studentUser, Fullname: "Budi", GradeID: env.grade.ID, BirthDate: timeutil.Date(2008, 1, 2), Address: "Jl. Merdeka"}
	require.NoError(t, repos.Students.Create(ctx, &env.student))

	_, err := rule.Seed(ctx, repos.Rules)
	require.NoError(t, err)
	all, err := repos.Rules.List(ctx)
	require.NoError(t, err)
	for _, r := range all {
		env.rules[r.Name] = r.ID
	}

	dir := t.TempDir()
	files, err := media.NewLocalStore(media.Config{Dir: dir})
	require.NoError(t, err)

	outcome := command.NewOutcomeApplier(nil)
	deps := Dependencies{
		Tokens:             env.tokens,
		DirectoryCommands:  command.NewDirectoryHandler(env.store, env.clock, nil, nil),
		Rules:              command.NewRuleHandler(env.store, nil),
		Logs:               command.NewLogHandler(env.store, env.clock, nil, nil),
		ExecuteRecord:      command.NewExecuteRecordHandler(env.store, nil, env.clock, nil, nil),
		SubmitAttendance:   command.NewSubmitAttendanceHandler(env.store, files, outcome, env.clock, nil, command.DefaultSubmitAttendanceHandlerConfig(), nil),
		RollbackAttendance: command.NewRollbackAttendanceHandler(env.store, files, outcome, env.clock, nil, nil),
		Directory:          query.NewDirectoryHandler(env.store),
		Attendance:         query.NewAttendanceHandler(env.store, timeutil.JakartaTZ),
		Discipline:         query.NewDisciplineHandler(env.store),
		Reports:            query.NewReportHandler(env.store, nil, env.clock, query.ReportHandlerConfig{}, nil),
		Jobs:               jobs,
	}
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.MediaDir = dir
	env.server = NewServer(cfg, deps)
	return env
}

func jakarta(hour, minute int) time.Time {
	return time.Date(2024, 3, 11, hour, minute, 0, 0, timeutil.JakartaTZ)
}

func (e *testEnv) token(id shared.Identity) string {
	e.t.Helper()
	tok, _, err := e.tokens.Issue(id)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) adminToken() string {
	return e.token(shared.Identity{UserID: adminUser, Role: shared.RoleAdministrator, Name: "Admin"})
}

func (e *testEnv) teacherToken() string {
	tid := e.teacher.ID
	return e.token(shared.Identity{UserID: teacherUser, Role: shared.RoleTeacher, TeacherID: &tid})
}

func (e *testEnv) studentToken() string {
	sid := e.student.ID
	return e.token(shared.Identity{UserID: studentUser, Role: shared.RoleStudent, StudentID: &sid})
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
}

type response struct {
	Code int
	Body envelope
}

func (r response) into(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, dst))
}

func (e *testEnv) send(req *http.Request, token string) response {
	e.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var body envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return response{Code: rec.Code, Body: body}
}

func (e *testEnv) do(method, path, token string, body any) response {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

// submit posts a multipart attendance with one PNG selfie.
func (e *testEnv) submit(token, remarks string) response {
	e.t.Helper()
	var img bytes.Buffer
	require.NoError(e.t, imaging.Encode(&img, imaging.New(8, 8, color.NRGBA{G: 200, A: 255}), imaging.PNG))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if remarks != "" {
		require.NoError(e.t, mw.WriteField("remarks", remarks))
	}
	part, err := mw.CreateFormFile("images[]", "selfie.png")
	require.NoError(e.t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendances", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req, token)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

func TestAuth_RejectsMissingAndInvalidTokens(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(http.MethodGet, "/api/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	require.NotNil(t, res.Body.Error)
	assert.Equal(t, "unauthorized", res.Body.Error.Code)

	res = env.do(http.MethodGet, "/api/v1/students", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	other := handlers.NewTokenService("other-secret", "attendance-hub", time.Hour)
	forged, _, err := other.Issue(shared.Identity{UserID: adminUser, Role: shared.RoleAdministrator})
	require.NoError(t, err)
	res = env.do(http.MethodGet, "/api/v1/students", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuth_RoleGate(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(http.MethodPost, "/api/v1/grades", env.studentToken(), map[string]any{"name": "X-2"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	require.NotNil(t, res.Body.Error)
	assert.Equal(t, "forbidden", res.Body.Error.Code)

	dev := env.token(shared.Identity{UserID: 2, Role: shared.RoleDeveloper})
	res = env.do(http.MethodPost, "/api/v1/grades", dev, map[string]any{"name": "X-2"})
	assert.Equal(t, http.StatusCreated, res.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(http.MethodGet, "/api/v1/me", env.studentToken(), nil)
	require.Equal(t, http.StatusOK, res.Code)

	var me struct {
		UserID    int64  `json:"user_id"`
		Role      string `json:"role"`
		StudentID *int64 `json:"student_id"`
	}
	res.into(t, &me)
	assert.Equal(t, int64(studentUser), me.UserID)
	assert.Equal(t, "student", me.Role)
	require.NotNil(t, me.StudentID)
	assert.Equal(t, env.student.ID, *me.StudentID)
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

func TestStudents_CRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.adminToken()

	res := env.do(http.MethodPost, "/api/v1/students", admin, map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.NotNil(t, res.Body.Error)
	assert.Equal(t, "validation_failed", res.Body.Error.Code)
	for _, field := range []string{"user_id", "fullname", "grade_id", "birth_date", "address"} {
		assert.Contains(t, res.Body.Error.Details, field)
	}

	res = env.do(http.MethodPost, "/api/v1/students", admin, map[string]any{
		"user_id":    101,
		"fullname":   "Siti",
		"grade_id":   env.grade.ID,
		"birth_date": "2008-05-20",
		"address":    "Jl. Sudirman",
	})
	require.Equal(t, http.StatusCreated, res.Code)
	var created school.Student
	res.into(t, &created)
	assert.Positive(t, created.ID)
	assert.Equal(t, "Siti", created.Fullname)

	path := fmt.Sprintf("/api/v1/students/%d", created.ID)
	res = env.do(http.MethodPut, path, admin, map[string]any{"fullname": "Siti Aminah"})
	require.Equal(t, http.StatusOK, res.Code)
	var updated school.Student
	res.into(t, &updated)
	assert.Equal(t, "Siti Aminah", updated.Fullname)
	assert.Equal(t, "Jl. Sudirman", updated.Address)
	assert.True(t, timeutil.Date(2008, 5, 20).Equal(updated.BirthDate))

	res = env.do(http.MethodGet, "/api/v1/students?grade_id="+fmt.Sprint(env.grade.ID), env.teacherToken(), nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, res.Body.Meta.TotalCount)
	assert.Equal(t, 2, *res.Body.Meta.TotalCount)

	res = env.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = env.do(http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestStudents_BadQueryAndPath(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(http.MethodGet, "/api/v1/students?grade_id=abc", env.adminToken(), nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Body.Error.Details, "grade_id")

	res = env.do(http.MethodGet, "/api/v1/students/xyz", env.adminToken(), nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestMalformedJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faqs", bytes.NewBufferString("{"))
	res := env.send(req, env.adminToken())
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

func TestAttendance_SubmitListRollback(t *testing.T) {
	env := newTestEnv(t, nil)
	student := env.studentToken()

	res := env.submit(student, "on time")
	require.Equal(t, http.StatusCreated, res.Code)
	var sub struct {
		Attendance struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"attendance"`
		Media        []json.RawMessage `json:"media"`
		PointsEarned int               `json:"points_earned"`
		LedgerDelta  *int              `json:"ledger_delta"`
		TotalPoints  *int              `json:"total_points"`
	}
	res.into(t, &sub)
	assert.Equal(t, "present", sub.Attendance.Status)
	assert.Len(t, sub.Media, 1)
	assert.Equal(t, 5, sub.PointsEarned)
	require.NotNil(t, sub.LedgerDelta)
	assert.Equal(t, 5, *sub.LedgerDelta)
	require.NotNil(t, sub.TotalPoints)
	assert.Equal(t, 5, *sub.TotalPoints)

	res = env.submit(student, "")
	assert.Equal(t, http.StatusConflict, res.Code)

	res = env.do(http.MethodGet, "/api/v1/attendances?date=2024-03-11", env.adminToken(), nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, *res.Body.Meta.TotalCount)

	res = env.do(http.MethodGet, fmt.Sprintf("/api/v1/attendances/%d", sub.Attendance.ID), student, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodPost, "/api/v1/admin/attendances/rollback", env.adminToken(), map[string]string{"date": "2024-03-11"})
	require.Equal(t, http.StatusOK, res.Code)
	var rb command.RollbackAttendanceResult
	res.into(t, &rb)
	assert.Equal(t, 1, rb.Reverted)

	res = env.do(http.MethodGet, "/api/v1/attendances?date=2024-03-11", env.adminToken(), nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 0, *res.Body.Meta.TotalCount)
}

func TestAttendance_SubmitValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("remarks", "no photo"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendances", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res := env.send(req, env.studentToken())
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Body.Error.Details, "images")

	res = env.do(http.MethodPost, "/api/v1/attendances", env.studentToken(), map[string]string{"remarks": "json"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = env.do(http.MethodGet, "/api/v1/attendances", env.adminToken(), nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Body.Error.Details, "date")

	res = env.submit(env.teacherToken(), "")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// DISCIPLINE
// ══════════════════════════════════════════════════════════════════════════════

func TestRecords_LateSubmissionIsExecutedByHomeroomTeacher(t *testing.T) {
	env := newTestEnv(t, nil)
	env.clock.Set(jakarta(7, 15))
	require.Equal(t, http.StatusCreated, env.submit(env.studentToken(), "").Code)

	teacher := env.teacherToken()
	res := env.do(http.MethodGet, "/api/v1/reward-punishment-records", teacher, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var recs []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	res.into(t, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "pending", recs[0].Status)

	path := fmt.Sprintf("/api/v1/reward-punishment-records/%d", recs[0].ID)
	res = env.do(http.MethodPut, path, teacher, map[string]string{"status": "maybe"})
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Body.Error.Details, "status")

	res = env.do(http.MethodPut, path, env.studentToken(), map[string]string{"status": "done"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = env.do(http.MethodPut, path, teacher, map[string]string{"status": "done", "notes": "spoke with parents"})
	require.Equal(t, http.StatusOK, res.Code)
	var exec struct {
		Record struct {
			Status string `json:"status"`
		} `json:"record"`
		LogMarkedDone bool `json:"log_marked_done"`
	}
	res.into(t, &exec)
	assert.Equal(t, "done", exec.Record.Status)
	assert.True(t, exec.LogMarkedDone)

	res = env.do(http.MethodGet, "/api/v1/reward-punishment-records/students/list", env.adminToken(), nil)
	require.Equal(t, http.StatusOK, res.Code)
	var grouped query.StudentsWithRecordsResult
	res.into(t, &grouped)
	assert.Equal(t, 1, grouped.TotalStudents)
	assert.Equal(t, "done", grouped.Filters.Status)
}

func TestLogs_CreateAndDeleteAdjustLedger(t *testing.T) {
	env := newTestEnv(t, nil)
	teacher := env.teacherToken()
	good := env.rules["Good Behavior"]
	require.NotZero(t, good)

	res := env.do(http.MethodPost, "/api/v1/reward-punishment-logs", teacher, map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	for _, field := range []string{"student_id", "rules_id", "date"} {
		assert.Contains(t, res.Body.Error.Details, field)
	}

	res = env.do(http.MethodPost, "/api/v1/reward-punishment-logs", teacher, map[string]any{
		"student_id": env.student.ID,
		"rules_id":   good,
		"date":       "2024-03-11",
		"remarks":    "helped a classmate",
	})
	require.Equal(t, http.StatusCreated, res.Code)
	var created logResponse
	res.into(t, &created)
	assert.Equal(t, 10, created.LedgerDelta)

	res = env.do(http.MethodGet, "/api/v1/reward-punishment-logs?student_id="+fmt.Sprint(env.student.ID)+"&from=2024-03-01&to=2024-03-31", teacher, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, *res.Body.Meta.TotalCount)

	res = env.do(http.MethodGet, "/api/v1/reward-punishment-logs?from=2024-03-31&to=2024-03-01", teacher, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	path := fmt.Sprintf("/api/v1/reward-punishment-logs/%d", created.Log.ID)
	res = env.do(http.MethodDelete, path, env.adminToken(), nil)
	require.Equal(t, http.StatusOK, res.Code)
	var deleted logResponse
	res.into(t, &deleted)
	assert.Equal(t, -10, deleted.LedgerDelta)

	res = env.do(http.MethodGet, path, teacher, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARDS & REPORTS
// ══════════════════════════════════════════════════════════════════════════════

func TestDashboards_Ownership(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(http.MethodGet, fmt.Sprintf("/api/v1/dashboard/student/%d", env.student.ID), env.studentToken(), nil)
	assert.Equal(t, http.StatusOK, res.Code)

	other := env.token(shared.Identity{UserID: 999, Role: shared.RoleStudent})
	res = env.do(http.MethodGet, fmt.Sprintf("/api/v1/dashboard/student/%d", env.student.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = env.do(http.MethodGet, fmt.Sprintf("/api/v1/dashboard/teacher/%d", env.teacher.ID), env.teacherToken(), nil)
	assert.Equal(t, http.StatusOK, res.Code)

	stranger := env.token(shared.Identity{UserID: 555, Role: shared.RoleTeacher})
	res = env.do(http.MethodGet, fmt.Sprintf("/api/v1/dashboard/teacher/%d", env.teacher.ID), stranger, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = env.do(http.MethodGet, fmt.Sprintf("/api/v1/dashboard/teacher/%d", env.teacher.ID), env.adminToken(), nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodGet, "/api/v1/dashboard/stats", env.studentToken(), nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = env.do(http.MethodGet, "/api/v1/dashboard/stats", env.adminToken(), nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestMonthlyReport(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(http.MethodGet, "/api/v1/student-points/monthly-report?month=2024-13", env.adminToken(), nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Body.Error.Details, "month")

	res = env.do(http.MethodGet, "/api/v1/student-points/monthly-report?month=2024-03", env.teacherToken(), nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & JOBS
// ══════════════════════════════════════════════════════════════════════════════

type fakeJobs struct {
	ran []string
}

func (f *fakeJobs) ListJobs() []scheduler.JobInfo {
	return []scheduler.JobInfo{{Name: "close-attendance-day"}}
}

func (f *fakeJobs) History(int) []scheduler.JobResult { return nil }

func (f *fakeJobs) RunNow(_ context.Context, name string) (scheduler.JobResult, error) {
	if name != "close-attendance-day" {
		return scheduler.JobResult{}, scheduler.ErrJobNotFound
	}
	f.ran = append(f.ran, name)
	return scheduler.JobResult{JobName: name, Manual: true}, nil
}

func TestJobs(t *testing.T) {
	jobs := &fakeJobs{}
	env := newTestEnv(t, jobs)
	admin := env.adminToken()

	res := env.do(http.MethodGet, "/api/v1/admin/jobs", admin, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodPost, "/api/v1/admin/jobs/close-attendance-day/run", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, []string{"close-attendance-day"}, jobs.ran)

	res = env.do(http.MethodPost, "/api/v1/admin/jobs/nope/run", admin, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = env.do(http.MethodGet, "/api/v1/admin/jobs", env.teacherToken(), nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestJobs_Disabled(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.do(http.MethodGet, "/api/v1/admin/jobs", env.adminToken(), nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	res := env.do(http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/students", nil)
	req.Header.Set("Origin", "https://school.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
