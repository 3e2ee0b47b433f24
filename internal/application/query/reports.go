package query

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORTING AGGREGATOR
// Monthly discipline report, school dashboard, student and teacher
// dashboards. Results are cached under ReportCachePrefix and dropped on any
// domain event by the cache invalidation subscriber.
// ══════════════════════════════════════════════════════════════════════════════

const (
	trendDays         = 7
	teacherTrendMonth = 6
	maxAbsentListed   = 10
	streakLookback    = 366
)

// ReportHandlerConfig holds report settings.
type ReportHandlerConfig struct {
	CacheTTL time.Duration
	Location *time.Location
}

// ReportHandler builds reports.
type ReportHandler struct {
	uow    store.UnitOfWork
	cache  ReportCache
	clock  timeutil.Clock
	config ReportHandlerConfig
	logger *logger.Logger
}

// NewReportHandler creates a new ReportHandler. A nil cache disables caching.
func NewReportHandler(uow store.UnitOfWork, cache ReportCache, clock timeutil.Clock, config ReportHandlerConfig, log *logger.Logger) *ReportHandler {
	if config.Location == nil {
		config.Location = timeutil.JakartaTZ
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if cache == nil {
		cache = NopCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReportHandler{uow: uow, cache: cache, clock: clock, config: config, logger: log.With(logger.Component("reports"))}
}

func (h *ReportHandler) today() time.Time {
	return timeutil.Today(h.clock, h.config.Location)
}

// ───────────────────────────────────────────────────────────────────────────────
// Ledger
// ───────────────────────────────────────────────────────────────────────────────

// LedgerEntryDTO is a ledger row with its student and level.
type LedgerEntryDTO struct {
	ledger.Entry
	DisciplineLevel ledger.DisciplineLevel `json:"discipline_level"`
	Student         *StudentRef            `json:"student"`
}

// Ledger lists every ledger row, highest total first.
func (h *ReportHandler) Ledger(ctx context.Context) ([]LedgerEntryDTO, error) {
	repos := h.uow.Repos()
	entries, err := repos.Ledger.List(ctx)
	if err != nil {
		return nil, fail("ledger", "List", err)
	}
	students, names, err := h.studentIndex(ctx, repos, nil)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerDTO(e, students, names))
	}
	return out, nil
}

// LedgerEntry returns one ledger row by its id.
func (h *ReportHandler) LedgerEntry(ctx context.Context, id int64) (*LedgerEntryDTO, error) {
	repos := h.uow.Repos()
	e, err := repos.Ledger.GetByID(ctx, id)
	if err != nil {
		return nil, fail("ledger", "Get", err)
	}
	students, names, err := h.studentIndex(ctx, repos, nil)
	if err != nil {
		return nil, err
	}
	dto := ledgerDTO(e, students, names)
	return &dto, nil
}

func ledgerDTO(e ledger.Entry, students map[int64]school.Student, names map[int64]string) LedgerEntryDTO {
	dto := LedgerEntryDTO{Entry: e, DisciplineLevel: e.Level()}
	if s, ok := students[e.StudentID]; ok {
		ref := studentRef(s, names)
		dto.Student = &ref
	}
	return dto
}

// ───────────────────────────────────────────────────────────────────────────────
// Monthly report
// ───────────────────────────────────────────────────────────────────────────────

// MonthlyReportQuery selects the month and, optionally, a grade.
type MonthlyReportQuery struct {
	Month   string
	GradeID *int64
}

// StudentMonthDTO is one student's month.
type StudentMonthDTO struct {
	Student             StudentRef             `json:"student"`
	TotalPoints         int                    `json:"total_points"`
	DisciplineLevel     ledger.DisciplineLevel `json:"discipline_level"`
	LogsCount           int                    `json:"logs_count"`
	ExecutedPunishments int                    `json:"executed_punishments"`
	ExecutedRewards     int                    `json:"executed_rewards"`
	Logs                []discipline.Log       `json:"logs"`
	ExecutedRecords     []discipline.Record    `json:"executed_records"`
}

// MonthlyReportResult is the monthly report.
type MonthlyReportResult struct {
	Month   string            `json:"month"`
	GradeID *int64            `json:"grade_id"`
	Reports []StudentMonthDTO `json:"reports"`
}

// MonthlyReport reports every ledger row of the month's students.
func (h *ReportHandler) MonthlyReport(ctx context.Context, q MonthlyReportQuery) (*MonthlyReportResult, error) {
	errs := shared.FieldErrors{}
	month, err := timeutil.ParseMonth(q.Month)
	if q.Month == "" {
		errs.Add("month", "The month field is required.")
	} else if err != nil {
		errs.Add("month", "The month does not match the format Y-m.")
	}
	if err := errs.Err("ledger", "MonthlyReport"); err != nil {
		return nil, err
	}

	repos := h.uow.Repos()
	if q.GradeID != nil {
		if _, err := repos.Grades.GetByID(ctx, *q.GradeID); err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.FieldErrors{"grade_id": {"The selected grade id is invalid."}}.Err("ledger", "MonthlyReport")
			}
			return nil, fail("ledger", "MonthlyReport", err)
		}
	}

	key := ReportCachePrefix + "monthly:" + q.Month + ":" + optID(q.GradeID)
	return cached(ctx, h.cache, h.logger, key, h.config.CacheTTL, func() (*MonthlyReportResult, error) {
		return h.buildMonthly(ctx, repos, month, q)
	})
}

func (h *ReportHandler) buildMonthly(ctx context.Context, repos store.Repositories, month time.Time, q MonthlyReportQuery) (*MonthlyReportResult, error) {
	from, to := monthRange(month)

	entries, err := repos.Ledger.List(ctx)
	if err != nil {
		return nil, fail("ledger", "MonthlyReport", err)
	}
	students, names, err := h.studentIndex(ctx, repos, q.GradeID)
	if err != nil {
		return nil, err
	}

	logs, err := repos.Logs.List(ctx, discipline.LogFilter{From: &from, To: &to})
	if err != nil {
		return nil, fail("ledger", "MonthlyReport", err)
	}
	logsBy := map[int64][]discipline.Log{}
	for _, l := range logs {
		logsBy[l.StudentID] = append(logsBy[l.StudentID], l)
	}

	done := discipline.RecordDone
	recs, err := repos.Records.List(ctx, discipline.RecordFilter{Status: &done, From: &from, To: &to, GradeID: q.GradeID})
	if err != nil {
		return nil, fail("ledger", "MonthlyReport", err)
	}
	recsBy := map[int64][]discipline.Record{}
	for _, r := range recs {
		recsBy[r.StudentID] = append(recsBy[r.StudentID], r)
	}

	res := &MonthlyReportResult{Month: q.Month, GradeID: q.GradeID, Reports: []StudentMonthDTO{}}
	for _, e := range entries {
		s, ok := students[e.StudentID]
		if !ok {
			continue
		}
		row := StudentMonthDTO{
			Student:         studentRef(s, names),
			TotalPoints:     e.TotalPoints,
			DisciplineLevel: e.Level(),
			Logs:            nonNil(logsBy[e.StudentID]),
			ExecutedRecords: nonNil(recsBy[e.StudentID]),
		}
		row.LogsCount = len(row.Logs)
		for _, r := range row.ExecutedRecords {
			if r.Type == rule.KindPunishment {
				row.ExecutedPunishments++
			} else {
				row.ExecutedRewards++
			}
		}
		res.Reports = append(res.Reports, row)
	}
	return res, nil
}

// ───────────────────────────────────────────────────────────────────────────────
// School dashboard
// ───────────────────────────────────────────────────────────────────────────────

// DayStatsDTO counts one day.
type DayStatsDTO struct {
	Date    string `json:"date,omitempty"`
	Present int    `json:"present"`
	Late    int    `json:"late"`
	Absent  int    `json:"absent"`
	Rate    Rate   `json:"rate"`
}

// DashboardStatsResult is the school-wide dashboard.
type DashboardStatsResult struct {
	TotalStudents   int           `json:"total_students"`
	TotalTeachers   int           `json:"total_teachers"`
	TotalClasses    int           `json:"total_classes"`
	TodayAttendance DayStatsDTO   `json:"today_attendance"`
	WeeklyTrend     []DayStatsDTO `json:"weekly_trend"`
}

// DashboardStats reports today's attendance and the last seven days.
// Absent is every student without a present or late row.
func (h *ReportHandler) DashboardStats(ctx context.Context) (*DashboardStatsResult, error) {
	today := h.today()
	key := ReportCachePrefix + "dashboard:" + timeutil.FormatDateStr(today)
	return cached(ctx, h.cache, h.logger, key, h.config.CacheTTL, func() (*DashboardStatsResult, error) {
		return h.buildDashboard(ctx, today)
	})
}

func (h *ReportHandler) buildDashboard(ctx context.Context, today time.Time) (*DashboardStatsResult, error) {
	repos := h.uow.Repos()
	var (
		res DashboardStatsResult
		err error
	)
	if res.TotalStudents, err = repos.Students.Count(ctx); err != nil {
		return nil, fail("report", "Dashboard", err)
	}
	if res.TotalTeachers, err = repos.Teachers.Count(ctx); err != nil {
		return nil, fail("report", "Dashboard", err)
	}
	if res.TotalClasses, err = repos.Grades.Count(ctx); err != nil {
		return nil, fail("report", "Dashboard", err)
	}

	from := timeutil.AddDays(today, -(trendDays - 1))
	rows, err := repos.Attendance.ListRange(ctx, from, today, nil)
	if err != nil {
		return nil, fail("report", "Dashboard", err)
	}
	byDay := map[string][]attendance.Attendance{}
	for _, a := range rows {
		k := timeutil.FormatDateStr(a.Date)
		byDay[k] = append(byDay[k], a)
	}

	res.WeeklyTrend = make([]DayStatsDTO, 0, trendDays)
	for d := from; !d.After(today); d = timeutil.AddDays(d, 1) {
		k := timeutil.FormatDateStr(d)
		day := dayStats(byDay[k], res.TotalStudents)
		day.Date = k
		res.WeeklyTrend = append(res.WeeklyTrend, day)
	}
	res.TodayAttendance = dayStats(byDay[timeutil.FormatDateStr(today)], res.TotalStudents)
	return &res, nil
}

func dayStats(rows []attendance.Attendance, students int) DayStatsDTO {
	var d DayStatsDTO
	for _, a := range rows {
		switch a.Status {
		case attendance.StatusPresent:
			d.Present++
		case attendance.StatusLate:
			d.Late++
		}
	}
	d.Absent = max(students-(d.Present+d.Late), 0)
	d.Rate = RateOf(d.Present+d.Late, students)
	return d
}

// ───────────────────────────────────────────────────────────────────────────────
// Student dashboard
// ───────────────────────────────────────────────────────────────────────────────

// RecentAttendanceDTO is one day of a student's history.
type RecentAttendanceDTO struct {
	Date         string            `json:"date"`
	Status       attendance.Status `json:"status"`
	Time         string            `json:"time"`
	PointsEarned int               `json:"points_earned"`
}

// TodayStatusDTO is the student's status today.
type TodayStatusDTO struct {
	Status attendance.Status `json:"status"`
	Time   string            `json:"time"`
}

// PersonalStatsDTO summarizes a student.
type PersonalStatsDTO struct {
	MonthlyAttendanceRate Rate `json:"monthly_attendance_rate"`
	CurrentStreak         int  `json:"current_streak"`
	TotalPoints           int  `json:"total_points"`
}

// StudentDashboardResult is a student's dashboard.
type StudentDashboardResult struct {
	Student          StudentRef            `json:"student"`
	PersonalStats    PersonalStatsDTO      `json:"personal_stats"`
	RecentAttendance []RecentAttendanceDTO `json:"recent_attendance"`
	TodayStatus      *TodayStatusDTO       `json:"today_status"`
}

// StudentDashboard reports a student's month, streak and last seven days.
// The monthly rate is attended days over days elapsed this month.
func (h *ReportHandler) StudentDashboard(ctx context.Context, studentID int64) (*StudentDashboardResult, error) {
	today := h.today()
	key := ReportCachePrefix + "student:" + strconv.FormatInt(studentID, 10) + ":" + timeutil.FormatDateStr(today)
	return cached(ctx, h.cache, h.logger, key, h.config.CacheTTL, func() (*StudentDashboardResult, error) {
		return h.buildStudentDashboard(ctx, studentID, today)
	})
}

func (h *ReportHandler) buildStudentDashboard(ctx context.Context, studentID int64, today time.Time) (*StudentDashboardResult, error) {
	repos := h.uow.Repos()
	s, err := repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, fail("report", "StudentDashboard", err)
	}
	names, err := gradeNames(ctx, repos.Grades)
	if err != nil {
		return nil, fail("report", "StudentDashboard", err)
	}

	from := timeutil.AddDays(today, -streakLookback)
	if som := timeutil.StartOfMonth(today); som.Before(from) {
		from = som
	}
	rows, err := repos.Attendance.ListRange(ctx, from, today, &studentID)
	if err != nil {
		return nil, fail("report", "StudentDashboard", err)
	}
	byDay := make(map[string]attendance.Attendance, len(rows))
	for _, a := range rows {
		byDay[timeutil.FormatDateStr(a.Date)] = a
	}

	res := &StudentDashboardResult{Student: studentRef(s, names), RecentAttendance: []RecentAttendanceDTO{}}

	attended := 0
	for d := timeutil.StartOfMonth(today); !d.After(today); d = timeutil.AddDays(d, 1) {
		if a, ok := byDay[timeutil.FormatDateStr(d)]; ok && a.Status.Attended() {
			attended++
		}
	}
	res.PersonalStats.MonthlyAttendanceRate = RateOf(attended, today.Day())

	for d := today; ; d = timeutil.AddDays(d, -1) {
		a, ok := byDay[timeutil.FormatDateStr(d)]
		if !ok || !a.Status.Attended() {
			break
		}
		res.PersonalStats.CurrentStreak++
	}

	if e, found, err := repos.Ledger.Find(ctx, studentID); err != nil {
		return nil, fail("report", "StudentDashboard", err)
	} else if found {
		res.PersonalStats.TotalPoints = e.TotalPoints
	}

	for i := 0; i < trendDays; i++ {
		d := timeutil.AddDays(today, -i)
		a, ok := byDay[timeutil.FormatDateStr(d)]
		if !ok {
			continue
		}
		res.RecentAttendance = append(res.RecentAttendance, RecentAttendanceDTO{
			Date:         timeutil.FormatDateStr(a.Date),
			Status:       a.Status,
			Time:         timeutil.FormatTimeStr(a.CreatedAt, h.config.Location),
			PointsEarned: a.Status.PointsEarned(),
		})
	}

	if a, ok := byDay[timeutil.FormatDateStr(today)]; ok {
		res.TodayStatus = &TodayStatusDTO{Status: a.Status, Time: timeutil.FormatTimeStr(a.CreatedAt, h.config.Location)}
	}
	return res, nil
}

// ───────────────────────────────────────────────────────────────────────────────
// Teacher dashboard
// ───────────────────────────────────────────────────────────────────────────────

// ClassTodayDTO is one homeroom class today.
type ClassTodayDTO struct {
	ClassName     string `json:"class_name"`
	TotalStudents int    `json:"total_students"`
	Present       int    `json:"present"`
	Late          int    `json:"late"`
	Absent        int    `json:"absent"`
	Rate          Rate   `json:"rate"`
}

// AbsentStudentDTO is a student with no attendance today.
type AbsentStudentDTO struct {
	Name           string  `json:"name"`
	Class          string  `json:"class"`
	LastAttendance *string `json:"last_attendance"`
}

// MonthTrendDTO is one month's attendance rate.
type MonthTrendDTO struct {
	Month          string `json:"month"`
	AttendanceRate Rate   `json:"attendance_rate"`
}

// TeacherDashboardResult is a teacher's dashboard.
type TeacherDashboardResult struct {
	Teacher        TeacherRef         `json:"teacher"`
	ClassesToday   []ClassTodayDTO    `json:"classes_today"`
	AbsentStudents []AbsentStudentDTO `json:"absent_students"`
	MonthlyTrends  []MonthTrendDTO    `json:"monthly_trends"`
}

// TeacherDashboard reports the teacher's homeroom classes today, up to ten
// students with no attendance row today, and a six month trend.
func (h *ReportHandler) TeacherDashboard(ctx context.Context, teacherID int64) (*TeacherDashboardResult, error) {
	today := h.today()
	key := ReportCachePrefix + "teacher:" + strconv.FormatInt(teacherID, 10) + ":" + timeutil.FormatDateStr(today)
	return cached(ctx, h.cache, h.logger, key, h.config.CacheTTL, func() (*TeacherDashboardResult, error) {
		return h.buildTeacherDashboard(ctx, teacherID, today)
	})
}

func (h *ReportHandler) buildTeacherDashboard(ctx context.Context, teacherID int64, today time.Time) (*TeacherDashboardResult, error) {
	repos := h.uow.Repos()
	t, err := repos.Teachers.GetByID(ctx, teacherID)
	if err != nil {
		return nil, fail("report", "TeacherDashboard", err)
	}
	grades, err := repos.Grades.ListByHomeroom(ctx, teacherID)
	if err != nil {
		return nil, fail("report", "TeacherDashboard", err)
	}

	res := &TeacherDashboardResult{
		Teacher:        TeacherRef{ID: t.ID, Fullname: t.Fullname},
		ClassesToday:   []ClassTodayDTO{},
		AbsentStudents: []AbsentStudentDTO{},
	}

	trendFrom := timeutil.StartOfMonth(today).AddDate(0, -(teacherTrendMonth - 1), 0)
	months := make([]struct{ attended, total int }, teacherTrendMonth)

	for _, g := range grades {
		gid := g.ID
		students, err := repos.Students.List(ctx, school.StudentFilter{GradeID: &gid})
		if err != nil {
			return nil, fail("report", "TeacherDashboard", err)
		}
		rows, err := repos.Attendance.List(ctx, attendance.Filter{Date: today, GradeID: &gid})
		if err != nil {
			return nil, fail("report", "TeacherDashboard", err)
		}

		day := dayStats(rows, len(students))
		res.ClassesToday = append(res.ClassesToday, ClassTodayDTO{
			ClassName: g.Name, TotalStudents: len(students),
			Present: day.Present, Late: day.Late, Absent: day.Absent, Rate: day.Rate,
		})

		seen := make(map[int64]bool, len(rows))
		for _, a := range rows {
			if a.StudentID != nil && a.Status != attendance.StatusAbsent {
				seen[*a.StudentID] = true
			}
		}
		for _, s := range students {
			if seen[s.ID] || len(res.AbsentStudents) >= maxAbsentListed {
				continue
			}
			dto := AbsentStudentDTO{Name: s.Fullname, Class: g.Name}
			last, found, err := repos.Attendance.LastAttended(ctx, s.ID)
			if err != nil {
				return nil, fail("report", "TeacherDashboard", err)
			}
			if found {
				v := timeutil.FormatDateStr(last)
				dto.LastAttendance = &v
			}
			res.AbsentStudents = append(res.AbsentStudents, dto)
		}

		for _, s := range students {
			sid := s.ID
			hist, err := repos.Attendance.ListRange(ctx, trendFrom, timeutil.EndOfMonth(today), &sid)
			if err != nil {
				return nil, fail("report", "TeacherDashboard", err)
			}
			for _, a := range hist {
				i := monthIndex(trendFrom, a.Date)
				if i < 0 || i >= teacherTrendMonth {
					continue
				}
				months[i].total++
				if a.Status.Attended() {
					months[i].attended++
				}
			}
		}
	}

	res.MonthlyTrends = make([]MonthTrendDTO, 0, teacherTrendMonth)
	for i, m := range months {
		label := trendFrom.AddDate(0, i, 0).Format("Jan 2006")
		res.MonthlyTrends = append(res.MonthlyTrends, MonthTrendDTO{Month: label, AttendanceRate: RateOf(m.attended, m.total)})
	}
	return res, nil
}

func monthIndex(from, d time.Time) int {
	return (d.Year()-from.Year())*12 + int(d.Month()) - int(from.Month())
}

// ───────────────────────────────────────────────────────────────────────────────
// helpers
// ───────────────────────────────────────────────────────────────────────────────

func (h *ReportHandler) studentIndex(ctx context.Context, repos store.Repositories, gradeID *int64) (map[int64]school.Student, map[int64]string, error) {
	list, err := repos.Students.List(ctx, school.StudentFilter{GradeID: gradeID})
	if err != nil {
		return nil, nil, fail("report", "Students", fmt.Errorf("list students: %w", err))
	}
	names, err := gradeNames(ctx, repos.Grades)
	if err != nil {
		return nil, nil, fail("report", "Students", err)
	}
	out := make(map[int64]school.Student, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out, names, nil
}

func optID(id *int64) string {
	if id == nil {
		return "all"
	}
	return strconv.FormatInt(*id, 10)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
