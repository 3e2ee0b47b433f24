package query

import (
	"context"
	"sort"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISCIPLINE QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// RecordDTO is a record with its student, rule and teacher.
type RecordDTO struct {
	discipline.Record
	Student *StudentRef `json:"student,omitempty"`
	Rule    *rule.Rule  `json:"rule"`
	Teacher *TeacherRef `json:"teacher,omitempty"`
}

// TeacherRef is the short teacher shape.
type TeacherRef struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
}

// LogDTO is a log with its rule.
type LogDTO struct {
	discipline.Log
	Rule *rule.Rule `json:"rule"`
}

// DisciplineHandler serves discipline reads.
type DisciplineHandler struct {
	uow store.UnitOfWork
}

// NewDisciplineHandler creates a new DisciplineHandler.
func NewDisciplineHandler(uow store.UnitOfWork) *DisciplineHandler {
	return &DisciplineHandler{uow: uow}
}

// TeacherRecords lists the caller's own records, newest first.
func (h *DisciplineHandler) TeacherRecords(ctx context.Context, id shared.Identity) ([]RecordDTO, error) {
	repos := h.uow.Repos()
	t, found, err := repos.Teachers.FindByUserID(ctx, id.UserID)
	if err != nil {
		return nil, fail("discipline", "ListRecords", err)
	}
	if !found {
		return nil, shared.NewDomainError("discipline", "ListRecords", shared.ErrNotFound, "Teacher record not found")
	}
	tid := t.ID
	recs, err := repos.Records.List(ctx, discipline.RecordFilter{TeacherID: &tid})
	if err != nil {
		return nil, fail("discipline", "ListRecords", err)
	}
	return h.enrichRecords(ctx, repos, recs)
}

// Record returns one record.
func (h *DisciplineHandler) Record(ctx context.Context, recordID int64) (*RecordDTO, error) {
	repos := h.uow.Repos()
	rec, err := repos.Records.GetByID(ctx, recordID)
	if err != nil {
		return nil, fail("discipline", "GetRecord", err)
	}
	out, err := h.enrichRecords(ctx, repos, []discipline.Record{rec})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// StudentsWithRecordsQuery filters the grouped records report.
type StudentsWithRecordsQuery struct {
	Status  string `json:"status"`
	Type    string `json:"type"`
	Month   string `json:"month"`
	GradeID *int64 `json:"grade_id"`
}

// Validate checks filters and defaults Status to done.
func (q *StudentsWithRecordsQuery) Validate() error {
	errs := shared.FieldErrors{}
	if q.Status == "" {
		q.Status = string(discipline.RecordDone)
	}
	if _, ok := discipline.ParseDecision(q.Status); !ok {
		errs.Add("status", "The selected status is invalid.")
	}
	if q.Type != "" && !rule.Kind(q.Type).IsValid() {
		errs.Add("type", "The selected type is invalid.")
	}
	if q.Month != "" {
		if _, err := timeutil.ParseMonth(q.Month); err != nil {
			errs.Add("month", "The month does not match the format Y-m.")
		}
	}
	return errs.Err("discipline", "StudentsWithRecords")
}

// StudentRecordsDTO groups one student's records.
type StudentRecordsDTO struct {
	Student          StudentRef  `json:"student"`
	TotalRewards     int         `json:"total_rewards"`
	TotalPunishments int         `json:"total_punishments"`
	Records          []RecordDTO `json:"records"`
}

// StudentsWithRecordsResult is the grouped report.
type StudentsWithRecordsResult struct {
	Filters       StudentsWithRecordsQuery `json:"filters"`
	TotalStudents int                      `json:"total_students"`
	Students      []StudentRecordsDTO      `json:"students"`
}

// StudentsWithRecords groups executed records by student. Records are
// ordered by given date, newest first.
func (h *DisciplineHandler) StudentsWithRecords(ctx context.Context, q StudentsWithRecordsQuery) (*StudentsWithRecordsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	repos := h.uow.Repos()
	if q.GradeID != nil {
		if _, err := repos.Grades.GetByID(ctx, *q.GradeID); err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.FieldErrors{"grade_id": {"The selected grade id is invalid."}}.Err("discipline", "StudentsWithRecords")
			}
			return nil, fail("discipline", "StudentsWithRecords", err)
		}
	}

	status := discipline.RecordStatus(q.Status)
	f := discipline.RecordFilter{Status: &status, GradeID: q.GradeID}
	if q.Type != "" {
		k := rule.Kind(q.Type)
		f.Type = &k
	}
	if q.Month != "" {
		m, _ := timeutil.ParseMonth(q.Month)
		from, to := monthRange(m)
		f.From, f.To = &from, &to
	}

	recs, err := repos.Records.List(ctx, f)
	if err != nil {
		return nil, fail("discipline", "StudentsWithRecords", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].GivenDate.After(recs[j].GivenDate) })

	dtos, err := h.enrichRecords(ctx, repos, recs)
	if err != nil {
		return nil, err
	}

	var (
		order  []int64
		groups = map[int64]*StudentRecordsDTO{}
	)
	for _, d := range dtos {
		g, ok := groups[d.StudentID]
		if !ok {
			g = &StudentRecordsDTO{Records: []RecordDTO{}}
			if d.Student != nil {
				g.Student = *d.Student
			} else {
				g.Student = StudentRef{ID: d.StudentID}
			}
			groups[d.StudentID] = g
			order = append(order, d.StudentID)
		}
		switch d.Type {
		case rule.KindReward:
			g.TotalRewards++
		case rule.KindPunishment:
			g.TotalPunishments++
		}
		g.Records = append(g.Records, d)
	}

	res := &StudentsWithRecordsResult{Filters: q, Students: make([]StudentRecordsDTO, 0, len(order))}
	for _, id := range order {
		res.Students = append(res.Students, *groups[id])
	}
	res.TotalStudents = len(res.Students)
	return res, nil
}

// Logs lists discipline logs, optionally for one student and date range.
func (h *DisciplineHandler) Logs(ctx context.Context, f discipline.LogFilter) ([]LogDTO, error) {
	repos := h.uow.Repos()
	logs, err := repos.Logs.List(ctx, f)
	if err != nil {
		return nil, fail("discipline", "ListLogs", err)
	}
	rules := map[int64]*rule.Rule{}
	out := make([]LogDTO, 0, len(logs))
	for _, l := range logs {
		r, err := cachedRule(ctx, repos, rules, l.RuleID)
		if err != nil {
			return nil, err
		}
		out = append(out, LogDTO{Log: l, Rule: r})
	}
	return out, nil
}

// Log returns one log.
func (h *DisciplineHandler) Log(ctx context.Context, logID int64) (*LogDTO, error) {
	repos := h.uow.Repos()
	l, err := repos.Logs.GetByID(ctx, logID)
	if err != nil {
		return nil, fail("discipline", "GetLog", err)
	}
	r, err := cachedRule(ctx, repos, map[int64]*rule.Rule{}, l.RuleID)
	if err != nil {
		return nil, err
	}
	return &LogDTO{Log: l, Rule: r}, nil
}

func (h *DisciplineHandler) enrichRecords(ctx context.Context, repos store.Repositories, recs []discipline.Record) ([]RecordDTO, error) {
	names, err := gradeNames(ctx, repos.Grades)
	if err != nil {
		return nil, fail("discipline", "ListRecords", err)
	}
	var (
		rules    = map[int64]*rule.Rule{}
		students = map[int64]*StudentRef{}
		teachers = map[int64]*TeacherRef{}
	)
	out := make([]RecordDTO, 0, len(recs))
	for _, rec := range recs {
		d := RecordDTO{Record: rec}
		if rec.RuleID != nil {
			if d.Rule, err = cachedRule(ctx, repos, rules, *rec.RuleID); err != nil {
				return nil, err
			}
		}

		ref, ok := students[rec.StudentID]
		if !ok {
			s, err := repos.Students.GetByID(ctx, rec.StudentID)
			if err == nil {
				r := studentRef(s, names)
				ref = &r
			} else if !shared.IsNotFound(err) {
				return nil, fail("discipline", "ListRecords", err)
			}
			students[rec.StudentID] = ref
		}
		d.Student = ref

		tref, ok := teachers[rec.TeacherID]
		if !ok {
			t, err := repos.Teachers.GetByID(ctx, rec.TeacherID)
			if err == nil {
				tref = &TeacherRef{ID: t.ID, Fullname: t.Fullname}
			} else if !shared.IsNotFound(err) {
				return nil, fail("discipline", "ListRecords", err)
			}
			teachers[rec.TeacherID] = tref
		}
		d.Teacher = tref
		out = append(out, d)
	}
	return out, nil
}

func cachedRule(ctx context.Context, repos store.Repositories, seen map[int64]*rule.Rule, id int64) (*rule.Rule, error) {
	if r, ok := seen[id]; ok {
		return r, nil
	}
	r, found, err := repos.Rules.FindByID(ctx, id)
	if err != nil {
		return nil, fail("discipline", "FindRule", err)
	}
	var out *rule.Rule
	if found {
		out = &r
	}
	seen[id] = out
	return out, nil
}

// monthRange returns the inclusive first and last day of month.
func monthRange(month time.Time) (time.Time, time.Time) {
	return timeutil.StartOfMonth(month), timeutil.EndOfMonth(month)
}
