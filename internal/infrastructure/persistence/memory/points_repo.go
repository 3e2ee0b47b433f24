package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// ─────────────────────────────────────────────────────────────────────────────
// Rules
// ─────────────────────────────────────────────────────────────────────────────

type ruleRepo struct{ ss *session }

func nameTaken(st *state, name string, except int64) bool {
	for id, r := range st.rules.rows {
		if id != except && strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

func (r *ruleRepo) Create(_ context.Context, ru *rule.Rule) error {
	return r.ss.write(func(st *state) error {
		if nameTaken(st, ru.Name, 0) {
			return shared.ErrRuleAlreadyExists
		}
		ru.ID = st.rules.nextID()
		ru.UUID = newUUID()
		st.rules.rows[ru.ID] = *ru
		return nil
	})
}

func (r *ruleRepo) Update(_ context.Context, ru *rule.Rule) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.rules.rows[ru.ID]
		if !ok {
			return shared.ErrRuleNotFound
		}
		if nameTaken(st, ru.Name, ru.ID) {
			return shared.ErrRuleAlreadyExists
		}
		ru.UUID = cur.UUID
		st.rules.rows[ru.ID] = *ru
		return nil
	})
}

func (r *ruleRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.rules.rows[id]; !ok {
			return shared.ErrRuleNotFound
		}
		delete(st.rules.rows, id)
		// ON DELETE SET NULL on discipline_records.rule_id
		for rid, rec := range st.records.rows {
			if rec.RuleID != nil && *rec.RuleID == id {
				rec.RuleID = nil
				st.records.rows[rid] = rec
			}
		}
		return nil
	})
}

func (r *ruleRepo) GetByID(ctx context.Context, id int64) (rule.Rule, error) {
	ru, ok, err := r.FindByID(ctx, id)
	if err != nil {
		return rule.Rule{}, err
	}
	if !ok {
		return rule.Rule{}, shared.ErrRuleNotFound
	}
	return ru, nil
}

func (r *ruleRepo) FindByID(_ context.Context, id int64) (out rule.Rule, found bool, err error) {
	err = r.ss.run(func(st *state) error {
		out, found = st.rules.rows[id]
		return nil
	})
	return out, found, err
}

func (r *ruleRepo) FindByName(_ context.Context, name string) (out rule.Rule, found bool, err error) {
	err = r.ss.run(func(st *state) error {
		for _, ru := range st.rules.ordered() {
			if ru.Name == name {
				out, found = ru, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *ruleRepo) List(_ context.Context) (out []rule.Rule, err error) {
	err = r.ss.run(func(st *state) error {
		out = st.rules.ordered()
		return nil
	})
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Ledger
// ─────────────────────────────────────────────────────────────────────────────

type ledgerRepo struct{ ss *session }

func (r *ledgerRepo) Adjust(_ context.Context, studentID int64, delta int, at time.Time) (out ledger.Entry, err error) {
	err = r.ss.write(func(st *state) error {
		if _, ok := st.students.rows[studentID]; !ok {
			return shared.ErrStudentNotFound
		}
		for id, e := range st.ledger.rows {
			if e.StudentID == studentID {
				out = e.Apply(delta, at)
				st.ledger.rows[id] = out
				return nil
			}
		}
		e := ledger.Entry{ID: st.ledger.nextID(), UUID: newUUID(), StudentID: studentID}
		out = e.Apply(delta, at)
		st.ledger.rows[e.ID] = out
		return nil
	})
	return out, err
}

func (r *ledgerRepo) Find(_ context.Context, studentID int64) (out ledger.Entry, found bool, err error) {
	err = r.ss.run(func(st *state) error {
		for _, e := range st.ledger.rows {
			if e.StudentID == studentID {
				out, found = e, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *ledgerRepo) GetByID(_ context.Context, id int64) (out ledger.Entry, err error) {
	err = r.ss.run(func(st *state) error {
		e, ok := st.ledger.rows[id]
		if !ok {
			return shared.ErrLedgerEntryNotFound
		}
		out = e
		return nil
	})
	return out, err
}

func (r *ledgerRepo) List(_ context.Context) (out []ledger.Entry, err error) {
	err = r.ss.run(func(st *state) error {
		out = st.ledger.ordered()
		sort.SliceStable(out, func(i, j int) bool { return out[i].TotalPoints > out[j].TotalPoints })
		return nil
	})
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Discipline logs
// ─────────────────────────────────────────────────────────────────────────────

type logRepo struct{ ss *session }

func (r *logRepo) Create(_ context.Context, l *discipline.Log) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.students.rows[l.StudentID]; !ok {
			return shared.ErrStudentNotFound
		}
		if _, ok := st.rules.rows[l.RuleID]; !ok {
			return shared.ErrRuleNotFound
		}
		l.ID = st.logs.nextID()
		l.UUID = newUUID()
		st.logs.rows[l.ID] = *l
		return nil
	})
}

func (r *logRepo) GetByID(_ context.Context, id int64) (out discipline.Log, err error) {
	err = r.ss.run(func(st *state) error {
		l, ok := st.logs.rows[id]
		if !ok {
			return shared.ErrLogNotFound
		}
		out = l
		return nil
	})
	return out, err
}

func inRange(d time.Time, from, to *time.Time) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func (r *logRepo) List(_ context.Context, f discipline.LogFilter) (out []discipline.Log, err error) {
	err = r.ss.run(func(st *state) error {
		for _, l := range st.logs.ordered() {
			if f.StudentID != nil && l.StudentID != *f.StudentID {
				continue
			}
			if !inRange(l.Date, f.From, f.To) {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	return out, err
}

func (r *logRepo) UpdateRemarks(_ context.Context, id int64, remarks *string) error {
	return r.ss.write(func(st *state) error {
		l, ok := st.logs.rows[id]
		if !ok {
			return shared.ErrLogNotFound
		}
		l.Remarks = remarks
		st.logs.rows[id] = l
		return nil
	})
}

func (r *logRepo) Delete(_ context.Context, id int64) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.logs.rows[id]; !ok {
			return shared.ErrLogNotFound
		}
		delete(st.logs.rows, id)
		return nil
	})
}

func (r *logRepo) MarkLatestPendingDone(_ context.Context, studentID, ruleID int64, date time.Time) (found bool, err error) {
	err = r.ss.write(func(st *state) error {
		var latest *discipline.Log
		for _, l := range st.logs.ordered() {
			if l.StudentID == studentID && l.RuleID == ruleID && l.Status == discipline.LogPending && timeutil.SameDate(l.Date, date) {
				l := l
				latest = &l
			}
		}
		if latest == nil {
			return nil
		}
		latest.Status = discipline.LogDone
		st.logs.rows[latest.ID] = *latest
		found = true
		return nil
	})
	return found, err
}

func (r *logRepo) DeleteAutomatic(_ context.Context, studentID int64, date time.Time) (n int, err error) {
	err = r.ss.write(func(st *state) error {
		for id, l := range st.logs.rows {
			if l.StudentID == studentID && timeutil.SameDate(l.Date, date) &&
				l.Remarks != nil && strings.HasPrefix(*l.Remarks, discipline.AutoRemarkPrefix) {
				delete(st.logs.rows, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Discipline records
// ─────────────────────────────────────────────────────────────────────────────

type recordRepo struct{ ss *session }

func (r *recordRepo) Create(_ context.Context, rec *discipline.Record) error {
	return r.ss.write(func(st *state) error {
		if _, ok := st.students.rows[rec.StudentID]; !ok {
			return shared.ErrStudentNotFound
		}
		if _, ok := st.teachers.rows[rec.TeacherID]; !ok {
			return shared.ErrTeacherNotFound
		}
		rec.ID = st.records.nextID()
		rec.UUID = newUUID()
		st.records.rows[rec.ID] = *rec
		return nil
	})
}

func (r *recordRepo) GetByID(_ context.Context, id int64) (out discipline.Record, err error) {
	err = r.ss.run(func(st *state) error {
		rec, ok := st.records.rows[id]
		if !ok {
			return shared.ErrRecordNotFound
		}
		out = rec
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the transaction already holds the store lock.
func (r *recordRepo) GetForUpdate(ctx context.Context, id int64) (discipline.Record, error) {
	return r.GetByID(ctx, id)
}

func (r *recordRepo) UpdateStatus(_ context.Context, rec discipline.Record) error {
	return r.ss.write(func(st *state) error {
		cur, ok := st.records.rows[rec.ID]
		if !ok {
			return shared.ErrRecordNotFound
		}
		cur.Status = rec.Status
		cur.Notes = rec.Notes
		st.records.rows[rec.ID] = cur
		return nil
	})
}

func (r *recordRepo) List(_ context.Context, f discipline.RecordFilter) (out []discipline.Record, err error) {
	err = r.ss.run(func(st *state) error {
		for _, rec := range st.records.ordered() {
			if f.TeacherID != nil && rec.TeacherID != *f.TeacherID {
				continue
			}
			if f.Status != nil && rec.Status != *f.Status {
				continue
			}
			if f.Type != nil && rec.Type != *f.Type {
				continue
			}
			if !inRange(rec.GivenDate, f.From, f.To) {
				continue
			}
			if f.GradeID != nil {
				s, ok := st.students.rows[rec.StudentID]
				if !ok || s.GradeID != *f.GradeID {
					continue
				}
			}
			out = append(out, rec)
		}
		// newest first
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}

func (r *recordRepo) DeleteAutomaticPending(_ context.Context, studentID int64, date time.Time) (n int, err error) {
	err = r.ss.write(func(st *state) error {
		for id, rec := range st.records.rows {
			if rec.StudentID == studentID && rec.Status == discipline.RecordPending &&
				timeutil.SameDate(rec.GivenDate, date) &&
				rec.Notes != nil && *rec.Notes == discipline.AutoRecordNotes {
				delete(st.records.rows, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
