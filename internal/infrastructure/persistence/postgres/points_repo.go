package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RULE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RuleRepository implements rule.Repository.
type RuleRepository struct {
	q Querier
}

const ruleColumns = `id, uuid, type, name, points, description`

func scanRule(row scanner) (rule.Rule, error) {
	var r rule.Rule
	err := row.Scan(&r.ID, &r.UUID, &r.Kind, &r.Name, &r.Points, &r.Description)
	return r, err
}

// Create inserts a rule. Names are unique regardless of case.
func (r *RuleRepository) Create(ctx context.Context, ru *rule.Rule) error {
	ru.UUID = newUUID(ru.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO rules (uuid, type, name, points, description) VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, ru.UUID, ru.Kind, ru.Name, ru.Points, ru.Description).Scan(&ru.ID)
	return ruleWriteErr("create rule", err)
}

// Update rewrites every column except uuid.
func (r *RuleRepository) Update(ctx context.Context, ru *rule.Rule) error {
	err := r.q.QueryRow(ctx, `
		UPDATE rules SET type = $1, name = $2, points = $3, description = $4 WHERE id = $5 RETURNING uuid
	`, ru.Kind, ru.Name, ru.Points, ru.Description, ru.ID).Scan(&ru.UUID)
	if IsNoRows(err) {
		return shared.ErrRuleNotFound
	}
	return ruleWriteErr("update rule", err)
}

func ruleWriteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return shared.ErrRuleAlreadyExists
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// Delete removes a rule; records keep their row with rule_id set to NULL.
func (r *RuleRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete rule", shared.ErrRuleNotFound, `DELETE FROM rules WHERE id = $1`, id)
}

// GetByID returns a rule or ErrRuleNotFound.
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (rule.Rule, error) {
	return queryOne(ctx, r.q, scanRule, shared.ErrRuleNotFound, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
}

// FindByID returns a rule, ok=false when it does not exist.
func (r *RuleRepository) FindByID(ctx context.Context, id int64) (rule.Rule, bool, error) {
	return findOne(ctx, r.q, scanRule, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
}

// FindByName looks a rule up by its exact name.
func (r *RuleRepository) FindByName(ctx context.Context, name string) (rule.Rule, bool, error) {
	return findOne(ctx, r.q, scanRule, `SELECT `+ruleColumns+` FROM rules WHERE name = $1 ORDER BY id LIMIT 1`, name)
}

// List returns rules ordered by id.
func (r *RuleRepository) List(ctx context.Context) ([]rule.Rule, error) {
	out, err := queryAll(ctx, r.q, scanRule, `SELECT `+ruleColumns+` FROM rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements ledger.Repository on student_points.
type LedgerRepository struct {
	q Querier
}

const ledgerColumns = `id, uuid, student_id, total_points, last_updated`

func scanEntry(row scanner) (ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(&e.ID, &e.UUID, &e.StudentID, &e.TotalPoints, &e.LastUpdated)
	return e, err
}

// Adjust creates the row at zero when missing and adds delta in one
// statement. The row lock taken by the upsert serializes concurrent callers.
func (r *LedgerRepository) Adjust(ctx context.Context, studentID int64, delta int, at time.Time) (ledger.Entry, error) {
	e, err := scanEntry(r.q.QueryRow(ctx, `
		INSERT INTO student_points (uuid, student_id, total_points, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE SET
			total_points = student_points.total_points + EXCLUDED.total_points,
			last_updated = EXCLUDED.last_updated
		RETURNING `+ledgerColumns,
		uuid.New(), studentID, delta, at))
	if err != nil {
		if IsForeignKeyViolation(err) {
			return ledger.Entry{}, shared.ErrStudentNotFound
		}
		return ledger.Entry{}, fmt.Errorf("failed to adjust points: %w", err)
	}
	return e, nil
}

// Find returns the ledger row of a student.
func (r *LedgerRepository) Find(ctx context.Context, studentID int64) (ledger.Entry, bool, error) {
	return findOne(ctx, r.q, scanEntry, `SELECT `+ledgerColumns+` FROM student_points WHERE student_id = $1`, studentID)
}

// GetByID returns a ledger row or ErrLedgerEntryNotFound.
func (r *LedgerRepository) GetByID(ctx context.Context, id int64) (ledger.Entry, error) {
	return queryOne(ctx, r.q, scanEntry, shared.ErrLedgerEntryNotFound,
		`SELECT `+ledgerColumns+` FROM student_points WHERE id = $1`, id)
}

// List returns every row, highest total first.
func (r *LedgerRepository) List(ctx context.Context) ([]ledger.Entry, error) {
	out, err := queryAll(ctx, r.q, scanEntry, `SELECT `+ledgerColumns+` FROM student_points ORDER BY total_points DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list points: %w", err)
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LogRepository implements discipline.LogRepository.
type LogRepository struct {
	q Querier
}

const logColumns = `id, uuid, student_id, rules_id, date, given_by, remarks, status`

func scanLog(row scanner) (discipline.Log, error) {
	var l discipline.Log
	err := row.Scan(&l.ID, &l.UUID, &l.StudentID, &l.RuleID, &l.Date, &l.GivenBy, &l.Remarks, &l.Status)
	return l, err
}

// Create inserts a log for an existing student and rule.
func (r *LogRepository) Create(ctx context.Context, l *discipline.Log) error {
	l.UUID = newUUID(l.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO discipline_logs (uuid, student_id, rules_id, date, given_by, remarks, status)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM rules WHERE id = $3)
		RETURNING id
	`, l.UUID, l.StudentID, l.RuleID, l.Date, l.GivenBy, l.Remarks, l.Status).Scan(&l.ID)
	switch {
	case err == nil:
		return nil
	case IsNoRows(err):
		return shared.ErrRuleNotFound
	case IsForeignKeyViolation(err):
		return shared.ErrStudentNotFound
	default:
		return fmt.Errorf("failed to create log: %w", err)
	}
}

// GetByID returns a log or ErrLogNotFound.
func (r *LogRepository) GetByID(ctx context.Context, id int64) (discipline.Log, error) {
	return queryOne(ctx, r.q, scanLog, shared.ErrLogNotFound, `SELECT `+logColumns+` FROM discipline_logs WHERE id = $1`, id)
}

// List returns logs ordered by id.
func (r *LogRepository) List(ctx context.Context, f discipline.LogFilter) ([]discipline.Log, error) {
	out, err := queryAll(ctx, r.q, scanLog, `
		SELECT `+logColumns+` FROM discipline_logs
		WHERE ($1::bigint IS NULL OR student_id = $1)
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date <= $3)
		ORDER BY id
	`, f.StudentID, f.From, f.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return out, nil
}

// UpdateRemarks replaces the remarks of a log.
func (r *LogRepository) UpdateRemarks(ctx context.Context, id int64, remarks *string) error {
	return execOne(ctx, r.q, "update log remarks", shared.ErrLogNotFound,
		`UPDATE discipline_logs SET remarks = $1 WHERE id = $2`, remarks, id)
}

// Delete removes a log.
func (r *LogRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.q, "delete log", shared.ErrLogNotFound, `DELETE FROM discipline_logs WHERE id = $1`, id)
}

// MarkLatestPendingDone flips the newest matching PENDING log to DONE.
func (r *LogRepository) MarkLatestPendingDone(ctx context.Context, studentID, ruleID int64, date time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE discipline_logs SET status = $1
		WHERE id = (
			SELECT id FROM discipline_logs
			WHERE student_id = $2 AND rules_id = $3 AND date = $4 AND status = $5
			ORDER BY id DESC
			LIMIT 1
			FOR UPDATE
		)
	`, discipline.LogDone, studentID, ruleID, date, discipline.LogPending)
	if err != nil {
		return false, fmt.Errorf("failed to complete pending log: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAutomatic removes the attendance-generated logs of a student's day.
func (r *LogRepository) DeleteAutomatic(ctx context.Context, studentID int64, date time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM discipline_logs
		WHERE student_id = $1 AND date = $2 AND starts_with(remarks, $3)
	`, studentID, date, discipline.AutoRemarkPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete automatic logs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RecordRepository implements discipline.RecordRepository.
type RecordRepository struct {
	q Querier
}

const recordColumns = `id, uuid, student_id, teacher_id, rule_id, type, description, status, given_date, notes`

func scanRecord(row scanner) (discipline.Record, error) {
	var rec discipline.Record
	err := row.Scan(&rec.ID, &rec.UUID, &rec.StudentID, &rec.TeacherID, &rec.RuleID, &rec.Type,
		&rec.Description, &rec.Status, &rec.GivenDate, &rec.Notes)
	return rec, err
}

// Create inserts a record.
func (r *RecordRepository) Create(ctx context.Context, rec *discipline.Record) error {
	rec.UUID = newUUID(rec.UUID)
	err := r.q.QueryRow(ctx, `
		INSERT INTO discipline_records (uuid, student_id, teacher_id, rule_id, type, description, status, given_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, rec.UUID, rec.StudentID, rec.TeacherID, rec.RuleID, rec.Type, rec.Description, rec.Status, rec.GivenDate, rec.Notes).Scan(&rec.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			if constraintOf(err) == "discipline_records_rule_id_fkey" {
				return shared.ErrRuleNotFound
			}
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// GetByID returns a record or ErrRecordNotFound.
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (discipline.Record, error) {
	return queryOne(ctx, r.q, scanRecord, shared.ErrRecordNotFound,
		`SELECT `+recordColumns+` FROM discipline_records WHERE id = $1`, id)
}

// GetForUpdate reads a record and locks it until the transaction ends.
func (r *RecordRepository) GetForUpdate(ctx context.Context, id int64) (discipline.Record, error) {
	return queryOne(ctx, r.q, scanRecord, shared.ErrRecordNotFound,
		`SELECT `+recordColumns+` FROM discipline_records WHERE id = $1 FOR UPDATE`, id)
}

// UpdateStatus stores status and notes.
func (r *RecordRepository) UpdateStatus(ctx context.Context, rec discipline.Record) error {
	return execOne(ctx, r.q, "update record", shared.ErrRecordNotFound,
		`UPDATE discipline_records SET status = $1, notes = $2 WHERE id = $3`, rec.Status, rec.Notes, rec.ID)
}

// List returns matching records, newest first.
func (r *RecordRepository) List(ctx context.Context, f discipline.RecordFilter) ([]discipline.Record, error) {
	out, err := queryAll(ctx, r.q, scanRecord, `
		SELECT r.id, r.uuid, r.student_id, r.teacher_id, r.rule_id, r.type, r.description, r.status, r.given_date, r.notes
		FROM discipline_records r
		LEFT JOIN students s ON s.id = r.student_id
		WHERE ($1::bigint IS NULL OR r.teacher_id = $1)
		  AND ($2::text IS NULL OR r.status = $2)
		  AND ($3::text IS NULL OR r.type = $3)
		  AND ($4::date IS NULL OR r.given_date >= $4)
		  AND ($5::date IS NULL OR r.given_date <= $5)
		  AND ($6::bigint IS NULL OR s.grade_id = $6)
		ORDER BY r.id DESC
	`, f.TeacherID, f.Status, f.Type, f.From, f.To, f.GradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return out, nil
}

// DeleteAutomaticPending removes the attendance-generated pending records of a student's day.
func (r *RecordRepository) DeleteAutomaticPending(ctx context.Context, studentID int64, date time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM discipline_records
		WHERE student_id = $1 AND given_date = $2 AND status = $3 AND notes = $4
	`, studentID, date, discipline.RecordPending, discipline.AutoRecordNotes)
	if err != nil {
		return 0, fmt.Errorf("failed to delete automatic records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
