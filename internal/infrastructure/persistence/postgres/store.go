package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// Store implements store.UnitOfWork over a connection pool.
type Store struct {
	conn *Connection
}

// NewStore creates a new Store.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Repos returns autocommit repositories bound to the pool.
func (s *Store) Repos() store.Repositories {
	return newRepositories(s.conn)
}

// Do runs fn in one transaction with repositories bound to it.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

func newRepositories(q Querier) store.Repositories {
	return store.Repositories{
		Students:   &StudentRepository{q: q},
		Teachers:   &TeacherRepository{q: q},
		Grades:     &GradeRepository{q: q},
		Targets:    &TargetRepository{q: q},
		FAQs:       &FAQRepository{q: q},
		Contacts:   &ContactRepository{q: q},
		Rules:      &RuleRepository{q: q},
		Ledger:     &LedgerRepository{q: q},
		Attendance: &AttendanceRepository{q: q},
		Logs:       &LogRepository{q: q},
		Records:    &RecordRepository{q: q},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, q Querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return scan(row)
	})
}

// queryOne scans one row, returning notFound when there is none.
func queryOne[T any](ctx context.Context, q Querier, scan func(scanner) (T, error), notFound error, query string, args ...any) (T, error) {
	v, err := scan(q.QueryRow(ctx, query, args...))
	if IsNoRows(err) {
		return v, notFound
	}
	return v, err
}

// findOne is queryOne that reports absence as ok=false.
func findOne[T any](ctx context.Context, q Querier, scan func(scanner) (T, error), query string, args ...any) (T, bool, error) {
	v, err := scan(q.QueryRow(ctx, query, args...))
	if IsNoRows(err) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// execOne runs a single-row write and returns notFound when nothing matched.
func execOne(ctx context.Context, q Querier, op string, notFound error, query string, args ...any) error {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// newUUID returns id when set, else a fresh random one.
func newUUID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
