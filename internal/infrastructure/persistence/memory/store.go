// Package memory is an in-process implementation of the store port.
// Transactions serialize on one mutex and roll back by restoring a snapshot,
// which makes it a faithful stand-in for Postgres in tests and local runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/sekolah-hub/attendance-hub/internal/application/store"
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
)

// table keeps rows by auto-incremented id.
type table[T any] struct {
	rows map[int64]T
	next int64
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[int64]T)}
}

func (t *table[T]) nextID() int64 {
	t.next++
	return t.next
}

func (t *table[T]) clone() table[T] {
	return table[T]{rows: maps.Clone(t.rows), next: t.next}
}

// ordered returns rows sorted by id ascending.
func (t *table[T]) ordered() []T {
	ids := slices.Sorted(maps.Keys(t.rows))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

type state struct {
	students   table[school.Student]
	teachers   table[school.Teacher]
	grades     table[school.Grade]
	targets    table[school.Target]
	faqs       table[school.FAQ]
	contacts   table[school.Contact]
	rules      table[rule.Rule]
	ledger     table[ledger.Entry]
	attendance table[attendance.Attendance]
	journal    table[attendance.JournalEntry]
	media      table[attendance.MediaAsset]
	logs       table[discipline.Log]
	records    table[discipline.Record]
}

func newState() *state {
	return &state{
		students:   newTable[school.Student](),
		teachers:   newTable[school.Teacher](),
		grades:     newTable[school.Grade](),
		targets:    newTable[school.Target](),
		faqs:       newTable[school.FAQ](),
		contacts:   newTable[school.Contact](),
		rules:      newTable[rule.Rule](),
		ledger:     newTable[ledger.Entry](),
		attendance: newTable[attendance.Attendance](),
		journal:    newTable[attendance.JournalEntry](),
		media:      newTable[attendance.MediaAsset](),
		logs:       newTable[discipline.Log](),
		records:    newTable[discipline.Record](),
	}
}

func (s *state) snapshot() *state {
	return &state{
		students:   s.students.clone(),
		teachers:   s.teachers.clone(),
		grades:     s.grades.clone(),
		targets:    s.targets.clone(),
		faqs:       s.faqs.clone(),
		contacts:   s.contacts.clone(),
		rules:      s.rules.clone(),
		ledger:     s.ledger.clone(),
		attendance: s.attendance.clone(),
		journal:    s.journal.clone(),
		media:      s.media.clone(),
		logs:       s.logs.clone(),
		records:    s.records.clone(),
	}
}

// Store implements store.UnitOfWork in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	// failNext is returned by the next repository write.
	failNext error
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// FailNextWrite makes the next write inside any repository return err.
func (s *Store) FailNextWrite(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// session binds repositories to the store; locked=true means the caller
// already holds the store mutex (inside Do).
type session struct {
	store  *Store
	locked bool
}

func (ss *session) run(fn func(st *state) error) error {
	if !ss.locked {
		ss.store.mu.Lock()
		defer ss.store.mu.Unlock()
	}
	return fn(ss.store.state)
}

func (ss *session) write(fn func(st *state) error) error {
	return ss.run(func(st *state) error {
		if err := ss.store.failNext; err != nil {
			ss.store.failNext = nil
			return err
		}
		return fn(st)
	})
}

func (s *Store) repos(locked bool) store.Repositories {
	ss := &session{store: s, locked: locked}
	return store.Repositories{
		Students:   &studentRepo{ss},
		Teachers:   &teacherRepo{ss},
		Grades:     &gradeRepo{ss},
		Targets:    &targetRepo{ss},
		FAQs:       &faqRepo{ss},
		Contacts:   &contactRepo{ss},
		Rules:      &ruleRepo{ss},
		Ledger:     &ledgerRepo{ss},
		Attendance: &attendanceRepo{ss},
		Logs:       &logRepo{ss},
		Records:    &recordRepo{ss},
	}
}

// Repos returns autocommit repositories.
func (s *Store) Repos() store.Repositories {
	return s.repos(false)
}

// Do runs fn while holding the store lock; on error or panic the state is
// restored to what it was before fn started.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.state.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.state = before
			err = fmt.Errorf("transaction panicked: %v", p)
		}
	}()

	if err := fn(ctx, s.repos(true)); err != nil {
		s.state = before
		return err
	}
	return nil
}

func newUUID() uuid.UUID { return uuid.New() }
