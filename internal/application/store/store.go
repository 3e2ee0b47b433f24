// Package store defines the persistence port used by the application layer:
// the set of repositories and a unit of work that runs a function inside a
// single database transaction.
package store

import (
	"context"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"
	"github.com/sekolah-hub/attendance-hub/internal/domain/ledger"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
)

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Students   school.StudentRepository
	Teachers   school.TeacherRepository
	Grades     school.GradeRepository
	Targets    school.TargetRepository
	FAQs       school.FAQRepository
	Contacts   school.ContactRepository
	Rules      rule.Repository
	Ledger     ledger.Repository
	Attendance attendance.Repository
	Logs       discipline.LogRepository
	Records    discipline.RecordRepository
}

// UnitOfWork hands out repositories and runs transactional work.
type UnitOfWork interface {
	// Repos returns repositories outside any transaction (autocommit).
	Repos() Repositories

	// Do runs fn in one transaction. fn's error, or a panic, rolls it back.
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
