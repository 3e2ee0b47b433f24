package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/rule"
	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// fakeMedia keeps saved files in a map. Files named "bad*" are rejected.
type fakeMedia struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
	n       int
}

func newFakeMedia() *fakeMedia { return &fakeMedia{files: map[string][]byte{}} }

func (m *fakeMedia) Save(_ context.Context, u attendance.Upload) (attendance.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(u.Filename) >= 3 && u.Filename[:3] == "bad" {
		return attendance.StoredFile{}, shared.ErrInvalidImage
	}
	m.n++
	path := fmt.Sprintf("attendance/%d-%s", m.n, u.Filename)
	m.files[path] = u.Data
	return attendance.StoredFile{Path: path, Filename: u.Filename, MimeType: "image/jpeg", Size: int64(len(u.Data))}, nil
}

func (m *fakeMedia) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	m.removed = append(m.removed, path)
	return nil
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturePublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.Store
	media   *fakeMedia
	events  *capturePublisher
	clock   *timeutil.FixedClock
	teacher school.Teacher
	grade   school.Grade
	student school.Student
}

const (
	studentUserID = 100
	teacherUserID = 200
	adminUserID   = 1
)

// newFixture seeds one homeroom teacher, one grade, one student and the
// default rules. The clock starts at 2024-03-11 06:30 Jakarta.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  memory.New(),
		media:  newFakeMedia(),
		events: &capturePublisher{},
		clock:  timeutil.NewFixedClock(jakarta(6, 30)),
	}
	repos := f.store.Repos()

	f.teacher = school.Teacher{UserID: teacherUserID, Fullname: "Ibu Sari", PhoneNumber: "0812", Subject: "Math", HireDate: timeutil.Date(2020, 7, 1)}
	require.NoError(t, repos.Teachers.Create(f.ctx, &f.teacher))

	tid := f.teacher.ID
	f.grade = school.Grade{Name: "X-1", HomeroomTeacherID: &tid}
	require.NoError(t, repos.Grades.Create(f.ctx, &f.grade))

	f.student = school.Student{UserID: studentUserID, Fullname: "Budi", GradeID: f.grade.ID, BirthDate: timeutil.Date(2008, 1, 2), Address: "Jl. Merdeka"}
	require.NoError(t, repos.Students.Create(f.ctx, &f.student))

	_, err := rule.Seed(f.ctx, repos.Rules)
	require.NoError(t, err)
	return f
}

func jakarta(hour, minute int) time.Time {
	return time.Date(2024, 3, 11, hour, minute, 0, 0, timeutil.JakartaTZ)
}

func (f *fixture) studentIdentity() shared.Identity {
	sid := f.student.ID
	return shared.Identity{UserID: studentUserID, Role: shared.RoleStudent, StudentID: &sid}
}

func (f *fixture) teacherIdentity() shared.Identity {
	tid := f.teacher.ID
	return shared.Identity{UserID: teacherUserID, Role: shared.RoleTeacher, TeacherID: &tid}
}

func (f *fixture) adminIdentity() shared.Identity {
	return shared.Identity{UserID: adminUserID, Role: shared.RoleAdministrator}
}

func (f *fixture) submitHandler() *SubmitAttendanceHandler {
	return NewSubmitAttendanceHandler(f.store, f.media, NewOutcomeApplier(nil), f.clock, f.events, DefaultSubmitAttendanceHandlerConfig(), nil)
}

func (f *fixture) submit(id shared.Identity, images ...string) (*SubmitAttendanceResult, error) {
	if len(images) == 0 {
		images = []string{"selfie.jpg"}
	}
	ups := make([]attendance.Upload, 0, len(images))
	for _, name := range images {
		ups = append(ups, attendance.Upload{Filename: name, Data: []byte("jpeg")})
	}
	return f.submitHandler().Handle(f.ctx, SubmitAttendanceCommand{Identity: id, Images: ups})
}

func (f *fixture) points() int {
	e, found, err := f.store.Repos().Ledger.Find(f.ctx, f.student.ID)
	require.NoError(f.t, err)
	if !found {
		return 0
	}
	return e.TotalPoints
}

func (f *fixture) ruleID(key rule.Key) int64 {
	r, found, err := rule.Lookup(f.ctx, f.store.Repos().Rules, key)
	require.NoError(f.t, err)
	require.True(f.t, found)
	return r.ID
}

var errBoom = errors.New("boom")
