package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/repository"
	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
)

const (
	courseID     = "11111111-1111-1111-1111-111111111111"
	otherCourse  = "11111111-1111-1111-1111-222222222222"
	semesterID   = "22222222-2222-2222-2222-222222222222"
	classID      = "33333333-3333-3333-3333-333333333333"
	otherClassID = "33333333-3333-3333-3333-444444444444"
	disciplineID = "44444444-4444-4444-4444-444444444444"
	eveningDisc  = "44444444-4444-4444-4444-555555555555"
	ownerID      = "55555555-5555-5555-5555-555555555555"
	strangerID   = "66666666-6666-6666-6666-666666666666"
)

type memorySchedulings struct {
	mu     sync.Mutex
	items  map[string]models.Scheduling
	seq    int
	failOn string
}

func newMemorySchedulings() *memorySchedulings {
	return &memorySchedulings{items: map[string]models.Scheduling{}}
}

func (m *memorySchedulings) conflicts(candidate models.ConflictCandidate) bool {
	for id, existing := range m.items {
		if id == candidate.ExcludeID || existing.ClassID == nil || existing.DisciplineID == nil {
			continue
		}
		if *existing.ClassID != candidate.ClassID || *existing.DisciplineID != candidate.DisciplineID {
			continue
		}
		if !existing.Date.Equal(candidate.Date) {
			continue
		}
		if Overlaps(existing.StartTime, existing.EndTime, candidate.StartTime, candidate.EndTime) {
			return true
		}
	}
	return false
}

func candidateOf(s *models.Scheduling) models.ConflictCandidate {
	return models.ConflictCandidate{
		Date:         s.Date,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		ClassID:      deref(s.ClassID),
		DisciplineID: deref(s.DisciplineID),
		ExcludeID:    s.ID,
	}
}

func (m *memorySchedulings) HasConflict(ctx context.Context, candidate models.ConflictCandidate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflicts(candidate), nil
}

func (m *memorySchedulings) List(ctx context.Context, filter models.SchedulingFilter) ([]models.Scheduling, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Scheduling
	for _, s := range m.items {
		if filter.Restricted && s.UserID != filter.OwnerID && !contains(filter.VisibleCourseIDs, s.CourseID) {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *memorySchedulings) ListRows(ctx context.Context, filter models.SchedulingFilter) ([]models.SchedulingRow, error) {
	items, _, _ := m.List(ctx, filter)
	rows := make([]models.SchedulingRow, 0, len(items))
	for _, s := range items {
		rows = append(rows, models.SchedulingRow{Scheduling: s, CourseName: "Engenharia"})
	}
	return rows, nil
}

func (m *memorySchedulings) FindByID(ctx context.Context, id string) (*models.Scheduling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *memorySchedulings) CreateIfNoConflict(ctx context.Context, s *models.Scheduling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "create" {
		return fmt.Errorf("insert scheduling: boom")
	}
	if s.ClassID != nil && s.DisciplineID != nil && m.conflicts(candidateOf(s)) {
		return repository.ErrSchedulingConflict
	}
	m.seq++
	s.ID = fmt.Sprintf("sched-%d", m.seq)
	m.items[s.ID] = *s
	return nil
}

func (m *memorySchedulings) UpdateIfNoConflict(ctx context.Context, s *models.Scheduling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.ID]; !ok {
		return sql.ErrNoRows
	}
	if s.ClassID != nil && s.DisciplineID != nil && m.conflicts(candidateOf(s)) {
		return repository.ErrSchedulingConflict
	}
	m.items[s.ID] = *s
	return nil
}

func (m *memorySchedulings) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type fixtureCatalog struct {
	courses     map[string]*models.Course
	semesters   map[string]*models.Semester
	classes     map[string]*models.Class
	disciplines map[string]*models.Discipline
	users       map[string]*models.User
	directed    map[string][]string
}

func newFixtureCatalog() *fixtureCatalog {
	return &fixtureCatalog{
		courses: map[string]*models.Course{
			courseID:    {ID: courseID, Name: "Engenharia", Periods: []string{models.PeriodMorning}},
			otherCourse: {ID: otherCourse, Name: "Direito", Periods: []string{models.PeriodEvening}},
		},
		semesters: map[string]*models.Semester{
			semesterID: {ID: semesterID, CourseID: courseID, Name: "Período 1", Ordinal: 1},
		},
		classes: map[string]*models.Class{
			classID:      {ID: classID, CourseID: courseID, SemesterID: semesterID, Name: "Turma A"},
			otherClassID: {ID: otherClassID, CourseID: otherCourse, Name: "Turma B"},
		},
		disciplines: map[string]*models.Discipline{
			disciplineID: {ID: disciplineID, SemesterID: semesterID, Name: "Cálculo", DayPeriods: []string{models.PeriodMorning, models.PeriodAfternoon}},
			eveningDisc:  {ID: eveningDisc, SemesterID: semesterID, Name: "Ética", DayPeriods: []string{models.PeriodEvening}},
		},
		users: map[string]*models.User{
			ownerID:    {ID: ownerID, Email: "owner@edu.unifil.br"},
			strangerID: {ID: strangerID, Email: "stranger@edu.unifil.br"},
		},
		directed: map[string][]string{},
	}
}

type fixtureCourses struct{ c *fixtureCatalog }

func (f fixtureCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.c.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (f fixtureCourses) FindSemester(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := f.c.semesters[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureClasses struct{ c *fixtureCatalog }

func (f fixtureClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := f.c.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureDisciplines struct{ c *fixtureCatalog }

func (f fixtureDisciplines) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	if d, ok := f.c.disciplines[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureUsers struct{ c *fixtureCatalog }

func (f fixtureUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.c.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type fixtureDirectors struct{ c *fixtureCatalog }

func (f fixtureDirectors) DirectedCourseIDs(ctx context.Context, actor models.Actor) ([]string, error) {
	return f.c.directed[actor.UserID], nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) last() models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

type schedulingFixture struct {
	svc      *SchedulingService
	store    *memorySchedulings
	catalog  *fixtureCatalog
	notifier *recordingNotifier
}

func newSchedulingFixture(t *testing.T) *schedulingFixture {
	t.Helper()
	store := newMemorySchedulings()
	catalog := newFixtureCatalog()
	notify := &recordingNotifier{}
	svc := NewSchedulingService(SchedulingDeps{
		Repo:        store,
		Guard:       NewConflictGuard(store),
		Courses:     fixtureCourses{catalog},
		Classes:     fixtureClasses{catalog},
		Disciplines: fixtureDisciplines{catalog},
		Users:       fixtureUsers{catalog},
		Directors:   fixtureDirectors{catalog},
		Notifier:    notify,
		Location:    time.UTC,
	}, nil, zap.NewNop())
	return &schedulingFixture{svc: svc, store: store, catalog: catalog, notifier: notify}
}

func owner() models.Actor {
	return models.Actor{UserID: ownerID, Email: "owner@edu.unifil.br", Roles: []string{models.RoleProfessor}}
}

func slot(start, end string) SchedulingRequest {
	class, discipline := classID, disciplineID
	return SchedulingRequest{
		Name:         "Prova 1",
		Date:         "2025-03-10",
		StartTime:    start,
		EndTime:      end,
		CourseID:     courseID,
		SemesterID:   semesterID,
		ClassID:      &class,
		DisciplineID: &discipline,
	}
}

func TestSchedulingCreateRejectsOverlap(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner(), slot("10:00", "10:30"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, owner(), slot("10:15", "10:45"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrScheduleConflict.Code))

	_, err = f.svc.Create(ctx, owner(), slot("10:30", "11:00"))
	require.NoError(t, err, "touching intervals do not overlap")

	_, err = f.svc.Create(ctx, owner(), slot("09:00", "10:00"))
	require.NoError(t, err)

	items, _, err := f.svc.List(ctx, owner(), models.SchedulingFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSchedulingDifferentClassDoesNotConflict(t *testing.T) {
	f := newSchedulingFixture(t)
	f.catalog.classes[otherClassID].CourseID = courseID
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner(), slot("10:00", "11:00"))
	require.NoError(t, err)

	req := slot("10:00", "11:00")
	other := otherClassID
	req.ClassID = &other
	_, err = f.svc.Create(ctx, owner(), req)
	require.NoError(t, err)
}

func TestSchedulingRejectsEmptyInterval(t *testing.T) {
	f := newSchedulingFixture(t)
	_, err := f.svc.Create(context.Background(), owner(), slot("10:00", "10:00"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestSchedulingHierarchyChecks(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	req := slot("10:00", "11:00")
	foreign := otherClassID
	req.ClassID = &foreign
	_, err := f.svc.Create(ctx, owner(), req)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	req = slot("10:00", "11:00")
	evening := eveningDisc
	req.DisciplineID = &evening
	_, err = f.svc.Create(ctx, owner(), req)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	req = slot("10:00", "11:00")
	req.CourseID = "99999999-9999-9999-9999-999999999999"
	_, err = f.svc.Create(ctx, owner(), req)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	const (
		secondSemester = "22222222-2222-2222-2222-333333333333"
		lawSemester    = "22222222-2222-2222-2222-444444444444"
		lawDiscipline  = "44444444-4444-4444-4444-666666666666"
	)
	f.catalog.semesters[secondSemester] = &models.Semester{ID: secondSemester, CourseID: courseID, Name: "Período 2", Ordinal: 2}
	f.catalog.semesters[lawSemester] = &models.Semester{ID: lawSemester, CourseID: otherCourse, Name: "Período 1", Ordinal: 1}
	f.catalog.disciplines[lawDiscipline] = &models.Discipline{ID: lawDiscipline, SemesterID: lawSemester, Name: "Direito Civil", DayPeriods: []string{models.PeriodMorning}}

	req = slot("10:00", "11:00")
	req.SemesterID = secondSemester
	_, err = f.svc.Create(ctx, owner(), req)
	require.Error(t, err, "class and discipline sit in semester 1")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	req = slot("10:00", "11:00")
	req.SemesterID = secondSemester
	req.ClassID = nil
	req.DisciplineID = nil
	_, err = f.svc.Create(ctx, owner(), req)
	require.NoError(t, err, "a booking without class or discipline only needs the semester")

	req = slot("12:00", "13:00")
	foreignDiscipline := lawDiscipline
	req.DisciplineID = &foreignDiscipline
	_, err = f.svc.Create(ctx, owner(), req)
	require.Error(t, err, "discipline belongs to another course")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	req = slot("12:00", "13:00")
	req.ClassID = nil
	req.SemesterID = secondSemester
	_, err = f.svc.Create(ctx, owner(), req)
	require.Error(t, err, "discipline sits in semester 1")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	assert.Len(t, f.store.items, 1)
}

func TestSchedulingUpdateExcludesItself(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, owner(), slot("10:00", "11:00"))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, owner(), created.ID, slot("10:30", "11:30"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, ownerID, updated.UserID)

	sent := f.notifier.last()
	assert.Equal(t, models.TemplateSchedulingUpdated, sent.Template)
	assert.Equal(t, "10:00", sent.Params["before_start"])
	assert.Equal(t, "10:30", sent.Params["start"])
}

func TestSchedulingUpdateConflictsWithOthers(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner(), slot("08:00", "09:00"))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, owner(), slot("10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, owner(), second.ID, slot("08:30", "09:30"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrScheduleConflict.Code))
}

func TestSchedulingAuthorization(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, owner(), slot("10:00", "11:00"))
	require.NoError(t, err)

	stranger := models.Actor{UserID: strangerID, Roles: []string{models.RoleProfessor}}
	err = f.svc.Delete(ctx, stranger, created.ID)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	items, _, err := f.svc.List(ctx, stranger, models.SchedulingFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	director := models.Actor{UserID: strangerID, Roles: []string{models.RoleDirection}}
	f.catalog.directed[strangerID] = []string{courseID}
	items, _, err = f.svc.List(ctx, director, models.SchedulingFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.svc.Update(ctx, director, created.ID, slot("11:00", "12:00"))
	require.NoError(t, err)
	assert.Equal(t, "owner@edu.unifil.br", f.notifier.last().To)

	secretary := models.Actor{UserID: "77777777-7777-7777-7777-777777777777", Roles: []string{models.RoleSecretary}}
	require.NoError(t, f.svc.Delete(ctx, secretary, created.ID))

	_, err = f.svc.Get(ctx, secretary, created.ID)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestSchedulingCreateRequiresActor(t *testing.T) {
	f := newSchedulingFixture(t)
	_, err := f.svc.Create(context.Background(), models.Actor{}, slot("10:00", "11:00"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrUnauthorized.Code))
}

func TestSchedulingWriteFailureIsInternal(t *testing.T) {
	f := newSchedulingFixture(t)
	f.store.failOn = "create"
	_, err := f.svc.Create(context.Background(), owner(), slot("10:00", "11:00"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, f.notifier.sent)
}

func TestCheckAvailability(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, owner(), slot("10:00", "11:00"))
	require.NoError(t, err)

	query := AvailabilityRequest{Date: "2025-03-10", StartTime: "10:30", EndTime: "11:30", ClassID: classID, DisciplineID: disciplineID}
	res, err := f.svc.CheckAvailability(ctx, query)
	require.NoError(t, err)
	assert.False(t, res.Available)

	query.ExcludeID = "00000000-0000-0000-0000-000000000000"
	f.store.items[query.ExcludeID] = f.store.items[created.ID]
	delete(f.store.items, created.ID)
	res, err = f.svc.CheckAvailability(ctx, query)
	require.NoError(t, err)
	assert.True(t, res.Available)

	query = AvailabilityRequest{Date: "2025-03-11", StartTime: "10:30", EndTime: "11:30", ClassID: classID, DisciplineID: disciplineID}
	res, err = f.svc.CheckAvailability(ctx, query)
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestSchedulingExportCSV(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner(), slot("10:00", "11:00"))
	require.NoError(t, err)

	payload, filename, contentType, err := f.svc.Export(ctx, owner(), models.SchedulingFilter{}, "csv")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Prova 1")
	assert.Contains(t, string(payload), "10/03/2025")
	assert.Contains(t, filename, ".csv")
	assert.Contains(t, contentType, "text/csv")

	_, _, _, err = f.svc.Export(ctx, owner(), models.SchedulingFilter{}, "xlsx")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
