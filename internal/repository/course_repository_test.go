package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

func TestCourseDeleteCascadeOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	expectLock(mock, "courses", "c1", true)
	expectSteps(mock,
		"DELETE FROM schedulings WHERE course_id",
		"DELETE FROM discipline_teachers",
		"DELETE FROM course_disciplines",
		"DELETE FROM course_teachers",
		"DELETE FROM course_directors",
		"DELETE FROM disciplines WHERE semester_id IN",
		"DELETE FROM classes",
		"DELETE FROM semesters WHERE course_id",
		"DELETE FROM courses WHERE id",
	)
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascadeMissingCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	expectLock(mock, "courses", "missing", false)
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascadeRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	expectLock(mock, "courses", "c1", true)
	expectSteps(mock,
		"DELETE FROM schedulings",
		"DELETE FROM discipline_teachers",
		"DELETE FROM course_disciplines",
		"DELETE FROM course_teachers",
		"DELETE FROM course_directors",
	)
	mock.ExpectExec("DELETE FROM disciplines").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete disciplines")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func semesterRows(courseID string, ordinals ...int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "course_id", "name", "ordinal", "created_at"})
	now := time.Now()
	for _, o := range ordinals {
		rows.AddRow("s"+string(rune('0'+o)), courseID, "Período", o, now)
	}
	return rows
}

func TestCourseUpdateWithResizeShrinks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	expectLock(mock, "courses", "c1", true)
	mock.ExpectQuery("SELECT id, course_id, name, ordinal, created_at FROM semesters WHERE course_id = \\$1").
		WithArgs("c1").
		WillReturnRows(semesterRows("c1", 3, 1, 2))
	expectSteps(mock,
		"DELETE FROM schedulings WHERE semester_id = ANY",
		"DELETE FROM discipline_teachers",
		"DELETE FROM course_disciplines",
		"DELETE FROM disciplines WHERE semester_id = ANY",
		"DELETE FROM classes WHERE semester_id = ANY",
		"DELETE FROM semesters WHERE id = ANY",
	)
	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	course := &models.Course{ID: "c1", Name: "Direito", Status: models.StatusActive, Periods: pq.StringArray{models.PeriodMorning}, SemesterDuration: 1}
	plan, err := repo.UpdateWithResize(context.Background(), course, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s2", "s3"}, plan.RemoveIDs())
	assert.Empty(t, plan.Add)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseUpdateWithResizeGrows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	expectLock(mock, "courses", "c1", true)
	mock.ExpectQuery("SELECT id, course_id, name, ordinal, created_at FROM semesters").
		WillReturnRows(semesterRows("c1", 1, 2))
	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO semesters").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO semesters").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	course := &models.Course{ID: "c1", Name: "Direito", SemesterDuration: 4}
	plan, err := repo.UpdateWithResize(context.Background(), course, nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.Add, 2)
	assert.Equal(t, 3, plan.Add[0].Ordinal)
	assert.Equal(t, "Período 4", plan.Add[1].Name)
	assert.NotEmpty(t, plan.Add[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseUpdateWithResizeRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	expectLock(mock, "courses", "c1", true)
	mock.ExpectQuery("SELECT id, course_id, name, ordinal, created_at FROM semesters").
		WillReturnRows(semesterRows("c1", 1, 2, 3))
	expectSteps(mock, "DELETE FROM schedulings")
	mock.ExpectExec("DELETE FROM discipline_teachers").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.UpdateWithResize(context.Background(), &models.Course{ID: "c1", SemesterDuration: 2}, nil, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseUpdateWithResizeLinksShareTx(t *testing.T) {
	t.Run("links replaced before commit", func(t *testing.T) {
		db, mock, cleanup := newMock(t)
		defer cleanup()
		repo := NewCourseRepository(db)

		mock.ExpectBegin()
		expectLock(mock, "courses", "c1", true)
		mock.ExpectQuery("SELECT id, course_id, name, ordinal, created_at FROM semesters").
			WillReturnRows(semesterRows("c1", 1, 2))
		mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 1))
		expectSteps(mock,
			"DELETE FROM course_teachers WHERE course_id",
			"INSERT INTO course_teachers",
			"DELETE FROM course_directors WHERE course_id",
		)
		mock.ExpectCommit()

		course := &models.Course{ID: "c1", Name: "Direito", SemesterDuration: 2}
		_, err := repo.UpdateWithResize(context.Background(), course, []string{"t1"}, []string{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed link rolls back the shrink", func(t *testing.T) {
		db, mock, cleanup := newMock(t)
		defer cleanup()
		repo := NewCourseRepository(db)

		mock.ExpectBegin()
		expectLock(mock, "courses", "c1", true)
		mock.ExpectQuery("SELECT id, course_id, name, ordinal, created_at FROM semesters").
			WillReturnRows(semesterRows("c1", 1, 2, 3, 4))
		expectSteps(mock,
			"DELETE FROM schedulings WHERE semester_id = ANY",
			"DELETE FROM discipline_teachers",
			"DELETE FROM course_disciplines",
			"DELETE FROM disciplines WHERE semester_id = ANY",
			"DELETE FROM classes WHERE semester_id = ANY",
			"DELETE FROM semesters WHERE id = ANY",
		)
		mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 1))
		expectSteps(mock, "DELETE FROM course_teachers WHERE course_id")
		mock.ExpectExec("INSERT INTO course_teachers").WillReturnError(errors.New("fk violation"))
		mock.ExpectRollback()

		course := &models.Course{ID: "c1", Name: "Direito", SemesterDuration: 2}
		_, err := repo.UpdateWithResize(context.Background(), course, []string{"missing"}, nil)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCourseCreateInsertsSemestersAndLinks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO semesters").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO semesters").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM course_teachers WHERE course_id = \\$1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO course_teachers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM course_directors WHERE course_id = \\$1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	course := &models.Course{Name: "ADS", Status: models.StatusActive, SemesterDuration: 2}
	semesters, err := repo.Create(context.Background(), course, []string{"t1"}, nil)
	require.NoError(t, err)
	require.Len(t, semesters, 2)
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, course.ID, semesters[1].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
