package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/hierarchy"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

const courseColumns = "id, name, status, periods, semester_duration, created_at, updated_at"

// Statements removing a set of semesters ($1 = uuid[]) and everything below them.
var semesterRemovalSteps = []cascadeStep{
	{"schedulings", `DELETE FROM schedulings WHERE semester_id = ANY($1)
		OR discipline_id IN (SELECT id FROM disciplines WHERE semester_id = ANY($1))
		OR class_id IN (SELECT id FROM classes WHERE semester_id = ANY($1))`},
	{"discipline teachers", `DELETE FROM discipline_teachers WHERE discipline_id IN (SELECT id FROM disciplines WHERE semester_id = ANY($1))`},
	{"course disciplines", `DELETE FROM course_disciplines WHERE discipline_id IN (SELECT id FROM disciplines WHERE semester_id = ANY($1))`},
	{"disciplines", `DELETE FROM disciplines WHERE semester_id = ANY($1)`},
	{"classes", `DELETE FROM classes WHERE semester_id = ANY($1)`},
	{"semesters", `DELETE FROM semesters WHERE id = ANY($1)`},
}

// Statements removing a course ($1) with all dependents.
var courseDeleteSteps = []cascadeStep{
	{"schedulings", `DELETE FROM schedulings WHERE course_id = $1
		OR semester_id IN (SELECT id FROM semesters WHERE course_id = $1)
		OR class_id IN (SELECT id FROM classes WHERE course_id = $1)
		OR discipline_id IN (SELECT d.id FROM disciplines d JOIN semesters s ON s.id = d.semester_id WHERE s.course_id = $1)`},
	{"discipline teachers", `DELETE FROM discipline_teachers WHERE discipline_id IN (SELECT d.id FROM disciplines d JOIN semesters s ON s.id = d.semester_id WHERE s.course_id = $1)`},
	{"course disciplines", `DELETE FROM course_disciplines WHERE course_id = $1
		OR discipline_id IN (SELECT d.id FROM disciplines d JOIN semesters s ON s.id = d.semester_id WHERE s.course_id = $1)`},
	{"course teachers", `DELETE FROM course_teachers WHERE course_id = $1`},
	{"course directors", `DELETE FROM course_directors WHERE course_id = $1`},
	{"disciplines", `DELETE FROM disciplines WHERE semester_id IN (SELECT id FROM semesters WHERE course_id = $1)`},
	{"classes", `DELETE FROM classes WHERE course_id = $1 OR semester_id IN (SELECT id FROM semesters WHERE course_id = $1)`},
	{"semesters", `DELETE FROM semesters WHERE course_id = $1`},
	{"course", `DELETE FROM courses WHERE id = $1`},
}

// CourseRepository manages courses and their semesters.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching filters along with total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", courseColumns, base, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE id = $1"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListSemesters returns the live semesters of a course ordered by ordinal.
func (r *CourseRepository) ListSemesters(ctx context.Context, courseID string) ([]models.Semester, error) {
	const query = `SELECT id, course_id, name, ordinal, created_at FROM semesters WHERE course_id = $1 ORDER BY ordinal, name`
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query, courseID); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return hierarchy.SortSemesters(semesters), nil
}

// FindSemester fetches a semester by ID.
func (r *CourseRepository) FindSemester(ctx context.Context, id string) (*models.Semester, error) {
	const query = `SELECT id, course_id, name, ordinal, created_at FROM semesters WHERE id = $1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// LoadRelations fills the relation ids of a course detail.
func (r *CourseRepository) LoadRelations(ctx context.Context, detail *models.CourseDetail) error {
	var err error
	if detail.TeacherIDs, err = courseTeachers.list(ctx, r.db, detail.ID); err != nil {
		return err
	}
	if detail.DisciplineIDs, err = courseDisciplines.list(ctx, r.db, detail.ID); err != nil {
		return err
	}
	if detail.DirectorIDs, err = courseDirectors.list(ctx, r.db, detail.ID); err != nil {
		return err
	}
	return nil
}

// Create inserts a course together with its initial semesters and links.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course, teacherIDs, directorIDs []string) ([]models.Semester, error) {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if course.Periods == nil {
		course.Periods = pq.StringArray{}
	}

	semesters := hierarchy.InitialSemesters(course.ID, course.SemesterDuration)
	err := withTx(ctx, r.db, "create course", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO courses (id, name, status, periods, semester_duration, created_at, updated_at)
			VALUES (:id, :name, :status, :periods, :semester_duration, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, course); err != nil {
			return fmt.Errorf("insert course: %w", err)
		}
		if err := insertSemesters(ctx, tx, semesters, now); err != nil {
			return err
		}
		if err := courseTeachers.replace(ctx, tx, course.ID, teacherIDs); err != nil {
			return err
		}
		return courseDirectors.replace(ctx, tx, course.ID, directorIDs)
	})
	if err != nil {
		return nil, err
	}
	return semesters, nil
}

// UpdateWithResize updates course fields and reconciles its semesters with
// course.SemesterDuration in one transaction. Removed semesters take their
// disciplines, classes, schedulings and links with them. Non-nil teacherIDs
// or directorIDs replace the course links in the same transaction.
func (r *CourseRepository) UpdateWithResize(ctx context.Context, course *models.Course, teacherIDs, directorIDs []string) (hierarchy.ResizePlan, error) {
	var plan hierarchy.ResizePlan
	course.UpdatedAt = time.Now().UTC()
	if course.Periods == nil {
		course.Periods = pq.StringArray{}
	}

	err := withTx(ctx, r.db, "update course", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "courses", course.ID); err != nil {
			return err
		}

		var semesters []models.Semester
		const load = `SELECT id, course_id, name, ordinal, created_at FROM semesters WHERE course_id = $1`
		if err := tx.SelectContext(ctx, &semesters, load, course.ID); err != nil {
			return fmt.Errorf("load semesters: %w", err)
		}

		var err error
		plan, err = hierarchy.PlanResize(course.ID, semesters, course.SemesterDuration)
		if err != nil {
			return err
		}

		if len(plan.Remove) > 0 {
			if err := runSteps(ctx, tx, semesterRemovalSteps, pq.Array(plan.RemoveIDs())); err != nil {
				return err
			}
		}

		const update = `UPDATE courses SET name = :name, status = :status, periods = :periods,
			semester_duration = :semester_duration, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, update, course); err != nil {
			return fmt.Errorf("update course: %w", err)
		}

		for i := range plan.Add {
			plan.Add[i].ID = uuid.NewString()
		}
		if err := insertSemesters(ctx, tx, plan.Add, course.UpdatedAt); err != nil {
			return err
		}

		if teacherIDs != nil {
			if err := courseTeachers.replace(ctx, tx, course.ID, teacherIDs); err != nil {
				return err
			}
		}
		if directorIDs != nil {
			return courseDirectors.replace(ctx, tx, course.ID, directorIDs)
		}
		return nil
	})
	if err != nil {
		return hierarchy.ResizePlan{}, err
	}
	return plan, nil
}

// DeleteCascade removes a course and everything that depends on it.
// sql.ErrNoRows is returned before any mutation when the course is absent.
func (r *CourseRepository) DeleteCascade(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete course", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "courses", id); err != nil {
			return err
		}
		return runSteps(ctx, tx, courseDeleteSteps, id)
	})
}

func insertSemesters(ctx context.Context, tx *sqlx.Tx, semesters []models.Semester, now time.Time) error {
	const insert = `INSERT INTO semesters (id, course_id, name, ordinal, created_at) VALUES (:id, :course_id, :name, :ordinal, :created_at)`
	for i := range semesters {
		if semesters[i].ID == "" {
			semesters[i].ID = uuid.NewString()
		}
		semesters[i].CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, semesters[i]); err != nil {
			return fmt.Errorf("insert semester: %w", err)
		}
	}
	return nil
}
