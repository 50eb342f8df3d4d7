package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

const teacherColumns = "t.id, t.name, t.status, t.created_at, t.updated_at"

var teacherDeleteSteps = []cascadeStep{
	{"course teachers", `DELETE FROM course_teachers WHERE teacher_id = $1`},
	{"discipline teachers", `DELETE FROM discipline_teachers WHERE teacher_id = $1`},
	{"teacher", `DELETE FROM teachers WHERE id = $1`},
}

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers t WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM course_teachers ct WHERE ct.teacher_id = t.id AND ct.course_id = $%d)", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(t.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY t.name ASC LIMIT %d OFFSET %d", teacherColumns, base, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := "SELECT " + teacherColumns + " FROM teachers t WHERE t.id = $1"
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// LoadRelations fills the relation ids of a teacher detail.
func (r *TeacherRepository) LoadRelations(ctx context.Context, detail *models.TeacherDetail) error {
	var err error
	if detail.CourseIDs, err = teacherCourses.list(ctx, r.db, detail.ID); err != nil {
		return err
	}
	if detail.DisciplineIDs, err = teacherDisciplines.list(ctx, r.db, detail.ID); err != nil {
		return err
	}
	return nil
}

// Create inserts a teacher and its links.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher, courseIDs, disciplineIDs []string) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	return withTx(ctx, r.db, "create teacher", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO teachers (id, name, status, created_at, updated_at) VALUES (:id, :name, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, teacher); err != nil {
			return fmt.Errorf("insert teacher: %w", err)
		}
		if err := teacherCourses.replace(ctx, tx, teacher.ID, courseIDs); err != nil {
			return err
		}
		return teacherDisciplines.replace(ctx, tx, teacher.ID, disciplineIDs)
	})
}

// Update modifies a teacher. Nil link slices leave links untouched.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher, courseIDs, disciplineIDs []string) error {
	teacher.UpdatedAt = time.Now().UTC()
	return withTx(ctx, r.db, "update teacher", func(tx *sqlx.Tx) error {
		const update = `UPDATE teachers SET name = :name, status = :status, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, update, teacher); err != nil {
			return fmt.Errorf("update teacher: %w", err)
		}
		if courseIDs != nil {
			if err := teacherCourses.replace(ctx, tx, teacher.ID, courseIDs); err != nil {
				return err
			}
		}
		if disciplineIDs != nil {
			if err := teacherDisciplines.replace(ctx, tx, teacher.ID, disciplineIDs); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCascade removes a teacher and its course/discipline links.
func (r *TeacherRepository) DeleteCascade(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete teacher", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "teachers", id); err != nil {
			return err
		}
		return runSteps(ctx, tx, teacherDeleteSteps, id)
	})
}
