package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

const disciplineColumns = "d.id, d.semester_id, d.name, d.status, d.day_periods, d.created_at, d.updated_at"

var disciplineDeleteSteps = []cascadeStep{
	{"schedulings", `DELETE FROM schedulings WHERE discipline_id = $1`},
	{"discipline teachers", `DELETE FROM discipline_teachers WHERE discipline_id = $1`},
	{"course disciplines", `DELETE FROM course_disciplines WHERE discipline_id = $1`},
	{"discipline", `DELETE FROM disciplines WHERE id = $1`},
}

// DisciplineRepository manages disciplines and their course/teacher links.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository constructs a DisciplineRepository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

// List returns disciplines matching filters along with total count.
func (r *DisciplineRepository) List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, int, error) {
	base := "FROM disciplines d WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("d.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM course_disciplines cd WHERE cd.discipline_id = d.id AND cd.course_id = $%d)", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM discipline_teachers dt WHERE dt.discipline_id = d.id AND dt.teacher_id = $%d)", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(d.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY d.name ASC LIMIT %d OFFSET %d", disciplineColumns, base, size, offset)
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list disciplines: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count disciplines: %w", err)
	}
	return disciplines, total, nil
}

// FindByID fetches a discipline by ID.
func (r *DisciplineRepository) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	query := "SELECT " + disciplineColumns + " FROM disciplines d WHERE d.id = $1"
	var discipline models.Discipline
	if err := r.db.GetContext(ctx, &discipline, query, id); err != nil {
		return nil, err
	}
	return &discipline, nil
}

// LoadRelations fills the relation ids of a discipline detail.
func (r *DisciplineRepository) LoadRelations(ctx context.Context, detail *models.DisciplineDetail) error {
	var err error
	if detail.CourseIDs, err = disciplineCourses.list(ctx, r.db, detail.ID); err != nil {
		return err
	}
	if detail.TeacherIDs, err = disciplineTeachers.list(ctx, r.db, detail.ID); err != nil {
		return err
	}
	return nil
}

// Create inserts a discipline and its links in one transaction.
func (r *DisciplineRepository) Create(ctx context.Context, discipline *models.Discipline, courseIDs, teacherIDs []string) error {
	if discipline.ID == "" {
		discipline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	discipline.CreatedAt = now
	discipline.UpdatedAt = now
	if discipline.DayPeriods == nil {
		discipline.DayPeriods = pq.StringArray{}
	}

	return withTx(ctx, r.db, "create discipline", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO disciplines (id, semester_id, name, status, day_periods, created_at, updated_at)
			VALUES (:id, :semester_id, :name, :status, :day_periods, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, discipline); err != nil {
			return fmt.Errorf("insert discipline: %w", err)
		}
		if err := disciplineCourses.replace(ctx, tx, discipline.ID, courseIDs); err != nil {
			return err
		}
		return disciplineTeachers.replace(ctx, tx, discipline.ID, teacherIDs)
	})
}

// Update modifies a discipline. Nil link slices leave links untouched.
func (r *DisciplineRepository) Update(ctx context.Context, discipline *models.Discipline, courseIDs, teacherIDs []string) error {
	discipline.UpdatedAt = time.Now().UTC()
	if discipline.DayPeriods == nil {
		discipline.DayPeriods = pq.StringArray{}
	}

	return withTx(ctx, r.db, "update discipline", func(tx *sqlx.Tx) error {
		const update = `UPDATE disciplines SET semester_id = :semester_id, name = :name, status = :status,
			day_periods = :day_periods, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, update, discipline); err != nil {
			return fmt.Errorf("update discipline: %w", err)
		}
		if courseIDs != nil {
			if err := disciplineCourses.replace(ctx, tx, discipline.ID, courseIDs); err != nil {
				return err
			}
		}
		if teacherIDs != nil {
			if err := disciplineTeachers.replace(ctx, tx, discipline.ID, teacherIDs); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCascade removes a discipline with its schedulings and links.
func (r *DisciplineRepository) DeleteCascade(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete discipline", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "disciplines", id); err != nil {
			return err
		}
		return runSteps(ctx, tx, disciplineDeleteSteps, id)
	})
}
