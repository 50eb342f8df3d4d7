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

const directorColumns = "dr.id, dr.name, dr.email, dr.status, dr.user_id, dr.created_at, dr.updated_at"

var directorDeleteSteps = []cascadeStep{
	{"course directors", `DELETE FROM course_directors WHERE director_id = $1`},
	{"director", `DELETE FROM directors WHERE id = $1`},
}

// DirectorRepository manages directors and the courses they oversee.
type DirectorRepository struct {
	db *sqlx.DB
}

// NewDirectorRepository constructs a DirectorRepository.
func NewDirectorRepository(db *sqlx.DB) *DirectorRepository {
	return &DirectorRepository{db: db}
}

// List returns directors matching filters along with total count.
func (r *DirectorRepository) List(ctx context.Context, filter models.DirectorFilter) ([]models.Director, int, error) {
	base := "FROM directors dr WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("dr.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM course_directors cd WHERE cd.director_id = dr.id AND cd.course_id = $%d)", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(dr.name) LIKE $%d OR LOWER(dr.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY dr.name ASC LIMIT %d OFFSET %d", directorColumns, base, size, offset)
	var directors []models.Director
	if err := r.db.SelectContext(ctx, &directors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list directors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count directors: %w", err)
	}
	return directors, total, nil
}

// FindByID fetches a director by ID.
func (r *DirectorRepository) FindByID(ctx context.Context, id string) (*models.Director, error) {
	query := "SELECT " + directorColumns + " FROM directors dr WHERE dr.id = $1"
	var director models.Director
	if err := r.db.GetContext(ctx, &director, query, id); err != nil {
		return nil, err
	}
	return &director, nil
}

// CourseIDs lists the courses a director oversees.
func (r *DirectorRepository) CourseIDs(ctx context.Context, directorID string) ([]string, error) {
	return directorCourses.list(ctx, r.db, directorID)
}

// CourseIDsByUser lists the courses directed by the director linked to a
// user account, matched by user id or by email.
func (r *DirectorRepository) CourseIDsByUser(ctx context.Context, userID, email string) ([]string, error) {
	const query = `SELECT DISTINCT cd.course_id FROM course_directors cd
		JOIN directors dr ON dr.id = cd.director_id
		WHERE dr.status = 'ACTIVE' AND (dr.user_id::text = $1 OR LOWER(dr.email) = LOWER($2))
		ORDER BY cd.course_id`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, userID, email); err != nil {
		return nil, fmt.Errorf("list directed courses: %w", err)
	}
	return ids, nil
}

// Create inserts a director and its course links.
func (r *DirectorRepository) Create(ctx context.Context, director *models.Director, courseIDs []string) error {
	if director.ID == "" {
		director.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	director.CreatedAt = now
	director.UpdatedAt = now

	return withTx(ctx, r.db, "create director", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO directors (id, name, email, status, user_id, created_at, updated_at)
			VALUES (:id, :name, :email, :status, :user_id, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, director); err != nil {
			return fmt.Errorf("insert director: %w", err)
		}
		return directorCourses.replace(ctx, tx, director.ID, courseIDs)
	})
}

// Update modifies a director. A nil courseIDs leaves links untouched.
func (r *DirectorRepository) Update(ctx context.Context, director *models.Director, courseIDs []string) error {
	director.UpdatedAt = time.Now().UTC()
	return withTx(ctx, r.db, "update director", func(tx *sqlx.Tx) error {
		const update = `UPDATE directors SET name = :name, email = :email, status = :status, user_id = :user_id, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, update, director); err != nil {
			return fmt.Errorf("update director: %w", err)
		}
		if courseIDs == nil {
			return nil
		}
		return directorCourses.replace(ctx, tx, director.ID, courseIDs)
	})
}

// DeleteCascade removes a director and its course links.
func (r *DirectorRepository) DeleteCascade(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete director", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "directors", id); err != nil {
			return err
		}
		return runSteps(ctx, tx, directorDeleteSteps, id)
	})
}
