package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// cascadeStep is one ordered statement of a multi-table delete.
type cascadeStep struct {
	label string
	query string
}

// withTx runs fn inside a transaction. Any error returned by fn rolls the
// transaction back; the error is returned unchanged so callers can still
// match sql.ErrNoRows.
func withTx(ctx context.Context, db *sqlx.DB, label string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", label, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", label, err)
	}
	return nil
}

// runSteps executes steps in order with the same arguments.
func runSteps(ctx context.Context, tx *sqlx.Tx, steps []cascadeStep, args ...interface{}) error {
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, args...); err != nil {
			return fmt.Errorf("delete %s: %w", step.label, err)
		}
	}
	return nil
}

// lockRow selects the row FOR UPDATE and returns sql.ErrNoRows when absent.
func lockRow(ctx context.Context, tx *sqlx.Tx, table, id string) error {
	var found string
	query := fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", table)
	if err := tx.GetContext(ctx, &found, query, id); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock %s: %w", table, err)
	}
	return nil
}

// linkTable describes a many-to-many join table from one side.
type linkTable struct {
	table    string
	ownerCol string
	otherCol string
}

func (l linkTable) replace(ctx context.Context, tx *sqlx.Tx, ownerID string, otherIDs []string) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", l.table, l.ownerCol)
	if _, err := tx.ExecContext(ctx, del, ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", l.table, err)
	}
	if len(otherIDs) == 0 {
		return nil
	}
	ins := fmt.Sprintf("INSERT INTO %s (%s, %s) SELECT $1, UNNEST($2::uuid[]) ON CONFLICT DO NOTHING", l.table, l.ownerCol, l.otherCol)
	if _, err := tx.ExecContext(ctx, ins, ownerID, pq.Array(otherIDs)); err != nil {
		return fmt.Errorf("link %s: %w", l.table, err)
	}
	return nil
}

func (l linkTable) list(ctx context.Context, q sqlx.QueryerContext, ownerID string) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY %s", l.otherCol, l.table, l.ownerCol, l.otherCol)
	ids := []string{}
	if err := sqlx.SelectContext(ctx, q, &ids, query, ownerID); err != nil {
		return nil, fmt.Errorf("list %s: %w", l.table, err)
	}
	return ids, nil
}

var (
	courseTeachers     = linkTable{table: "course_teachers", ownerCol: "course_id", otherCol: "teacher_id"}
	courseDisciplines  = linkTable{table: "course_disciplines", ownerCol: "course_id", otherCol: "discipline_id"}
	courseDirectors    = linkTable{table: "course_directors", ownerCol: "course_id", otherCol: "director_id"}
	disciplineCourses  = linkTable{table: "course_disciplines", ownerCol: "discipline_id", otherCol: "course_id"}
	disciplineTeachers = linkTable{table: "discipline_teachers", ownerCol: "discipline_id", otherCol: "teacher_id"}
	teacherCourses     = linkTable{table: "course_teachers", ownerCol: "teacher_id", otherCol: "course_id"}
	teacherDisciplines = linkTable{table: "discipline_teachers", ownerCol: "teacher_id", otherCol: "discipline_id"}
	directorCourses    = linkTable{table: "course_directors", ownerCol: "director_id", otherCol: "course_id"}
)

func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}
