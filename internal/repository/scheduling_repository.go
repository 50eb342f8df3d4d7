package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

// ErrSchedulingConflict reports that a write would overlap an existing
// scheduling of the same class, discipline and date.
var ErrSchedulingConflict = errors.New("scheduling overlaps an existing booking")

// pgExclusionViolation is raised by the schedulings_no_overlap constraint.
const pgExclusionViolation = "23P01"

const schedulingColumns = "s.id, s.name, s.phone, s.date, s.start_time, s.end_time, s.details, s.user_id, s.course_id, s.semester_id, s.discipline_id, s.class_id, s.created_at, s.updated_at"

// Half-open overlap on the same date, class and discipline. $6 excludes the
// row being edited; pass an empty string to exclude nothing.
const overlapQuery = `SELECT EXISTS (SELECT 1 FROM schedulings
	WHERE date = $1 AND class_id = $2 AND discipline_id = $3
	AND start_time < $4 AND end_time > $5
	AND ($6 = '' OR id::text <> $6))`

// Transaction-scoped lock serialising writers of one class/discipline/date slot.
const slotLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// SchedulingRepository persists schedulings and answers overlap queries.
type SchedulingRepository struct {
	db *sqlx.DB
}

// NewSchedulingRepository constructs a SchedulingRepository.
func NewSchedulingRepository(db *sqlx.DB) *SchedulingRepository {
	return &SchedulingRepository{db: db}
}

// List returns schedulings matching filters along with total count.
func (r *SchedulingRepository) List(ctx context.Context, filter models.SchedulingFilter) ([]models.Scheduling, int, error) {
	base, args := schedulingWhere(filter)

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY s.date ASC, s.start_time ASC LIMIT %d OFFSET %d", schedulingColumns, base, size, offset)
	var schedulings []models.Scheduling
	if err := r.db.SelectContext(ctx, &schedulings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedulings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedulings: %w", err)
	}
	return schedulings, total, nil
}

// ListRows returns every matching scheduling joined with display names.
func (r *SchedulingRepository) ListRows(ctx context.Context, filter models.SchedulingFilter) ([]models.SchedulingRow, error) {
	base, args := schedulingWhere(filter)
	query := `SELECT ` + schedulingColumns + `, u.name AS user_name, u.email AS user_email, c.name AS course_name,
		sm.name AS semester_name, d.name AS discipline_name, cl.name AS class_name ` +
		strings.Replace(base, "FROM schedulings s", `FROM schedulings s
		JOIN users u ON u.id = s.user_id
		JOIN courses c ON c.id = s.course_id
		JOIN semesters sm ON sm.id = s.semester_id
		LEFT JOIN disciplines d ON d.id = s.discipline_id
		LEFT JOIN classes cl ON cl.id = s.class_id`, 1) +
		" ORDER BY s.date ASC, s.start_time ASC"
	var rows []models.SchedulingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scheduling rows: %w", err)
	}
	return rows, nil
}

// FindByID fetches a scheduling by ID.
func (r *SchedulingRepository) FindByID(ctx context.Context, id string) (*models.Scheduling, error) {
	query := "SELECT " + schedulingColumns + " FROM schedulings s WHERE s.id = $1"
	var scheduling models.Scheduling
	if err := r.db.GetContext(ctx, &scheduling, query, id); err != nil {
		return nil, err
	}
	return &scheduling, nil
}

// HasConflict reports whether the candidate overlaps a stored scheduling.
func (r *SchedulingRepository) HasConflict(ctx context.Context, candidate models.ConflictCandidate) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, overlapQuery, overlapArgs(candidate)...); err != nil {
		return false, fmt.Errorf("check scheduling conflict: %w", err)
	}
	return exists, nil
}

// CreateIfNoConflict inserts the scheduling unless it overlaps another one.
// The check and the insert share one transaction holding the slot lock.
func (r *SchedulingRepository) CreateIfNoConflict(ctx context.Context, scheduling *models.Scheduling) error {
	if scheduling.ID == "" {
		scheduling.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	scheduling.CreatedAt = now
	scheduling.UpdatedAt = now

	err := withTx(ctx, r.db, "create scheduling", func(tx *sqlx.Tx) error {
		if err := guardSlot(ctx, tx, scheduling); err != nil {
			return err
		}
		const insert = `INSERT INTO schedulings (id, name, phone, date, start_time, end_time, details, user_id, course_id, semester_id, discipline_id, class_id, created_at, updated_at)
			VALUES (:id, :name, :phone, :date, :start_time, :end_time, :details, :user_id, :course_id, :semester_id, :discipline_id, :class_id, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, scheduling); err != nil {
			return fmt.Errorf("insert scheduling: %w", err)
		}
		return nil
	})
	return mapExclusion(err)
}

// UpdateIfNoConflict rewrites the scheduling unless its new interval
// overlaps another one. The row itself is excluded from the check.
func (r *SchedulingRepository) UpdateIfNoConflict(ctx context.Context, scheduling *models.Scheduling) error {
	scheduling.UpdatedAt = time.Now().UTC()

	err := withTx(ctx, r.db, "update scheduling", func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "schedulings", scheduling.ID); err != nil {
			return err
		}
		if err := guardSlot(ctx, tx, scheduling); err != nil {
			return err
		}
		const update = `UPDATE schedulings SET name = :name, phone = :phone, date = :date, start_time = :start_time,
			end_time = :end_time, details = :details, course_id = :course_id, semester_id = :semester_id,
			discipline_id = :discipline_id, class_id = :class_id, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, update, scheduling); err != nil {
			return fmt.Errorf("update scheduling: %w", err)
		}
		return nil
	})
	return mapExclusion(err)
}

// Delete removes a scheduling.
func (r *SchedulingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedulings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete scheduling: %w", err)
	}
	return nil
}

// SlotKey identifies the class/discipline/date slot guarded by the advisory lock.
func SlotKey(date time.Time, classID, disciplineID string) string {
	return strings.Join([]string{"scheduling", date.Format("2006-01-02"), classID, disciplineID}, ":")
}

func guardSlot(ctx context.Context, tx *sqlx.Tx, s *models.Scheduling) error {
	if s.ClassID == nil || s.DisciplineID == nil {
		return nil
	}
	candidate := models.ConflictCandidate{
		Date:         s.Date,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		ClassID:      *s.ClassID,
		DisciplineID: *s.DisciplineID,
		ExcludeID:    s.ID,
	}
	if _, err := tx.ExecContext(ctx, slotLockQuery, SlotKey(s.Date, candidate.ClassID, candidate.DisciplineID)); err != nil {
		return fmt.Errorf("lock scheduling slot: %w", err)
	}
	var exists bool
	if err := tx.GetContext(ctx, &exists, overlapQuery, overlapArgs(candidate)...); err != nil {
		return fmt.Errorf("check scheduling conflict: %w", err)
	}
	if exists {
		return ErrSchedulingConflict
	}
	return nil
}

func overlapArgs(c models.ConflictCandidate) []interface{} {
	return []interface{}{c.Date.Format("2006-01-02"), c.ClassID, c.DisciplineID, c.EndTime, c.StartTime, c.ExcludeID}
}

func mapExclusion(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgExclusionViolation {
		return ErrSchedulingConflict
	}
	return err
}

func schedulingWhere(filter models.SchedulingFilter) (string, []interface{}) {
	base := "FROM schedulings s WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.DisciplineID != "" {
		conditions = append(conditions, fmt.Sprintf("s.discipline_id = $%d", len(args)+1))
		args = append(args, filter.DisciplineID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.date >= $%d", len(args)+1))
		args = append(args, filter.From.Format("2006-01-02"))
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.date <= $%d", len(args)+1))
		args = append(args, filter.To.Format("2006-01-02"))
	}
	if filter.Restricted {
		conditions = append(conditions, fmt.Sprintf("(s.user_id = $%d OR s.course_id = ANY($%d))", len(args)+1, len(args)+2))
		args = append(args, filter.OwnerID, pq.Array(filter.VisibleCourseIDs))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	return base, args
}
