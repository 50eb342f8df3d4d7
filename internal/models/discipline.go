package models

import (
	"time"

	"github.com/lib/pq"
)

// Discipline is a subject taught within a semester during some day periods.
type Discipline struct {
	ID         string         `db:"id" json:"id"`
	SemesterID string         `db:"semester_id" json:"semester_id"`
	Name       string         `db:"name" json:"name"`
	Status     string         `db:"status" json:"status"`
	DayPeriods pq.StringArray `db:"day_periods" json:"day_periods"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// DisciplineDetail adds relation ids to a discipline.
type DisciplineDetail struct {
	Discipline
	CourseIDs  []string `json:"course_ids"`
	TeacherIDs []string `json:"teacher_ids"`
}

// DisciplineFilter defines filter criteria for listing disciplines.
type DisciplineFilter struct {
	SemesterID string
	CourseID   string
	TeacherID  string
	Search     string
	Page       int
	PageSize   int
}
