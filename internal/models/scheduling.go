package models

import "time"

// Scheduling is a timed booking (an exam) for a class and discipline.
// StartTime and EndTime are instants on Date; the interval is half-open.
type Scheduling struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Date         time.Time `db:"date" json:"date"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	Details      *string   `db:"details" json:"details,omitempty"`
	UserID       string    `db:"user_id" json:"user_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	DisciplineID *string   `db:"discipline_id" json:"discipline_id,omitempty"`
	ClassID      *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SchedulingRow is a scheduling joined with display names for reports.
type SchedulingRow struct {
	Scheduling
	UserName       string  `db:"user_name" json:"user_name"`
	UserEmail      string  `db:"user_email" json:"user_email"`
	CourseName     string  `db:"course_name" json:"course_name"`
	SemesterName   string  `db:"semester_name" json:"semester_name"`
	DisciplineName *string `db:"discipline_name" json:"discipline_name,omitempty"`
	ClassName      *string `db:"class_name" json:"class_name,omitempty"`
}

// SchedulingFilter describes query params for listing schedulings.
// When Restricted is set only rows owned by OwnerID or belonging to
// VisibleCourseIDs are returned.
type SchedulingFilter struct {
	CourseID         string
	ClassID          string
	DisciplineID     string
	From             *time.Time
	To               *time.Time
	Restricted       bool
	OwnerID          string
	VisibleCourseIDs []string
	Page             int
	PageSize         int
}

// ConflictCandidate is a proposed interval plus its scoping keys.
type ConflictCandidate struct {
	Date         time.Time
	StartTime    time.Time
	EndTime      time.Time
	ClassID      string
	DisciplineID string
	ExcludeID    string
}
