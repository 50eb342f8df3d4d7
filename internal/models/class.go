package models

import "time"

// Class is a cohort of a course attending a given semester.
type Class struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	CourseID   string
	SemesterID string
	Search     string
	Page       int
	PageSize   int
}
