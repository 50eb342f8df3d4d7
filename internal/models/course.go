package models

import (
	"time"

	"github.com/lib/pq"
)

// Status values shared by courses, disciplines, teachers and directors.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Day periods a course or discipline runs in.
const (
	PeriodMorning   = "MORNING"
	PeriodAfternoon = "AFTERNOON"
	PeriodEvening   = "EVENING"
)

// Course is a program of study lasting SemesterDuration semesters.
type Course struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Status           string         `db:"status" json:"status"`
	Periods          pq.StringArray `db:"periods" json:"periods"`
	SemesterDuration int            `db:"semester_duration" json:"semester_duration"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseDetail is a course with its ordered semesters and relation ids.
type CourseDetail struct {
	Course
	Semesters     []Semester `json:"semesters"`
	TeacherIDs    []string   `json:"teacher_ids"`
	DisciplineIDs []string   `json:"discipline_ids"`
	DirectorIDs   []string   `json:"director_ids"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

// Semester is an ordered subdivision of a course.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	Ordinal   int       `db:"ordinal" json:"ordinal"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
