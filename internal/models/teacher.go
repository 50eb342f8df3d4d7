package models

import "time"

// Teacher represents an instructor record.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail adds relation ids to a teacher.
type TeacherDetail struct {
	Teacher
	CourseIDs     []string `json:"course_ids"`
	DisciplineIDs []string `json:"discipline_ids"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search   string
	Status   string
	CourseID string
	Page     int
	PageSize int
}

// Director oversees a subset of courses and may be linked to a user account.
type Director struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Status    string    `db:"status" json:"status"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DirectorDetail adds the directed course ids.
type DirectorDetail struct {
	Director
	CourseIDs []string `json:"course_ids"`
}

// DirectorFilter captures filtering options for listing directors.
type DirectorFilter struct {
	Search   string
	Status   string
	CourseID string
	Page     int
	PageSize int
}
