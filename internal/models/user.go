package models

import "time"

// User represents an application account.
type User struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	Image         *string    `db:"image" json:"image,omitempty"`
	EmailVerified *time.Time `db:"email_verified" json:"email_verified,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	Roles         []string   `db:"-" json:"roles"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     string
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
