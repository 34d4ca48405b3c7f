package models

import "time"

// Student represents a learner. Attendance is a cached percentage refreshed by the roll-up.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	ParentUserID *string   `db:"parent_user_id" json:"parent_user_id,omitempty"`
	Attendance   int       `db:"attendance" json:"attendance"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
