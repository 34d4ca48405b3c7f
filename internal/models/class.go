package models

import "time"

// ClassGroup is a taught group owned by a teacher at a location. Schedule holds the
// serialized recurrence descriptor exactly as stored; decode it with scheduling.Normalize.
type ClassGroup struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	TeacherID  *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	LocationID *string   `db:"location_id" json:"location_id,omitempty"`
	Grade      string    `db:"grade" json:"grade"`
	Schedule   *string   `db:"schedule" json:"schedule,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// HasSchedule reports whether a recurrence value is stored at all.
func (c ClassGroup) HasSchedule() bool {
	return c.Schedule != nil && *c.Schedule != ""
}
