package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// Attended reports whether the student was in the room.
func (s AttendanceStatus) Attended() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// AttendanceRecord is the single record for a (session, student) pair.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Reason    *string          `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentAttendanceReport is the parent-facing view of a student's attendance.
type StudentAttendanceReport struct {
	StudentID  string             `json:"student_id"`
	FullName   string             `json:"full_name"`
	Attendance int                `json:"attendance"`
	Records    []AttendanceRecord `json:"records"`
}
