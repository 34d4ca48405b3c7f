package dto

// RecordAttendanceRequest marks one student for a session.
type RecordAttendanceRequest struct {
	StudentID string  `json:"studentId" validate:"required"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
}

// AttendanceRecomputeResult returns the refreshed percentage.
type AttendanceRecomputeResult struct {
	StudentID  string `json:"studentId"`
	Attendance int    `json:"attendance"`
}
