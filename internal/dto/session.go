package dto

// CreateSessionRequest schedules a one-off session.
type CreateSessionRequest struct {
	ClassID    string   `json:"classId" validate:"required"`
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string   `json:"startTime" validate:"omitempty,hhmm"`
	Type       string   `json:"type" validate:"omitempty,session_type"`
	StudentIDs []string `json:"studentIds" validate:"omitempty,dive,required"`
}

// UpdateSessionStatusRequest moves a session to any status.
type UpdateSessionStatusRequest struct {
	Status string `json:"status" validate:"required,session_status"`
}

// SessionListQuery filters the month listing.
type SessionListQuery struct {
	Month   string `form:"month" validate:"required,month"`
	ClassID string `form:"classId"`
	Status  string `form:"status" validate:"omitempty,session_status"`
}

// SessionExportQuery selects the month and format of an export.
type SessionExportQuery struct {
	Month  string `form:"month" validate:"required,month"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
