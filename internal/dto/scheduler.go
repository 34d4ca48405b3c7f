package dto

import "time"

// ClassFailure records why a single class could not be reconciled during a sweep.
type ClassFailure struct {
	ClassID string `json:"classId"`
	Message string `json:"message"`
}

// MaintenanceSummary reports the outcome of one maintenance sweep.
type MaintenanceSummary struct {
	ReferenceDate    string         `json:"referenceDate"`
	Months           []string       `json:"months"`
	ClassesProcessed int            `json:"classesProcessed"`
	SessionsCreated  int            `json:"sessionsCreated"`
	Errors           []ClassFailure `json:"errors"`
	StartedAt        time.Time      `json:"startedAt"`
	Duration         string         `json:"duration"`
}

// ReconcileResult reports the sessions created for one class month.
type ReconcileResult struct {
	ClassID         string   `json:"classId"`
	Month           string   `json:"month"`
	SessionsCreated int      `json:"sessionsCreated"`
	Dates           []string `json:"dates"`
}

// DeleteMonthResult reports a month purge.
type DeleteMonthResult struct {
	Month   string `json:"month"`
	Deleted int64  `json:"deleted"`
}

// ClassScheduleRequest replaces the recurrence rule of a class.
type ClassScheduleRequest struct {
	Days            []string `json:"days" validate:"required,min=1,dive,weekday"`
	Time            string   `json:"time" validate:"omitempty,hhmm"`
	DurationMinutes *int     `json:"durationMinutes" validate:"omitempty,min=0,max=1440"`
}

// ClassScheduleResponse exposes the normalized recurrence of a class.
type ClassScheduleResponse struct {
	ClassID         string   `json:"classId"`
	Days            []string `json:"days"`
	Time            string   `json:"time,omitempty"`
	DurationMinutes int      `json:"durationMinutes"`
}
