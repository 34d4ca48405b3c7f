package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Status     string   `json:"status" validate:"omitempty,session_status"`
	Type       string   `json:"type" validate:"omitempty,session_type"`
	Attendance string   `json:"attendance" validate:"omitempty,attendance_status"`
	Days       []string `json:"days" validate:"omitempty,dive,weekday"`
	Time       string   `json:"time" validate:"omitempty,hhmm"`
	Month      string   `form:"month" validate:"omitempty,month"`
}

func TestNewAcceptsValidValues(t *testing.T) {
	v := New()
	err := v.Struct(sample{
		Status:     "COMPLETED",
		Type:       "MAKEUP",
		Attendance: "LATE",
		Days:       []string{"Monday", "Sunday"},
		Time:       "09:30",
		Month:      "2024-02",
	})
	assert.NoError(t, err)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	v := New()
	cases := []sample{
		{Status: "DONE"},
		{Type: "regular"},
		{Attendance: "HERE"},
		{Days: []string{"monday"}},
		{Time: "9:30"},
		{Time: "25:00"},
		{Month: "2024-2"},
	}
	for _, tc := range cases {
		assert.Error(t, v.Struct(tc), "%+v", tc)
	}
}
